package l3channels

import (
	"math"
	"sort"
	"time"
)

// series holds the known (non-NaN) samples of one channel with strictly
// increasing times. Of several samples sharing a time only the first is kept.
type series struct {
	t []time.Duration
	v []float64
}

func knownSeries(times []time.Duration, values []float64) series {
	var s series
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if k := len(s.t); k > 0 && s.t[k-1] == times[i] {
			continue
		}
		s.t = append(s.t, times[i])
		s.v = append(s.v, v)
	}
	return s
}

func (s series) empty() bool { return len(s.t) == 0 }

// at evaluates the series with the fill policy of kind.
func (s series) at(kind Kind, at time.Duration) float64 {
	if kind == Discrete {
		return s.hold(at)
	}
	return s.linear(at)
}

// linear interpolates between the known samples around at, clamping to the
// first and last known value outside their range.
func (s series) linear(at time.Duration) float64 {
	if s.empty() {
		return math.NaN()
	}
	lo := sort.Search(len(s.t), func(i int) bool { return s.t[i] >= at })
	if lo < len(s.t) && s.t[lo] == at {
		return s.v[lo]
	}
	if lo == 0 {
		return s.v[0]
	}
	if lo == len(s.t) {
		return s.v[len(s.v)-1]
	}
	p, n := lo-1, lo
	return lerp(s.t[p], s.v[p], s.t[n], s.v[n], at)
}

// hold returns the last known value at or before at, or the first known
// value when at precedes every sample.
func (s series) hold(at time.Duration) float64 {
	if s.empty() {
		return math.NaN()
	}
	n := sort.Search(len(s.t), func(i int) bool { return s.t[i] > at })
	if n == 0 {
		return s.v[0]
	}
	return s.v[n-1]
}

// lerp interpolates linearly in time. Equal timestamps yield v0.
func lerp(t0 time.Duration, v0 float64, t1 time.Duration, v1 float64, at time.Duration) float64 {
	if t1 == t0 {
		return v0
	}
	frac := float64(at-t0) / float64(t1-t0)
	return v0 + frac*(v1-v0)
}

// fill replaces the NaNs of values by the policy of kind and returns the
// number of cells filled. A column without any known value is left as is.
func fill(kind Kind, times []time.Duration, values []float64) int {
	s := knownSeries(times, values)
	if s.empty() {
		return 0
	}
	filled := 0
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = s.at(kind, times[i])
			filled++
		}
	}
	return filled
}
