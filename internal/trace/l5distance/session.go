package l5distance

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/banshee-data/laptrace/internal/trace/l1samples"
	"github.com/banshee-data/laptrace/internal/trace/l3channels"
)

// AddTrackStatus adds TrackStatus as a step function of the session status
// events. Rows before the first event take the first event's status.
func AddTrackStatus(t *l3channels.Table, events []l1samples.TrackStatusEvent) (*l3channels.Table, error) {
	if t == nil || t.Len() == 0 {
		return nil, fmt.Errorf("add track status: %w", l3channels.ErrInsufficientData)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("add track status for driver %s: no status events: %w", t.Meta().Driver, l3channels.ErrInsufficientData)
	}
	ev := append([]l1samples.TrackStatusEvent(nil), events...)
	sort.SliceStable(ev, func(i, j int) bool { return ev[i].Time < ev[j].Time })

	status := make([]float64, t.Len())
	k := 0
	for i := range status {
		at := t.Time(i)
		for k+1 < len(ev) && ev[k+1].Time <= at {
			k++
		}
		status[i] = float64(ev[k].Status)
	}
	return t.WithColumn(l3channels.TrackStatus, status)
}

// AddDriverAhead adds DriverAhead (the car number of the closest car in
// front, NaN if none or not numeric) and DistanceToDriverAhead (metres).
//
// All tables must carry a Distance measured from a common zero, for
// example the race start, so that distances of different cars compare.
// Other cars are only considered within their own observed time range.
func AddDriverAhead(own *l3channels.Table, others []*l3channels.Table) (*l3channels.Table, error) {
	if own == nil || own.Len() == 0 {
		return nil, fmt.Errorf("add driver ahead: %w", l3channels.ErrInsufficientData)
	}
	ownDist, ok := own.Column(l3channels.Distance)
	if !ok {
		return nil, fmt.Errorf("add driver ahead for %s: %s: %w", own.Meta().Driver, l3channels.Distance, l3channels.ErrMissingChannel)
	}

	ahead := make([]float64, own.Len())
	gap := make([]float64, own.Len())
	for i := range gap {
		ahead[i] = math.NaN()
		gap[i] = math.Inf(1)
	}

	times := own.Times()
	for _, o := range others {
		if o == nil || o.Len() == 0 || o.Meta().Driver == own.Meta().Driver || !o.Has(l3channels.Distance) {
			continue
		}
		at, err := l3channels.ResampleOnto(o.Without(nonDistance(o)...), times)
		if err != nil {
			return nil, fmt.Errorf("add driver ahead: resample driver %s: %w", o.Meta().Driver, err)
		}
		number := math.NaN()
		if n, err := strconv.Atoi(o.Meta().Driver); err == nil {
			number = float64(n)
		}
		for i, tm := range times {
			if tm < o.Start() || tm > o.End() {
				continue
			}
			d := at.Value(l3channels.Distance, i) - ownDist[i]
			if d > 0 && d < gap[i] {
				gap[i] = d
				ahead[i] = number
			}
		}
	}
	for i := range gap {
		if math.IsInf(gap[i], 1) {
			gap[i] = math.NaN()
		}
	}

	out, err := own.WithColumn(l3channels.DriverAhead, ahead)
	if err != nil {
		return nil, err
	}
	return out.WithColumn(l3channels.DistanceToDriverAhead, gap)
}

func nonDistance(t *l3channels.Table) []string {
	var names []string
	for _, n := range t.Channels() {
		if n != l3channels.Distance {
			names = append(names, n)
		}
	}
	return names
}
