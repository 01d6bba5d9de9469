// Package testutil provides shared test fixtures for the trace layers and
// the packages built on them.
package testutil

import (
	"math"
	"testing"
	"time"

	"github.com/banshee-data/laptrace/internal/trace/l1samples"
	"github.com/banshee-data/laptrace/internal/trace/l2track"
	"github.com/banshee-data/laptrace/internal/trace/l3channels"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// Seconds returns n row times one second apart starting at zero.
func Seconds(n int) []time.Duration {
	out := make([]time.Duration, n)
	for i := range out {
		out[i] = time.Duration(i) * time.Second
	}
	return out
}

// Table builds a channel table from columns; every row is tagged "car".
func Table(t testing.TB, meta l3channels.Metadata, times []time.Duration, cols ...l3channels.Column) *l3channels.Table {
	t.Helper()
	src := make([]l3channels.Source, len(times))
	for i := range src {
		src[i] = l3channels.SourceCar
	}
	tbl, err := l3channels.NewTable(meta, nil, times, src, cols)
	AssertNoError(t, err)
	return tbl
}

// CirclePoints returns n points evenly spaced on a circle of radius r,
// counter-clockwise from (r, 0).
func CirclePoints(n int, r float64) []l1samples.TrackPoint {
	pts := make([]l1samples.TrackPoint, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = l1samples.TrackPoint{X: r * math.Cos(a), Y: r * math.Sin(a)}
	}
	return pts
}

// CircleTrack returns a track map of n points on a circle of radius r in
// counter-clockwise order.
func CircleTrack(t testing.TB, sessionID string, n int, r float64) *l2track.OrderedTrack {
	t.Helper()
	track, err := l2track.NewOrderedTrack(sessionID, CirclePoints(n, r), nil)
	AssertNoError(t, err)
	return track
}
