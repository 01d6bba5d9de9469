package l5distance

import (
	"fmt"
	"math"

	"github.com/banshee-data/laptrace/internal/monitoring"
	"github.com/banshee-data/laptrace/internal/trace/l2track"
	"github.com/banshee-data/laptrace/internal/trace/l3channels"
)

// ProjectOntoTrack adds TrackDistance: for every row the distance along
// track of the loop point nearest to the row's (X, Y). Rows without a
// position get NaN.
//
// The track must have been reconstructed from the same session as the
// table. A differing session id is logged, not rejected.
func ProjectOntoTrack(t *l3channels.Table, track *l2track.OrderedTrack) (*l3channels.Table, error) {
	if t == nil || t.Len() == 0 {
		return nil, fmt.Errorf("project onto track: %w", l3channels.ErrInsufficientData)
	}
	if track == nil {
		return nil, fmt.Errorf("project driver %s onto track: no track: %w", t.Meta().Driver, l3channels.ErrInsufficientData)
	}
	xs, okX := t.Column(l3channels.X)
	ys, okY := t.Column(l3channels.Y)
	if !okX || !okY {
		return nil, fmt.Errorf("project driver %s onto track: X/Y: %w", t.Meta().Driver, l3channels.ErrMissingChannel)
	}
	if sid := t.Meta().SessionID; sid != "" && track.SessionID() != "" && sid != track.SessionID() {
		monitoring.Logf("warning: projecting session %s telemetry onto track map of session %s", sid, track.SessionID())
	}

	td := make([]float64, t.Len())
	for i := range td {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			td[i] = math.NaN()
			continue
		}
		td[i] = track.DistanceAt(xs[i], ys[i])
	}
	return t.WithColumn(l3channels.TrackDistance, td)
}

// Marker is a static point of interest such as a corner or marshal sector.
type Marker struct {
	Name     string
	X        float64
	Y        float64
	Distance float64 // along the track, set by ProjectMarkers
}

// ProjectMarkers returns copies of markers with Distance set from the
// nearest loop point.
func ProjectMarkers(track *l2track.OrderedTrack, markers []Marker) []Marker {
	out := make([]Marker, len(markers))
	for i, m := range markers {
		m.Distance = track.DistanceAt(m.X, m.Y)
		out[i] = m
	}
	return out
}
