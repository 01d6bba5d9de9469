package l2track

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// LineString returns the loop as an orb line string in driving order.
func (t *OrderedTrack) LineString() orb.LineString {
	ls := make(orb.LineString, len(t.points))
	for i, p := range t.points {
		ls[i] = orb.Point{p.X, p.Y}
	}
	return ls
}

// Outline returns the loop simplified with Douglas-Peucker at tolerance
// (sensor units), suitable for drawing or storing a light-weight map.
// A tolerance of zero returns the full loop.
func (t *OrderedTrack) Outline(tolerance float64) orb.LineString {
	ls := t.LineString()
	if tolerance <= 0 {
		return ls
	}
	return simplify.DouglasPeucker(tolerance).Simplify(ls.Clone()).(orb.LineString)
}
