package l2track

import (
	"math"

	"github.com/banshee-data/laptrace/internal/trace/l1samples"
)

// circle returns n points on a circle of radius r, counter-clockwise from
// angle zero.
func circle(n int, r float64) []l1samples.TrackPoint {
	pts := make([]l1samples.TrackPoint, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = l1samples.TrackPoint{X: r * math.Cos(a), Y: r * math.Sin(a)}
	}
	return pts
}

func tp(x, y float64) l1samples.TrackPoint {
	return l1samples.TrackPoint{X: x, Y: y}
}
