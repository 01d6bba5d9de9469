package l2track

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/banshee-data/laptrace/internal/trace/l1samples"
)

// ErrZeroLength is returned when a point sequence has no extent, so the
// normalised distance profile would be undefined.
var ErrZeroLength = errors.New("track has zero length")

// Integrate walks points in order and returns the cumulative straight-line
// distance from the first point together with the same profile normalised
// to [0, 1]. It fails for fewer than two points or a zero total length.
func Integrate(points []l1samples.TrackPoint) (distances, normalized []float64, err error) {
	if len(points) < 2 {
		return nil, nil, fmt.Errorf("integrate %d points: %w", len(points), l1samples.ErrInsufficientData)
	}

	distances = make([]float64, len(points))
	prev := orb.Point{points[0].X, points[0].Y}
	for i := 1; i < len(points); i++ {
		cur := orb.Point{points[i].X, points[i].Y}
		distances[i] = distances[i-1] + planar.Distance(prev, cur)
		prev = cur
	}

	total := distances[len(distances)-1]
	if total == 0 {
		return nil, nil, fmt.Errorf("integrate %d points: %w", len(points), ErrZeroLength)
	}

	normalized = make([]float64, len(points))
	for i, d := range distances {
		normalized[i] = d / total
	}
	normalized[len(normalized)-1] = 1
	return distances, normalized, nil
}
