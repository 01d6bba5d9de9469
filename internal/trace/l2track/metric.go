package l2track

import (
	"fmt"
	"math"

	"github.com/banshee-data/laptrace/internal/trace/l1samples"
)

// Metric selects the distance used while chaining the tour. The outlier
// threshold is expressed in the metric's own unit.
type Metric int

const (
	// MetricSquaredEuclidean compares squared straight-line distances;
	// thresholds are in squared sensor units.
	MetricSquaredEuclidean Metric = iota
	// MetricManhattan compares |dx|+|dy|. It is a cheap proxy for the
	// straight-line distance and never underestimates it; thresholds are
	// in plain sensor units.
	MetricManhattan
)

func (m Metric) String() string {
	switch m {
	case MetricSquaredEuclidean:
		return "squared_euclidean"
	case MetricManhattan:
		return "manhattan"
	default:
		return fmt.Sprintf("Metric(%d)", int(m))
	}
}

// ParseMetric maps a configuration name to a Metric.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "squared_euclidean", "":
		return MetricSquaredEuclidean, nil
	case "manhattan":
		return MetricManhattan, nil
	}
	return MetricSquaredEuclidean, fmt.Errorf("unknown distance metric %q", s)
}

// Distance returns the metric distance between a and b.
func (m Metric) Distance(a, b l1samples.TrackPoint) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	if m == MetricManhattan {
		return math.Abs(dx) + math.Abs(dy)
	}
	return dx*dx + dy*dy
}

// fromSquared converts a squared Euclidean distance into this metric. For
// Manhattan the diagonal worst case is used.
func (m Metric) fromSquared(d2 float64) float64 {
	if m == MetricManhattan {
		return math.Sqrt(d2) * math.Sqrt2
	}
	return d2
}
