package l2track

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/laptrace/internal/trace/l1samples"
)

// SuggestThreshold derives an outlier threshold from the cloud's own point
// spacing: twice the median nearest-neighbour distance, in metric units.
// It is a starting point for tuning, not a replacement for it.
func SuggestThreshold(cloud *l1samples.PointCloud, metric Metric) (float64, error) {
	if cloud == nil || cloud.Len() < 2 {
		return 0, fmt.Errorf("suggest threshold: %w", l1samples.ErrInsufficientData)
	}

	xs := make([]float64, cloud.Len())
	ys := make([]float64, cloud.Len())
	for i := 0; i < cloud.Len(); i++ {
		p := cloud.At(i)
		xs[i], ys[i] = p.X, p.Y
	}
	ix := newPointIndex(xs, ys)

	spacing := make([]float64, 0, len(xs))
	for i := range xs {
		if d2, ok := ix.nearestOther(xs[i], ys[i], i); ok {
			spacing = append(spacing, metric.fromSquared(d2))
		}
	}
	if len(spacing) == 0 {
		return 0, fmt.Errorf("suggest threshold: %w", l1samples.ErrInsufficientData)
	}

	sort.Float64s(spacing)
	median := stat.Quantile(0.5, stat.Empirical, spacing, nil)
	return 2 * median, nil
}
