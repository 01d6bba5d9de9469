package l2track

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/laptrace/internal/config"
	"github.com/banshee-data/laptrace/internal/monitoring"
	"github.com/banshee-data/laptrace/internal/trace/l1samples"
)

// DefaultOutlierThreshold is the default chaining threshold in squared
// sensor units. Timing feeds report positions roughly every 10 units
// (decimetres) along the racing line, so 200 is about twice the squared
// spacing of neighbouring samples.
const DefaultOutlierThreshold = config.DefaultOutlierThreshold

// parallelScanMin is the smallest working set worth splitting across
// workers; below it the goroutine overhead dominates the scan.
const parallelScanMin = 4096

// TourConfig controls the nearest-neighbour tour. Zero values select the
// defaults.
type TourConfig struct {
	// OutlierThreshold is the largest metric distance between chained
	// neighbours. Unit depends on Metric.
	OutlierThreshold float64
	// Metric used for chaining.
	Metric Metric
	// Workers splits each nearest-neighbour scan across goroutines when
	// greater than one. The result does not depend on it.
	Workers int
	// SessionID tags the resulting track with the session it was built from.
	SessionID string
}

// DefaultTourConfig returns the production defaults.
func DefaultTourConfig() TourConfig {
	return TourConfig{
		OutlierThreshold: DefaultOutlierThreshold,
		Metric:           MetricSquaredEuclidean,
		Workers:          1,
	}
}

// TourConfigFromTuning builds a TourConfig from tuning parameters.
// An unknown metric name falls back to squared Euclidean.
func TourConfigFromTuning(cfg *config.TuningConfig) TourConfig {
	tc := DefaultTourConfig()
	if cfg == nil {
		return tc
	}
	tc.OutlierThreshold = cfg.GetOutlierThreshold()
	if m, err := ParseMetric(cfg.GetDistanceMetric()); err == nil {
		tc.Metric = m
	}
	tc.Workers = cfg.GetTourWorkers()
	return tc
}

func (c TourConfig) normalised() TourConfig {
	if c.OutlierThreshold <= 0 {
		c.OutlierThreshold = DefaultOutlierThreshold
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return c
}

// TourStats summarises a tour build.
type TourStats struct {
	Points    int     // unique points in the cloud
	Sorted    int     // points accepted into the loop
	Excluded  int     // points rejected as outliers
	DeadEnds  int     // chain heads whose nearest neighbour was out of range
	Strays    int     // isolated candidates dropped while the chain stayed put
	Threshold float64 // threshold used, in Metric units
	Metric    Metric
	Length    float64 // loop length along the sorted points
	MeanStep  float64
	MaxStep   float64
}

func (s TourStats) String() string {
	return fmt.Sprintf("points=%d sorted=%d excluded=%d dead_ends=%d strays=%d length=%.1f",
		s.Points, s.Sorted, s.Excluded, s.DeadEnds, s.Strays, s.Length)
}

type tourBuilder struct {
	pts     []l1samples.TrackPoint
	metric  Metric
	thr     float64
	workers int
}

// candidate is the result of one nearest-neighbour scan: pos indexes the
// active set, d is the metric distance.
type candidate struct {
	pos int
	d   float64
	ok  bool
}

// BuildTour orders the cloud into a loop by greedy nearest-neighbour
// chaining from the cloud's first point.
//
// Each round the nearest unvisited point is found (ties go to the point
// that came first in the cloud). Within the threshold the chain advances
// to it. Beyond the threshold one of the two is an outlier: a candidate
// with no unvisited neighbour in range is a stray and is excluded while
// the chain stays put; otherwise the current head is a dead end and is
// excluded as the chain jumps to the candidate. The last head is kept
// only if it is within the threshold of the last accepted point.
func BuildTour(cloud *l1samples.PointCloud, cfg TourConfig) (*OrderedTrack, error) {
	if cloud == nil || cloud.Len() < 2 {
		n := 0
		if cloud != nil {
			n = cloud.Len()
		}
		return nil, fmt.Errorf("build tour from %d points: %w", n, l1samples.ErrInsufficientData)
	}
	cfg = cfg.normalised()

	b := &tourBuilder{
		pts:     cloud.Points(),
		metric:  cfg.Metric,
		thr:     cfg.OutlierThreshold,
		workers: cfg.Workers,
	}
	stats := TourStats{Points: len(b.pts), Threshold: b.thr, Metric: b.metric}

	active := make([]int, 0, len(b.pts)-1)
	for i := 1; i < len(b.pts); i++ {
		active = append(active, i)
	}
	sorted := make([]int, 0, len(b.pts))
	var excluded []int

	remove := func(pos int) {
		last := len(active) - 1
		active[pos] = active[last]
		active = active[:last]
	}

	cur := 0
	for len(active) > 0 {
		c := b.nearest(cur, active)
		best := active[c.pos]

		if c.d <= b.thr {
			sorted = append(sorted, cur)
			cur = best
			remove(c.pos)
			continue
		}

		if len(sorted) > 0 && b.isolated(best, active, c.pos) {
			monitoring.Debugf("tour: stray point (%.1f, %.1f) at %.1f from chain head", b.pts[best].X, b.pts[best].Y, c.d)
			excluded = append(excluded, best)
			stats.Strays++
			remove(c.pos)
			continue
		}

		monitoring.Debugf("tour: dead end at (%.1f, %.1f), next point %.1f away", b.pts[cur].X, b.pts[cur].Y, c.d)
		excluded = append(excluded, cur)
		stats.DeadEnds++
		cur = best
		remove(c.pos)
	}

	if len(sorted) == 0 || b.metric.Distance(b.pts[cur], b.pts[sorted[len(sorted)-1]]) <= b.thr {
		sorted = append(sorted, cur)
	} else {
		excluded = append(excluded, cur)
	}

	if len(sorted) < 2 {
		return nil, fmt.Errorf("build tour: only %d of %d points within threshold %.1f (%s): %w",
			len(sorted), len(b.pts), b.thr, b.metric, l1samples.ErrInsufficientData)
	}

	track, err := newOrderedTrack(cfg.SessionID, pick(b.pts, sorted), pick(b.pts, excluded))
	if err != nil {
		return nil, fmt.Errorf("build tour: %w", err)
	}

	stats.Sorted = len(sorted)
	stats.Excluded = len(excluded)
	track.fillStats(&stats)
	track.stats = stats

	if stats.Excluded > 0 {
		monitoring.Logf("tour: excluded %d of %d points as outliers (dead_ends=%d strays=%d)",
			stats.Excluded, stats.Points, stats.DeadEnds, stats.Strays)
	}
	return track, nil
}

func pick(pts []l1samples.TrackPoint, idx []int) []l1samples.TrackPoint {
	out := make([]l1samples.TrackPoint, len(idx))
	for i, j := range idx {
		out[i] = pts[j]
	}
	return out
}

// better reports whether a beats b, breaking distance ties on the lower
// original point index.
func (b *tourBuilder) better(active []int, x, y candidate) bool {
	if !y.ok {
		return x.ok
	}
	if !x.ok {
		return false
	}
	if x.d != y.d {
		return x.d < y.d
	}
	return active[x.pos] < active[y.pos]
}

// scan finds the nearest point to cur among active[lo:hi].
func (b *tourBuilder) scan(cur int, active []int, lo, hi int) candidate {
	var best candidate
	p := b.pts[cur]
	for pos := lo; pos < hi; pos++ {
		c := candidate{pos: pos, d: b.metric.Distance(p, b.pts[active[pos]]), ok: true}
		if b.better(active, c, best) {
			best = c
		}
	}
	return best
}

func (b *tourBuilder) nearest(cur int, active []int) candidate {
	if b.workers <= 1 || len(active) < parallelScanMin {
		return b.scan(cur, active, 0, len(active))
	}

	chunk := (len(active) + b.workers - 1) / b.workers
	results := make([]candidate, b.workers)
	var g errgroup.Group
	for k := 0; k < b.workers; k++ {
		lo := k * chunk
		if lo >= len(active) {
			break
		}
		hi := min(lo+chunk, len(active))
		g.Go(func() error {
			results[k] = b.scan(cur, active, lo, hi)
			return nil
		})
	}
	_ = g.Wait()

	var best candidate
	for _, c := range results {
		if b.better(active, c, best) {
			best = c
		}
	}
	return best
}

// isolated reports whether no active point other than active[skip] lies
// within the threshold of pts[idx].
func (b *tourBuilder) isolated(idx int, active []int, skip int) bool {
	p := b.pts[idx]
	for pos, j := range active {
		if pos == skip {
			continue
		}
		if b.metric.Distance(p, b.pts[j]) <= b.thr {
			return false
		}
	}
	return true
}
