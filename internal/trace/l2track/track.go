package l2track

import (
	"fmt"
	"math"

	"github.com/banshee-data/laptrace/internal/trace/l1samples"
)

// OrderedTrack is a reconstructed circuit loop: the accepted points in
// driving order with their distance profile, plus the points rejected as
// outliers. It is immutable once built and only valid for telemetry of the
// session it was built from.
type OrderedTrack struct {
	sessionID  string
	points     []l1samples.TrackPoint
	excluded   []l1samples.TrackPoint
	distance   []float64
	normalized []float64
	stats      TourStats
	index      *pointIndex
}

// NewOrderedTrack rebuilds a track from points already in loop order, for
// example when loading a stored reconstruction.
func NewOrderedTrack(sessionID string, points, excluded []l1samples.TrackPoint) (*OrderedTrack, error) {
	t, err := newOrderedTrack(sessionID, clonePoints(points), clonePoints(excluded))
	if err != nil {
		return nil, err
	}
	stats := TourStats{
		Points:    len(points) + len(excluded),
		Sorted:    len(points),
		Excluded:  len(excluded),
		Threshold: math.NaN(),
	}
	t.fillStats(&stats)
	t.stats = stats
	return t, nil
}

// newOrderedTrack takes ownership of points and excluded.
func newOrderedTrack(sessionID string, points, excluded []l1samples.TrackPoint) (*OrderedTrack, error) {
	dist, norm, err := Integrate(points)
	if err != nil {
		return nil, err
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}
	return &OrderedTrack{
		sessionID:  sessionID,
		points:     points,
		excluded:   excluded,
		distance:   dist,
		normalized: norm,
		index:      newPointIndex(xs, ys),
	}, nil
}

func clonePoints(p []l1samples.TrackPoint) []l1samples.TrackPoint {
	if p == nil {
		return nil
	}
	out := make([]l1samples.TrackPoint, len(p))
	copy(out, p)
	return out
}

func (t *OrderedTrack) fillStats(s *TourStats) {
	s.Length = t.distance[len(t.distance)-1]
	s.MeanStep = s.Length / float64(len(t.points)-1)
	s.MaxStep = 0
	for i := 1; i < len(t.distance); i++ {
		s.MaxStep = math.Max(s.MaxStep, t.distance[i]-t.distance[i-1])
	}
}

// SessionID returns the session the track was built from.
func (t *OrderedTrack) SessionID() string { return t.sessionID }

// Len returns the number of points in the loop.
func (t *OrderedTrack) Len() int { return len(t.points) }

// Points returns a copy of the loop points in driving order.
func (t *OrderedTrack) Points() []l1samples.TrackPoint { return clonePoints(t.points) }

// Excluded returns a copy of the points rejected as outliers.
func (t *OrderedTrack) Excluded() []l1samples.TrackPoint { return clonePoints(t.excluded) }

// Distances returns a copy of the cumulative distance per point.
func (t *OrderedTrack) Distances() []float64 { return append([]float64(nil), t.distance...) }

// NormalizedDistances returns a copy of the distance profile scaled to [0, 1].
func (t *OrderedTrack) NormalizedDistances() []float64 {
	return append([]float64(nil), t.normalized...)
}

// Point returns the i-th loop point.
func (t *OrderedTrack) Point(i int) l1samples.TrackPoint { return t.points[i] }

// DistanceAtIndex returns the cumulative distance of the i-th loop point.
func (t *OrderedTrack) DistanceAtIndex(i int) float64 { return t.distance[i] }

// Length returns the distance from the first to the last loop point.
func (t *OrderedTrack) Length() float64 { return t.distance[len(t.distance)-1] }

// Stats returns the statistics of the build that produced the track.
func (t *OrderedTrack) Stats() TourStats { return t.stats }

// Closest returns the index of the loop point nearest to (x, y) and the
// squared distance to it.
func (t *OrderedTrack) Closest(x, y float64) (int, float64) {
	return t.index.nearest(x, y)
}

// DistanceAt returns the track distance of the loop point nearest to (x, y).
func (t *OrderedTrack) DistanceAt(x, y float64) float64 {
	i, _ := t.Closest(x, y)
	return t.distance[i]
}

// derive builds a new track from reordered points, keeping the session,
// exclusions and build statistics.
func (t *OrderedTrack) derive(points []l1samples.TrackPoint) (*OrderedTrack, error) {
	nt, err := newOrderedTrack(t.sessionID, points, clonePoints(t.excluded))
	if err != nil {
		return nil, err
	}
	stats := t.stats
	nt.fillStats(&stats)
	nt.stats = stats
	return nt, nil
}

// Reversed returns the loop traversed in the opposite direction.
func (t *OrderedTrack) Reversed() (*OrderedTrack, error) {
	pts := make([]l1samples.TrackPoint, len(t.points))
	for i, p := range t.points {
		pts[len(pts)-1-i] = p
	}
	return t.derive(pts)
}

// StartingAt rotates the loop so that the point nearest to (x, y), usually
// the start/finish line, is at distance zero.
func (t *OrderedTrack) StartingAt(x, y float64) (*OrderedTrack, error) {
	k, _ := t.Closest(x, y)
	if k == 0 {
		return t, nil
	}
	pts := make([]l1samples.TrackPoint, 0, len(t.points))
	pts = append(pts, t.points[k:]...)
	pts = append(pts, t.points[:k]...)
	nt, err := t.derive(pts)
	if err != nil {
		return nil, fmt.Errorf("rotate track to (%.1f, %.1f): %w", x, y, err)
	}
	return nt, nil
}

// Oriented returns the loop in the direction the car in samples drove.
// Consecutive on-track samples vote on the direction by the signed index
// step between their nearest loop points; the loop is reversed when the
// majority runs against index order. Without a usable vote the track is
// returned unchanged.
func (t *OrderedTrack) Oriented(samples []l1samples.PositionSample) (*OrderedTrack, error) {
	votes := 0
	prev := -1
	for _, s := range samples {
		if s.Status != l1samples.StatusOnTrack || math.IsNaN(s.X) || math.IsNaN(s.Y) {
			prev = -1
			continue
		}
		i, _ := t.Closest(s.X, s.Y)
		if prev >= 0 {
			votes += t.step(prev, i)
		}
		prev = i
	}
	if votes >= 0 {
		return t, nil
	}
	return t.Reversed()
}

// step returns the sign of the shortest index step from i to j around the
// loop, 0 when they coincide.
func (t *OrderedTrack) step(i, j int) int {
	n := len(t.points)
	d := j - i
	switch {
	case d == 0:
		return 0
	case d > n/2:
		d -= n
	case d < -n/2:
		d += n
	}
	if d > 0 {
		return 1
	}
	return -1
}

// DirectionTo reports whether other lies ahead of (+1) or behind (-1) ref
// along the loop. Points further apart than relMax of the loop (at most
// 0.49) report 0, as does a tie that the local heading cannot resolve.
func (t *OrderedTrack) DirectionTo(ref, other l1samples.TrackPoint, relMax float64) int {
	if relMax <= 0 || relMax > 0.49 {
		relMax = 0.49
	}
	n := float64(len(t.points))
	ri, _ := t.Closest(ref.X, ref.Y)
	oi, _ := t.Closest(other.X, other.Y)
	delta := float64(oi - ri)

	if delta < -(1-relMax)*n {
		return 1
	}
	if math.Abs(delta) > relMax*n {
		return 0
	}
	if delta > 0 {
		return 1
	}
	if delta < 0 {
		return -1
	}

	// Same loop point: compare the query vector with the local heading.
	next := t.points[(ri+1)%len(t.points)]
	dot := (other.X-ref.X)*(next.X-t.points[ri].X) + (other.Y-ref.Y)*(next.Y-t.points[ri].Y)
	switch {
	case dot > 0:
		return 1
	case dot < 0:
		return -1
	}
	return 0
}

// PointsBetween returns the loop points between indices i and j. With
// short set it takes the shorter way round, otherwise the longer one. The
// result starts on the side of i and includes both boundary points when
// includeRef is set.
func (t *OrderedTrack) PointsBetween(i, j int, short, includeRef bool) ([]l1samples.TrackPoint, error) {
	n := len(t.points)
	if i < 0 || i >= n || j < 0 || j >= n {
		return nil, fmt.Errorf("points between %d and %d: index out of range [0, %d)", i, j, n)
	}
	lo, hi := min(i, j), max(i, j)
	inner := float64(hi-lo) < 0.5*float64(n)

	var out []l1samples.TrackPoint
	if short == inner {
		if includeRef {
			out = append(out, t.points[lo])
		}
		out = append(out, t.points[lo+1:hi]...)
		if includeRef && hi != lo {
			out = append(out, t.points[hi])
		}
		if i > j {
			reverse(out)
		}
		return out, nil
	}

	// Wrap around the end of the loop: hi..end then start..lo.
	if includeRef {
		out = append(out, t.points[hi])
	}
	out = append(out, t.points[hi+1:]...)
	out = append(out, t.points[:lo]...)
	if includeRef && hi != lo {
		out = append(out, t.points[lo])
	}
	if i < j {
		reverse(out)
	}
	return out, nil
}

func reverse(p []l1samples.TrackPoint) {
	for a, b := 0, len(p)-1; a < b; a, b = a+1, b-1 {
		p[a], p[b] = p[b], p[a]
	}
}
