package l2track

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/laptrace/internal/trace/l1samples"
)

func TestIntegrate(t *testing.T) {
	t.Parallel()

	t.Run("three-four-five triangle", func(t *testing.T) {
		t.Parallel()
		d, nd, err := Integrate([]l1samples.TrackPoint{tp(0, 0), tp(3, 4)})
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 5}, d)
		assert.Equal(t, []float64{0, 1}, nd)
	})

	t.Run("cumulative along a polyline", func(t *testing.T) {
		t.Parallel()
		d, nd, err := Integrate([]l1samples.TrackPoint{tp(0, 0), tp(3, 4), tp(3, 10), tp(3, 10)})
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 5, 11, 11}, d)
		assert.InDelta(t, 5.0/11.0, nd[1], 1e-12)
		assert.Equal(t, 1.0, nd[3])
	})

	t.Run("too few points", func(t *testing.T) {
		t.Parallel()
		_, _, err := Integrate([]l1samples.TrackPoint{tp(1, 1)})
		assert.True(t, errors.Is(err, l1samples.ErrInsufficientData))
	})

	t.Run("zero length", func(t *testing.T) {
		t.Parallel()
		_, _, err := Integrate([]l1samples.TrackPoint{tp(1, 1), tp(1, 1)})
		assert.True(t, errors.Is(err, ErrZeroLength))
	})
}

func TestNewOrderedTrack(t *testing.T) {
	t.Parallel()

	pts := []l1samples.TrackPoint{tp(0, 0), tp(3, 4), tp(6, 8)}
	track, err := NewOrderedTrack("2023-silverstone-R", pts, []l1samples.TrackPoint{tp(50, 50)})
	require.NoError(t, err)

	assert.Equal(t, "2023-silverstone-R", track.SessionID())
	assert.Equal(t, 10.0, track.Length())
	assert.Equal(t, 4, track.Stats().Points)
	assert.Equal(t, 1, track.Stats().Excluded)
	assert.Equal(t, 5.0, track.Stats().MaxStep)

	pts[0] = tp(99, 99)
	assert.Equal(t, tp(0, 0), track.Point(0), "input slice must be copied")
}

func TestClosestAndDistanceAt(t *testing.T) {
	t.Parallel()

	track, err := NewOrderedTrack("s", []l1samples.TrackPoint{tp(0, 0), tp(10, 0), tp(20, 0), tp(30, 0)}, nil)
	require.NoError(t, err)

	i, d2 := track.Closest(12, 1)
	assert.Equal(t, 1, i)
	assert.Equal(t, 5.0, d2)
	assert.Equal(t, 20.0, track.DistanceAt(19, -3))
	assert.Equal(t, 30.0, track.DistanceAt(1000, 0))
}

func TestStartingAt(t *testing.T) {
	t.Parallel()

	base, err := NewOrderedTrack("s", circle(8, 100), nil)
	require.NoError(t, err)

	p3 := base.Point(3)
	rotated, err := base.StartingAt(p3.X+0.5, p3.Y)
	require.NoError(t, err)

	assert.Equal(t, p3, rotated.Point(0))
	assert.Equal(t, base.Point(2), rotated.Point(7))
	assert.Equal(t, 0.0, rotated.Distances()[0])
	assert.Equal(t, base.Len(), rotated.Len())

	same, err := base.StartingAt(base.Point(0).X, base.Point(0).Y)
	require.NoError(t, err)
	assert.Same(t, base, same)
}

func TestOriented(t *testing.T) {
	t.Parallel()

	pts := circle(100, 500)
	track, err := NewOrderedTrack("s", pts, nil)
	require.NoError(t, err)

	var backwards []l1samples.PositionSample
	for i := 40; i > 20; i-- {
		backwards = append(backwards, l1samples.PositionSample{X: pts[i].X, Y: pts[i].Y, Status: l1samples.StatusOnTrack})
	}
	reversed, err := track.Oriented(backwards)
	require.NoError(t, err)
	assert.Equal(t, pts[99], reversed.Point(0))
	assert.Equal(t, pts[0], reversed.Point(99))

	var forwards []l1samples.PositionSample
	for i := 95; i < 110; i++ {
		p := pts[i%100]
		forwards = append(forwards, l1samples.PositionSample{X: p.X, Y: p.Y, Status: l1samples.StatusOnTrack})
	}
	kept, err := track.Oriented(forwards)
	require.NoError(t, err)
	assert.Same(t, track, kept, "wrap-around across the loop seam must count as forwards")
}

func TestDirectionTo(t *testing.T) {
	t.Parallel()

	pts := circle(100, 500)
	track, err := NewOrderedTrack("s", pts, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, track.DirectionTo(pts[10], pts[12], 0.49))
	assert.Equal(t, -1, track.DirectionTo(pts[10], pts[8], 0.49))
	assert.Equal(t, 0, track.DirectionTo(pts[10], pts[60], 0.49))
	assert.Equal(t, 1, track.DirectionTo(pts[95], pts[2], 0.49), "ahead across the seam")

	// Both queries snap to the same loop point; the heading decides.
	ahead := tp(pts[10].X+0.1*(pts[11].X-pts[10].X), pts[10].Y+0.1*(pts[11].Y-pts[10].Y))
	assert.Equal(t, 1, track.DirectionTo(pts[10], ahead, 0))
	assert.Equal(t, -1, track.DirectionTo(ahead, pts[10], 0))
}

func TestPointsBetween(t *testing.T) {
	t.Parallel()

	pts := circle(10, 100)
	track, err := NewOrderedTrack("s", pts, nil)
	require.NoError(t, err)

	got, err := track.PointsBetween(2, 5, true, true)
	require.NoError(t, err)
	assert.Equal(t, []l1samples.TrackPoint{pts[2], pts[3], pts[4], pts[5]}, got)

	got, err = track.PointsBetween(5, 2, true, false)
	require.NoError(t, err)
	assert.Equal(t, []l1samples.TrackPoint{pts[4], pts[3]}, got)

	got, err = track.PointsBetween(2, 5, false, true)
	require.NoError(t, err)
	assert.Equal(t, []l1samples.TrackPoint{pts[2], pts[1], pts[0], pts[9], pts[8], pts[7], pts[6], pts[5]}, got)

	got, err = track.PointsBetween(8, 1, true, true)
	require.NoError(t, err)
	assert.Equal(t, []l1samples.TrackPoint{pts[8], pts[9], pts[0], pts[1]}, got)

	_, err = track.PointsBetween(0, 10, true, true)
	assert.Error(t, err)
}

func TestSuggestThreshold(t *testing.T) {
	t.Parallel()

	var pts []l1samples.TrackPoint
	for i := 0; i < 50; i++ {
		pts = append(pts, tp(float64(i)*10, 0))
	}
	cloud := l1samples.NewPointCloud(pts)

	thr, err := SuggestThreshold(cloud, MetricSquaredEuclidean)
	require.NoError(t, err)
	assert.InDelta(t, 200.0, thr, 1e-9)

	thr, err = SuggestThreshold(cloud, MetricManhattan)
	require.NoError(t, err)
	assert.InDelta(t, 20*math.Sqrt2, thr, 1e-9)

	_, err = SuggestThreshold(l1samples.NewPointCloud(pts[:1]), MetricSquaredEuclidean)
	assert.True(t, errors.Is(err, l1samples.ErrInsufficientData))
}

func TestOutline(t *testing.T) {
	t.Parallel()

	track, err := NewOrderedTrack("s", circle(200, 1000), nil)
	require.NoError(t, err)

	full := track.Outline(0)
	assert.Len(t, full, 200)

	simple := track.Outline(5)
	assert.Less(t, len(simple), 200)
	assert.Equal(t, full[0], simple[0])
	assert.Equal(t, full[len(full)-1], simple[len(simple)-1])
}
