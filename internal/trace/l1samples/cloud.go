package l1samples

import (
	"fmt"
	"math"
	"time"
)

// TrackPoint is a 2D coordinate in the session's position units. Date is
// the time of the first observation at this coordinate, zero if unknown.
type TrackPoint struct {
	X    float64
	Y    float64
	Date time.Time
}

// SameXY reports whether both points share exactly the same coordinates.
func (p TrackPoint) SameXY(o TrackPoint) bool {
	return p.X == o.X && p.Y == o.Y
}

type xy struct{ x, y float64 }

// PointCloud is a set of unique track points in first-seen order.
type PointCloud struct {
	points []TrackPoint
}

// NewPointCloud builds a cloud from points, keeping the first occurrence of
// every (x, y) pair and dropping points with NaN coordinates.
func NewPointCloud(points []TrackPoint) *PointCloud {
	c := &PointCloud{points: make([]TrackPoint, 0, len(points))}
	seen := make(map[xy]struct{}, len(points))
	for _, p := range points {
		c.add(seen, p)
	}
	return c
}

func (c *PointCloud) add(seen map[xy]struct{}, p TrackPoint) bool {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) {
		return false
	}
	k := xy{p.X, p.Y}
	if _, dup := seen[k]; dup {
		return false
	}
	seen[k] = struct{}{}
	c.points = append(c.points, p)
	return true
}

// Len returns the number of unique points.
func (c *PointCloud) Len() int { return len(c.points) }

// At returns the i-th point in iteration order.
func (c *PointCloud) At(i int) TrackPoint { return c.points[i] }

// Points returns a copy of the points in iteration order.
func (c *PointCloud) Points() []TrackPoint {
	out := make([]TrackPoint, len(c.points))
	copy(out, c.points)
	return out
}

// CloudStats counts what happened to the raw samples during extraction.
type CloudStats struct {
	Drivers    int
	Samples    int
	OffTrack   int
	Invalid    int
	Duplicates int
	Unique     int
}

func (s CloudStats) String() string {
	return fmt.Sprintf("drivers=%d samples=%d off_track=%d invalid=%d duplicates=%d unique=%d",
		s.Drivers, s.Samples, s.OffTrack, s.Invalid, s.Duplicates, s.Unique)
}

// ExtractPointCloud collects the unique on-track (x, y) positions of all
// drivers. Drivers are visited in sorted id order and samples in stream
// order, so the result is deterministic for a given input.
func ExtractPointCloud(streams PositionStreams) (*PointCloud, CloudStats, error) {
	var stats CloudStats
	cloud := &PointCloud{}
	seen := make(map[xy]struct{})

	for _, drv := range streams.Drivers() {
		stats.Drivers++
		for _, s := range streams[drv] {
			stats.Samples++
			if s.Status != StatusOnTrack {
				stats.OffTrack++
				continue
			}
			if math.IsNaN(s.X) || math.IsNaN(s.Y) {
				stats.Invalid++
				continue
			}
			if !cloud.add(seen, TrackPoint{X: s.X, Y: s.Y, Date: s.Date}) {
				stats.Duplicates++
			}
		}
	}
	stats.Unique = cloud.Len()

	if cloud.Len() == 0 {
		return nil, stats, fmt.Errorf("no on-track positions in %d samples from %d drivers: %w",
			stats.Samples, stats.Drivers, ErrInsufficientData)
	}
	return cloud, stats, nil
}
