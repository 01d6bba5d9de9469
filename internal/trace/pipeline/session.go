package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/laptrace/internal/monitoring"
	"github.com/banshee-data/laptrace/internal/trace/l1samples"
	"github.com/banshee-data/laptrace/internal/trace/l2track"
	"github.com/banshee-data/laptrace/internal/trace/l3channels"
	"github.com/banshee-data/laptrace/internal/trace/l4laps"
)

// ErrNoDrivers is returned when a session has no driver with both car and
// position data.
var ErrNoDrivers = errors.New("no driver with both car and position data")

// Session is the raw input of one timed session.
type Session struct {
	ID          string
	T0          time.Time // wall-clock time of session time zero
	Positions   l1samples.PositionStreams
	Car         l1samples.CarStreams
	Laps        []l1samples.LapRecord
	TrackStatus []l1samples.TrackStatusEvent
}

// Drivers returns the drivers with both car and position streams, sorted.
func (s *Session) Drivers() []string {
	var out []string
	for _, d := range s.Car.Drivers() {
		if len(s.Car[d]) > 0 && len(s.Positions[d]) > 0 {
			out = append(out, d)
		}
	}
	return out
}

func (s *Session) meta(driver string) l3channels.Metadata {
	return l3channels.Metadata{SessionID: s.ID, Driver: driver, T0: s.T0}
}

// Merge merges the car and position streams of one driver at freq.
func (s *Session) Merge(driver string, freq l3channels.Frequency) (*l3channels.Table, l3channels.MergeStats, error) {
	meta := s.meta(driver)
	car := l3channels.FromCarSamples(meta, nil, s.Car[driver])
	pos := l3channels.FromPositionSamples(meta, nil, s.Positions[driver])
	merged, ms, err := l3channels.Merge(car, pos, freq)
	if err != nil {
		return nil, ms, fmt.Errorf("merge driver %s: %w", driver, err)
	}
	monitoring.Debugf("driver %s: merged %d car and %d position rows into %d (%d filled)", driver, ms.RowsA, ms.RowsB, ms.Rows, ms.Filled)
	return merged, ms, nil
}

// DriverResult holds one driver's merged telemetry and lap slices.
type DriverResult struct {
	Driver string
	// Telemetry is the merged session-long table with Distance,
	// TrackDistance and, when available, TrackStatus and DriverAhead.
	Telemetry  *l3channels.Table
	MergeStats l3channels.MergeStats
	// Laps are the laps that were sliced, in start order, with LapTables
	// holding the matching slices annotated with per-lap Distance and
	// RelativeDistance.
	Laps      []l4laps.Lap
	LapTables []*l3channels.Table
	Summaries []LapSummary
	// Skipped counts laps whose slice came out empty.
	Skipped int
}

// Result is the outcome of one pipeline run.
type Result struct {
	RunID      string
	SessionID  string
	StartedAt  time.Time
	Elapsed    time.Duration
	Track      *l2track.OrderedTrack
	CloudStats l1samples.CloudStats
	LapStats   l4laps.LapStats
	Drivers    []DriverResult // sorted by driver
}

// Driver returns the result of one driver.
func (r *Result) Driver(driver string) (DriverResult, bool) {
	for _, d := range r.Drivers {
		if d.Driver == driver {
			return d, true
		}
	}
	return DriverResult{}, false
}

// Telemetry returns the merged session tables of all drivers.
func (r *Result) Telemetry() []*l3channels.Table {
	out := make([]*l3channels.Table, len(r.Drivers))
	for i, d := range r.Drivers {
		out[i] = d.Telemetry
	}
	return out
}

// Summaries returns the lap summaries of all drivers.
func (r *Result) Summaries() []LapSummary {
	var out []LapSummary
	for _, d := range r.Drivers {
		out = append(out, d.Summaries...)
	}
	return out
}
