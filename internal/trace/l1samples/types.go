package l1samples

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrInsufficientData is returned when an input holds too few samples for
// the requested operation.
var ErrInsufficientData = errors.New("insufficient data")

// Status is the on-track state reported with every position sample.
type Status uint8

const (
	StatusOffTrack Status = 0
	StatusOnTrack  Status = 1
)

func (s Status) String() string {
	switch s {
	case StatusOnTrack:
		return "OnTrack"
	case StatusOffTrack:
		return "OffTrack"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// ParseStatus accepts the feed's textual status ("OnTrack", "OffTrack")
// or its numeric encoding.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "OnTrack", "1":
		return StatusOnTrack, nil
	case "OffTrack", "0":
		return StatusOffTrack, nil
	}
	return StatusOffTrack, fmt.Errorf("unknown position status %q", s)
}

// PositionSample is one (x, y, z) observation of a car.
// Time is session-relative; Date is the absolute timestamp when known.
type PositionSample struct {
	Time   time.Duration
	Date   time.Time
	X      float64
	Y      float64
	Z      float64
	Status Status
}

// CarSample is one reading of the car telemetry channels. Speed is in the
// feed's unit (km/h for timing data).
type CarSample struct {
	Time     time.Duration
	Date     time.Time
	Speed    float64
	RPM      float64
	Gear     int
	Throttle float64
	Brake    bool
	DRS      int
}

// PositionStreams maps driver id to that driver's position samples.
type PositionStreams map[string][]PositionSample

// CarStreams maps driver id to that driver's car samples.
type CarStreams map[string][]CarSample

// Drivers returns the driver ids in sorted order.
func (s PositionStreams) Drivers() []string {
	return sortedKeys(s)
}

// Drivers returns the driver ids in sorted order.
func (s CarStreams) Drivers() []string {
	return sortedKeys(s)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LapRecord is a raw lap timing row. Time is the session time at which the
// lap ended; nil fields were not reported.
type LapRecord struct {
	Driver     string
	LapNumber  *int
	Time       *time.Duration
	LapTime    *time.Duration
	PitInTime  *time.Duration
	PitOutTime *time.Duration
}

// TrackStatusEvent marks a change of the session track status (green,
// yellow, safety car, ...) at a session-relative time.
type TrackStatusEvent struct {
	Time   time.Duration
	Status int
}
