package l3channels

import (
	"fmt"
	"sort"
)

// Kind classifies how a channel is filled between samples.
type Kind int

const (
	// Continuous channels are linearly interpolated.
	Continuous Kind = iota
	// Discrete channels hold the last known value.
	Discrete
	// Excluded channels are carried along but never filled.
	Excluded
)

func (k Kind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Discrete:
		return "discrete"
	case Excluded:
		return "excluded"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Channel names produced by the ingest layer and the annotators.
const (
	Speed                 = "Speed"
	RPM                   = "RPM"
	Gear                  = "nGear"
	Throttle              = "Throttle"
	Brake                 = "Brake"
	DRS                   = "DRS"
	X                     = "X"
	Y                     = "Y"
	Z                     = "Z"
	Status                = "Status"
	Distance              = "Distance"
	RelativeDistance      = "RelativeDistance"
	DifferentialDistance  = "DifferentialDistance"
	TrackDistance         = "TrackDistance"
	TrackStatus           = "TrackStatus"
	DriverAhead           = "DriverAhead"
	DistanceToDriverAhead = "DistanceToDriverAhead"
)

// Schema maps channel names to their Kind. A Schema is never modified
// after construction; With returns an extended copy.
type Schema struct {
	kinds map[string]Kind
}

// NewSchema copies kinds into a new Schema.
func NewSchema(kinds map[string]Kind) *Schema {
	s := &Schema{kinds: make(map[string]Kind, len(kinds))}
	for k, v := range kinds {
		s.kinds[k] = v
	}
	return s
}

// DefaultSchema registers the channels of the timing feed and those added
// by the annotators.
func DefaultSchema() *Schema {
	return NewSchema(map[string]Kind{
		Speed:                 Continuous,
		RPM:                   Continuous,
		Throttle:              Continuous,
		X:                     Continuous,
		Y:                     Continuous,
		Z:                     Continuous,
		Distance:              Continuous,
		RelativeDistance:      Continuous,
		DifferentialDistance:  Continuous,
		TrackDistance:         Continuous,
		DistanceToDriverAhead: Continuous,
		Gear:                  Discrete,
		DRS:                   Discrete,
		Brake:                 Discrete,
		Status:                Discrete,
		TrackStatus:           Discrete,
		DriverAhead:           Discrete,
	})
}

// With returns a copy of s with name registered as kind.
func (s *Schema) With(name string, kind Kind) *Schema {
	n := NewSchema(s.kinds)
	n.kinds[name] = kind
	return n
}

// Kind returns the kind of name and whether it is known.
func (s *Schema) Kind(name string) (Kind, bool) {
	if s == nil {
		return Excluded, false
	}
	k, ok := s.kinds[name]
	return k, ok
}

// Names returns the registered channel names in sorted order.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.kinds))
	for k := range s.kinds {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// fillable reports whether name is filled during merge and resample.
func (s *Schema) fillable(name string) (Kind, bool) {
	k, ok := s.Kind(name)
	if !ok || k == Excluded {
		return k, false
	}
	return k, true
}
