// Package units converts the speed channel between the units telemetry
// feeds report it in and the metres per second used for integration.
package units

import (
	"fmt"
	"strings"
)

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

const mpsPerMPH = 0.44704

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// Validate returns an error naming the accepted units when unit is unknown.
func Validate(unit string) error {
	if IsValid(unit) {
		return nil
	}
	return fmt.Errorf("unknown speed unit %q (want one of %s)", unit, strings.Join(ValidUnits, ", "))
}

// ToMPS converts a speed reported in unit to metres per second.
// Unknown units are treated as km/h, the unit timing feeds use.
func ToMPS(speed float64, unit string) float64 {
	switch unit {
	case MPS:
		return speed
	case MPH:
		return speed * mpsPerMPH
	default:
		return speed / 3.6
	}
}

// FromMPS converts a speed in metres per second to unit.
func FromMPS(speedMPS float64, unit string) float64 {
	switch unit {
	case MPS:
		return speedMPS
	case MPH:
		return speedMPS / mpsPerMPH
	default:
		return speedMPS * 3.6
	}
}
