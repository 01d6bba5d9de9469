package units

import (
	"math"
	"testing"
)

func TestToMPS(t *testing.T) {
	tests := []struct {
		name     string
		speed    float64
		unit     string
		expected float64
	}{
		{"km/h", 36.0, KMPH, 10.0},
		{"kph alias", 36.0, KPH, 10.0},
		{"mph", 22.3694, MPH, 10.0},
		{"mps passthrough", 10.0, MPS, 10.0},
		{"unknown treated as km/h", 360.0, "furlongs", 100.0},
		{"zero", 0, KMPH, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToMPS(tt.speed, tt.unit)
			if math.Abs(got-tt.expected) > 0.001 {
				t.Errorf("ToMPS(%f, %s) = %f, want %f", tt.speed, tt.unit, got, tt.expected)
			}
		})
	}
}

func TestFromMPSRoundTrip(t *testing.T) {
	for _, unit := range ValidUnits {
		got := ToMPS(FromMPS(83.3, unit), unit)
		if math.Abs(got-83.3) > 1e-9 {
			t.Errorf("round trip through %s = %f", unit, got)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(KMPH); err != nil {
		t.Errorf("Validate(%q) = %v", KMPH, err)
	}
	if err := Validate("knots"); err == nil {
		t.Error("Validate(knots) should fail")
	}
}
