package l3channels

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/banshee-data/laptrace/internal/config"
)

// MaxGridRows bounds the number of rows a fixed-rate resample may produce.
const MaxGridRows = 1 << 24

// Frequency selects the output time base of a merge or resample: either
// the union of the input timestamps (Original) or a fixed rate.
type Frequency struct {
	hz float64
}

// Original keeps the input timestamps.
var Original = Frequency{}

// Hz returns a fixed-rate frequency.
func Hz(rate float64) Frequency { return Frequency{hz: rate} }

// ParseFrequency accepts "original" or a rate such as "10", "10hz".
func ParseFrequency(s string) (Frequency, error) {
	hz, err := config.ParseRate(s)
	if err != nil {
		return Original, err
	}
	return Frequency{hz: hz}, nil
}

// IsOriginal reports whether f keeps the input timestamps.
func (f Frequency) IsOriginal() bool { return f.hz == 0 }

// Rate returns the rate in Hz, 0 for Original.
func (f Frequency) Rate() float64 { return f.hz }

// Step returns the grid spacing of a fixed-rate frequency.
func (f Frequency) Step() time.Duration {
	if !(f.hz > 0) || math.IsInf(f.hz, 1) {
		return 0
	}
	return time.Duration(float64(time.Second) / f.hz)
}

func (f Frequency) String() string {
	if f.IsOriginal() {
		return "original"
	}
	return strconv.FormatFloat(f.hz, 'f', -1, 64) + "hz"
}

// grid returns evenly spaced times from start to end inclusive of start;
// end is included when it falls on the grid.
func (f Frequency) grid(start, end time.Duration) ([]time.Duration, error) {
	step := f.Step()
	if step <= 0 {
		return nil, fmt.Errorf("invalid resample rate %v", f.hz)
	}
	rows := (end-start)/step + 1
	if rows > MaxGridRows {
		return nil, fmt.Errorf("resample at %s over %v needs %d rows, limit is %d", f, end-start, rows, MaxGridRows)
	}
	n := int(rows)
	out := make([]time.Duration, n)
	for i := range out {
		out[i] = start + time.Duration(i)*step
	}
	return out, nil
}
