package l3channels

import (
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/laptrace/internal/monitoring"
)

// MergeStats describes a merge.
type MergeStats struct {
	RowsA          int
	RowsB          int
	Paired         int // rows with the same time in both inputs, merged into one
	Rows           int // rows in the result
	Filled         int // cells filled by interpolation or hold
	DuplicateTimes int // result rows sharing their time with the previous row
	Unfilled       []string
}

// Merge aligns b onto a. Rows with the same time in both tables are paired
// one to one; all other rows are interleaved by time. On channels both
// tables carry, a's value wins and b's value is used wherever a has none
// (rows only b has, or NaN cells of a); a's Source wins on paired rows. Gaps in schema channels are then filled: continuous channels by
// linear interpolation in time, discrete channels by holding the last
// known value (the first known value before it). Values outside a
// channel's observed range are clamped to its first or last sample.
//
// With a fixed-rate freq the merged result is resampled onto a grid from
// the first to the last merged time; grid rows that coincide with an input
// row keep its Source, all others are tagged "interpolation".
//
// The result carries a's metadata and schema.
func Merge(a, b *Table, freq Frequency) (*Table, MergeStats, error) {
	stats := MergeStats{}
	if a == nil || b == nil || a.Len() == 0 || b.Len() == 0 {
		return nil, stats, fmt.Errorf("merge: empty input table: %w", ErrInsufficientData)
	}
	stats.RowsA, stats.RowsB = a.Len(), b.Len()

	meta, err := mergeMeta(a.meta, b.meta)
	if err != nil {
		return nil, stats, err
	}

	names := append([]string(nil), a.names...)
	for _, name := range b.names {
		if !a.Has(name) {
			names = append(names, name)
		}
	}

	n := a.Len() + b.Len()
	times := make([]time.Duration, 0, n)
	source := make([]Source, 0, n)
	cols := make(map[string][]float64, len(names))
	for _, name := range names {
		cols[name] = make([]float64, 0, n)
	}

	emit := func(ai, bi int) {
		switch {
		case ai >= 0:
			times = append(times, a.times[ai])
			source = append(source, a.source[ai])
		default:
			times = append(times, b.times[bi])
			source = append(source, b.source[bi])
		}
		for _, name := range names {
			v := math.NaN()
			if ac, ok := a.cols[name]; ok && ai >= 0 {
				v = ac[ai]
			}
			if bc, ok := b.cols[name]; ok && bi >= 0 && math.IsNaN(v) {
				v = bc[bi]
			}
			cols[name] = append(cols[name], v)
		}
	}

	i, j := 0, 0
	for i < a.Len() || j < b.Len() {
		switch {
		case j >= b.Len() || (i < a.Len() && a.times[i] < b.times[j]):
			emit(i, -1)
			i++
		case i >= a.Len() || b.times[j] < a.times[i]:
			emit(-1, j)
			j++
		default:
			emit(i, j)
			i++
			j++
			stats.Paired++
		}
	}

	for _, name := range names {
		kind, ok := a.schema.fillable(name)
		if !ok {
			stats.Unfilled = append(stats.Unfilled, name)
			continue
		}
		stats.Filled += fill(kind, times, cols[name])
	}
	for k := 1; k < len(times); k++ {
		if times[k] == times[k-1] {
			stats.DuplicateTimes++
		}
	}

	merged := &Table{meta: meta, schema: a.schema, times: times, source: source, names: names, cols: cols}
	if len(stats.Unfilled) > 0 {
		monitoring.Debugf("merge %s: channels not filled (unknown or excluded): %v", meta.Driver, stats.Unfilled)
	}

	if !freq.IsOriginal() {
		merged, err = Resample(merged, freq)
		if err != nil {
			return nil, stats, fmt.Errorf("merge %s at %s: %w", meta.Driver, freq, err)
		}
	}
	stats.Rows = merged.Len()
	return merged, stats, nil
}

func mergeMeta(a, b Metadata) (Metadata, error) {
	if a.Driver != "" && b.Driver != "" && a.Driver != b.Driver {
		return a, fmt.Errorf("merge driver %s with driver %s: %w", a.Driver, b.Driver, ErrDriverMismatch)
	}
	m := a
	if m.Driver == "" {
		m.Driver = b.Driver
	}
	if m.SessionID == "" {
		m.SessionID = b.SessionID
	}
	if m.T0.IsZero() {
		m.T0 = b.T0
	}
	return m, nil
}
