package l3channels

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Resample returns t on a fixed-rate grid spanning its first to last row.
// Original frequency returns t unchanged.
func Resample(t *Table, freq Frequency) (*Table, error) {
	if t == nil || t.Len() == 0 {
		return nil, fmt.Errorf("resample: %w", ErrInsufficientData)
	}
	if freq.IsOriginal() {
		return t, nil
	}
	grid, err := freq.grid(t.Start(), t.End())
	if err != nil {
		return nil, fmt.Errorf("resample %s: %w", t.meta.Driver, err)
	}
	return ResampleOnto(t, grid)
}

// ResampleOnto evaluates every channel of t at the given times using the
// merge fill policy. Rows whose time matches a row of t keep that row's
// Source (the first one on ties); all other rows are "interpolation".
// Channels the schema does not fill only carry exact matches.
func ResampleOnto(t *Table, times []time.Duration) (*Table, error) {
	if t == nil || t.Len() == 0 {
		return nil, fmt.Errorf("resample: %w", ErrInsufficientData)
	}
	at := append([]time.Duration(nil), times...)
	sort.SliceStable(at, func(i, j int) bool { return at[i] < at[j] })

	out := &Table{
		meta:   t.meta,
		schema: t.schema,
		times:  at,
		source: make([]Source, len(at)),
		names:  append([]string(nil), t.names...),
		cols:   make(map[string][]float64, len(t.cols)),
	}

	match := make([]int, len(at))
	for k, tm := range at {
		i := t.Search(tm)
		if i < t.Len() && t.times[i] == tm {
			match[k] = i
			out.source[k] = t.source[i]
		} else {
			match[k] = -1
			out.source[k] = SourceInterpolation
		}
	}

	for _, name := range t.names {
		src := t.cols[name]
		vals := make([]float64, len(at))
		if kind, ok := t.schema.fillable(name); ok {
			s := knownSeries(t.times, src)
			for k, tm := range at {
				vals[k] = s.at(kind, tm)
			}
		} else {
			for k := range at {
				if match[k] >= 0 {
					vals[k] = src[match[k]]
				} else {
					vals[k] = math.NaN()
				}
			}
		}
		out.cols[name] = vals
	}
	return out, nil
}
