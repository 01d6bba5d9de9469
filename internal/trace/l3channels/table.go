package l3channels

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	// ErrInsufficientData is returned for empty input tables.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDriverMismatch is returned when tables of different drivers are combined.
	ErrDriverMismatch = errors.New("driver mismatch")
	// ErrMissingChannel is returned when a required channel is absent.
	ErrMissingChannel = errors.New("missing channel")
)

// Source tags which stream contributed a row.
type Source string

const (
	SourceCar           Source = "car"
	SourcePos           Source = "pos"
	SourceInterpolation Source = "interpolation"
)

// Metadata travels with every table through every transform.
type Metadata struct {
	SessionID string
	Driver    string
	// T0 is the absolute start of the session; Date = T0 + Time.
	T0 time.Time
}

// Table is an immutable, time-indexed set of channel columns. Rows are
// sorted by session-relative Time; equal times keep their input order.
// Missing values are NaN.
type Table struct {
	meta   Metadata
	schema *Schema
	times  []time.Duration
	source []Source
	names  []string
	cols   map[string][]float64
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.times) }

// Meta returns the table metadata.
func (t *Table) Meta() Metadata { return t.meta }

// Schema returns the channel schema the table was built with.
func (t *Table) Schema() *Schema { return t.schema }

// Time returns the session time of row i.
func (t *Table) Time(i int) time.Duration { return t.times[i] }

// Times returns a copy of the row times.
func (t *Table) Times() []time.Duration { return append([]time.Duration(nil), t.times...) }

// Date returns the absolute time of row i, zero when T0 is unknown.
func (t *Table) Date(i int) time.Time {
	if t.meta.T0.IsZero() {
		return time.Time{}
	}
	return t.meta.T0.Add(t.times[i])
}

// Source returns the provenance of row i.
func (t *Table) Source(i int) Source { return t.source[i] }

// Sources returns a copy of the per-row provenance.
func (t *Table) Sources() []Source { return append([]Source(nil), t.source...) }

// Channels returns the column names in table order.
func (t *Table) Channels() []string { return append([]string(nil), t.names...) }

// Has reports whether the table has a column called name.
func (t *Table) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]float64, bool) {
	c, ok := t.cols[name]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), c...), true
}

// Value returns the value of channel name at row i, NaN if the column is
// absent.
func (t *Table) Value(name string, i int) float64 {
	c, ok := t.cols[name]
	if !ok {
		return math.NaN()
	}
	return c[i]
}

// Start returns the first row time. The table must not be empty.
func (t *Table) Start() time.Duration { return t.times[0] }

// End returns the last row time. The table must not be empty.
func (t *Table) End() time.Duration { return t.times[len(t.times)-1] }

// Elapsed returns row times relative to the first row.
func (t *Table) Elapsed() []time.Duration {
	out := make([]time.Duration, len(t.times))
	for i, tm := range t.times {
		out[i] = tm - t.times[0]
	}
	return out
}

// Search returns the index of the first row with Time >= at.
func (t *Table) Search(at time.Duration) int {
	return sort.Search(len(t.times), func(i int) bool { return t.times[i] >= at })
}

// Rows returns rows [lo, hi) as a new table.
func (t *Table) Rows(lo, hi int) *Table {
	n := &Table{
		meta:   t.meta,
		schema: t.schema,
		times:  append([]time.Duration(nil), t.times[lo:hi]...),
		source: append([]Source(nil), t.source[lo:hi]...),
		names:  append([]string(nil), t.names...),
		cols:   make(map[string][]float64, len(t.cols)),
	}
	for name, c := range t.cols {
		n.cols[name] = append([]float64(nil), c[lo:hi]...)
	}
	return n
}

// Pick returns the given rows, in the given order, as a new table.
func (t *Table) Pick(rows []int) *Table {
	n := &Table{
		meta:   t.meta,
		schema: t.schema,
		times:  make([]time.Duration, len(rows)),
		source: make([]Source, len(rows)),
		names:  append([]string(nil), t.names...),
		cols:   make(map[string][]float64, len(t.cols)),
	}
	for k, i := range rows {
		n.times[k] = t.times[i]
		n.source[k] = t.source[i]
	}
	for name, c := range t.cols {
		v := make([]float64, len(rows))
		for k, i := range rows {
			v[k] = c[i]
		}
		n.cols[name] = v
	}
	return n
}

// WithColumn returns a copy of the table with name set to values,
// replacing an existing column of that name.
func (t *Table) WithColumn(name string, values []float64) (*Table, error) {
	if len(values) != len(t.times) {
		return nil, fmt.Errorf("column %s has %d values for %d rows", name, len(values), len(t.times))
	}
	n := t.shallow()
	if _, ok := n.cols[name]; !ok {
		n.names = append(n.names, name)
	}
	n.cols[name] = append([]float64(nil), values...)
	return n, nil
}

// Without returns a copy of the table without the named columns.
func (t *Table) Without(names ...string) *Table {
	n := t.shallow()
	for _, name := range names {
		delete(n.cols, name)
	}
	kept := n.names[:0]
	for _, name := range n.names {
		if _, ok := n.cols[name]; ok {
			kept = append(kept, name)
		}
	}
	n.names = kept
	return n
}

// Select returns a copy of the table holding only the named columns, in the
// order given.
func (t *Table) Select(names ...string) (*Table, error) {
	n := t.shallow()
	n.names = make([]string, 0, len(names))
	n.cols = make(map[string][]float64, len(names))
	for _, name := range names {
		v, ok := t.cols[name]
		if !ok {
			return nil, fmt.Errorf("select %s: %w", name, ErrMissingChannel)
		}
		if _, dup := n.cols[name]; dup {
			continue
		}
		n.names = append(n.names, name)
		n.cols[name] = v
	}
	return n, nil
}

// WithMeta returns a copy of the table carrying meta.
func (t *Table) WithMeta(meta Metadata) *Table {
	n := t.shallow()
	n.meta = meta
	return n
}

// WithSchema returns a copy of the table using schema.
func (t *Table) WithSchema(schema *Schema) *Table {
	n := t.shallow()
	n.schema = schema
	return n
}

// shallow copies the table header; column slices are shared and must be
// replaced, not written to.
func (t *Table) shallow() *Table {
	n := &Table{
		meta:   t.meta,
		schema: t.schema,
		times:  t.times,
		source: t.source,
		names:  append([]string(nil), t.names...),
		cols:   make(map[string][]float64, len(t.cols)),
	}
	for k, v := range t.cols {
		n.cols[k] = v
	}
	return n
}

// Equal reports whether both tables hold the same rows and columns,
// treating NaN as equal to NaN. Metadata is not compared.
func (t *Table) Equal(o *Table) bool {
	if t.Len() != o.Len() || len(t.cols) != len(o.cols) {
		return false
	}
	for i := range t.times {
		if t.times[i] != o.times[i] || t.source[i] != o.source[i] {
			return false
		}
	}
	for name, c := range t.cols {
		oc, ok := o.cols[name]
		if !ok {
			return false
		}
		for i := range c {
			if c[i] != oc[i] && !(math.IsNaN(c[i]) && math.IsNaN(oc[i])) {
				return false
			}
		}
	}
	return true
}

// DropUnknown returns a copy of the table without columns the schema does
// not know, together with the dropped names.
func DropUnknown(t *Table) (*Table, []string) {
	var dropped []string
	for _, name := range t.names {
		if _, ok := t.schema.Kind(name); !ok {
			dropped = append(dropped, name)
		}
	}
	if len(dropped) == 0 {
		return t, nil
	}
	return t.Without(dropped...), dropped
}
