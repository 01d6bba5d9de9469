package l3channels

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/banshee-data/laptrace/internal/trace/l1samples"
)

// Builder accumulates rows column by column. Channels first seen after
// some rows were appended are back-filled with NaN.
type Builder struct {
	meta   Metadata
	schema *Schema
	times  []time.Duration
	source []Source
	names  []string
	cols   map[string][]float64
}

// NewBuilder starts an empty table. A nil schema selects DefaultSchema.
func NewBuilder(meta Metadata, schema *Schema) *Builder {
	if schema == nil {
		schema = DefaultSchema()
	}
	return &Builder{meta: meta, schema: schema, cols: make(map[string][]float64)}
}

// Channel declares a column so that it exists even if no row sets it.
func (b *Builder) Channel(name string) *Builder {
	if _, ok := b.cols[name]; !ok {
		c := make([]float64, len(b.times))
		for i := range c {
			c[i] = math.NaN()
		}
		b.cols[name] = c
		b.names = append(b.names, name)
	}
	return b
}

// Append adds one row. Channels absent from values are NaN in that row.
// Channels first seen in values are declared in name order.
func (b *Builder) Append(at time.Duration, src Source, values map[string]float64) *Builder {
	var fresh []string
	for name := range values {
		if _, ok := b.cols[name]; !ok {
			fresh = append(fresh, name)
		}
	}
	sort.Strings(fresh)
	for _, name := range fresh {
		b.Channel(name)
	}
	b.times = append(b.times, at)
	b.source = append(b.source, src)
	for _, name := range b.names {
		v, ok := values[name]
		if !ok {
			v = math.NaN()
		}
		b.cols[name] = append(b.cols[name], v)
	}
	return b
}

// Build sorts the rows by time (stable) and returns the table.
func (b *Builder) Build() *Table {
	t, _ := NewTable(b.meta, b.schema, b.times, b.source, b.namedColumns())
	return t
}

func (b *Builder) namedColumns() []Column {
	out := make([]Column, len(b.names))
	for i, name := range b.names {
		out[i] = Column{Name: name, Values: b.cols[name]}
	}
	return out
}

// Column is a named value slice used to construct tables.
type Column struct {
	Name   string
	Values []float64
}

// NewTable builds a table from parallel slices. Rows are stable-sorted by
// time; all inputs are copied. A nil schema selects DefaultSchema.
func NewTable(meta Metadata, schema *Schema, times []time.Duration, source []Source, cols []Column) (*Table, error) {
	if schema == nil {
		schema = DefaultSchema()
	}
	if source != nil && len(source) != len(times) {
		return nil, fmt.Errorf("source has %d values for %d rows", len(source), len(times))
	}

	order := make([]int, len(times))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return times[order[a]] < times[order[b]] })

	t := &Table{
		meta:   meta,
		schema: schema,
		times:  make([]time.Duration, len(times)),
		source: make([]Source, len(times)),
		cols:   make(map[string][]float64, len(cols)),
	}
	for i, j := range order {
		t.times[i] = times[j]
		if source != nil {
			t.source[i] = source[j]
		}
	}
	for _, c := range cols {
		if len(c.Values) != len(times) {
			return nil, fmt.Errorf("column %s has %d values for %d rows", c.Name, len(c.Values), len(times))
		}
		if _, dup := t.cols[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %s", c.Name)
		}
		v := make([]float64, len(times))
		for i, j := range order {
			v[i] = c.Values[j]
		}
		t.cols[c.Name] = v
		t.names = append(t.names, c.Name)
	}
	return t, nil
}

// FromPositionSamples builds a "pos" table with X, Y, Z and Status.
func FromPositionSamples(meta Metadata, schema *Schema, samples []l1samples.PositionSample) *Table {
	n := len(samples)
	times := make([]time.Duration, n)
	source := make([]Source, n)
	xs, ys, zs, st := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	for i, s := range samples {
		times[i] = s.Time
		source[i] = SourcePos
		xs[i], ys[i], zs[i] = s.X, s.Y, s.Z
		st[i] = float64(s.Status)
	}
	t, _ := NewTable(meta, schema, times, source, []Column{
		{Name: X, Values: xs}, {Name: Y, Values: ys}, {Name: Z, Values: zs}, {Name: Status, Values: st},
	})
	return t
}

// FromCarSamples builds a "car" table with the telemetry channels.
func FromCarSamples(meta Metadata, schema *Schema, samples []l1samples.CarSample) *Table {
	n := len(samples)
	times := make([]time.Duration, n)
	source := make([]Source, n)
	speed, rpm, gear := make([]float64, n), make([]float64, n), make([]float64, n)
	throttle, brake, drs := make([]float64, n), make([]float64, n), make([]float64, n)
	for i, s := range samples {
		times[i] = s.Time
		source[i] = SourceCar
		speed[i], rpm[i], gear[i] = s.Speed, s.RPM, float64(s.Gear)
		throttle[i], drs[i] = s.Throttle, float64(s.DRS)
		if s.Brake {
			brake[i] = 1
		}
	}
	t, _ := NewTable(meta, schema, times, source, []Column{
		{Name: Speed, Values: speed}, {Name: RPM, Values: rpm}, {Name: Gear, Values: gear},
		{Name: Throttle, Values: throttle}, {Name: Brake, Values: brake}, {Name: DRS, Values: drs},
	})
	return t
}
