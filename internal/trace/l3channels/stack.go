package l3channels

import (
	"fmt"
	"math"
	"time"
)

// Stack appends the rows of tables in order. Columns are the union of all
// inputs (NaN where a table lacks one); metadata and schema come from the
// first table. Each table must start no earlier than the previous one ends.
func Stack(tables ...*Table) (*Table, error) {
	var parts []*Table
	for _, t := range tables {
		if t != nil && t.Len() > 0 {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("stack: %w", ErrInsufficientData)
	}

	first := parts[0]
	var names []string
	seen := make(map[string]bool)
	rows := 0
	for k, p := range parts {
		if p.meta.Driver != first.meta.Driver {
			return nil, fmt.Errorf("stack driver %s with driver %s: %w", first.meta.Driver, p.meta.Driver, ErrDriverMismatch)
		}
		if k > 0 && p.Start() < parts[k-1].End() {
			return nil, fmt.Errorf("stack: table %d starts at %v before previous end %v", k, p.Start(), parts[k-1].End())
		}
		for _, name := range p.names {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
		rows += p.Len()
	}

	out := &Table{
		meta:   first.meta,
		schema: first.schema,
		times:  make([]time.Duration, 0, rows),
		source: make([]Source, 0, rows),
		names:  names,
		cols:   make(map[string][]float64, len(names)),
	}
	for _, name := range names {
		out.cols[name] = make([]float64, 0, rows)
	}
	for _, p := range parts {
		out.times = append(out.times, p.times...)
		out.source = append(out.source, p.source...)
		for _, name := range names {
			if c, ok := p.cols[name]; ok {
				out.cols[name] = append(out.cols[name], c...)
				continue
			}
			for range p.times {
				out.cols[name] = append(out.cols[name], math.NaN())
			}
		}
	}
	return out, nil
}
