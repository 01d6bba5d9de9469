package l4laps

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/banshee-data/laptrace/internal/trace/l3channels"
)

// ErrEmptyLap is returned for a time range that ends before it starts.
var ErrEmptyLap = errors.New("empty lap")

// PadSide selects where SliceOptions.Pad adds rows.
type PadSide int

const (
	PadBoth PadSide = iota
	PadBefore
	PadAfter
)

// SliceOptions tunes a slice.
type SliceOptions struct {
	// InterpolateEdges inserts synthetic rows so that the slice starts and
	// ends exactly on the requested times, when those times fall inside
	// the table but on no existing row.
	InterpolateEdges bool
	// Pad extends the selection by this many original rows.
	Pad     int
	PadSide PadSide
}

func (o SliceOptions) padding() (before, after int) {
	if o.Pad <= 0 {
		return 0, 0
	}
	switch o.PadSide {
	case PadBefore:
		return o.Pad, 0
	case PadAfter:
		return 0, o.Pad
	default:
		return o.Pad, o.Pad
	}
}

// SliceByTime returns the rows with start <= Time <= end.
func SliceByTime(t *l3channels.Table, start, end time.Duration, opts SliceOptions) (*l3channels.Table, error) {
	if end < start {
		return nil, fmt.Errorf("slice [%v, %v]: %w", start, end, ErrEmptyLap)
	}
	if t == nil || t.Len() == 0 {
		return nil, fmt.Errorf("slice [%v, %v]: %w", start, end, l3channels.ErrInsufficientData)
	}
	driver := t.Meta().Driver

	lo := t.Search(start)
	hi := t.Search(end + 1)

	var head, tail *l3channels.Table
	if opts.InterpolateEdges {
		var err error
		if inside(t, start) && (lo == t.Len() || t.Time(lo) != start) {
			if head, err = l3channels.ResampleOnto(t, []time.Duration{start}); err != nil {
				return nil, fmt.Errorf("slice %s at %v: %w", driver, start, err)
			}
		}
		if end != start && inside(t, end) && (hi == 0 || t.Time(hi-1) != end) {
			if tail, err = l3channels.ResampleOnto(t, []time.Duration{end}); err != nil {
				return nil, fmt.Errorf("slice %s at %v: %w", driver, end, err)
			}
		}
	}

	before, after := opts.padding()
	out, err := l3channels.Stack(
		t.Rows(max(lo-before, 0), lo),
		head,
		t.Rows(lo, hi),
		tail,
		t.Rows(hi, min(hi+after, t.Len())),
	)
	if err != nil {
		return nil, fmt.Errorf("slice %s [%v, %v]: %w", driver, start, end, err)
	}
	return out, nil
}

func inside(t *l3channels.Table, at time.Duration) bool {
	return at >= t.Start() && at <= t.End()
}

// SliceByMask returns the rows where mask is set, each selected run
// extended by pad rows on the chosen side.
func SliceByMask(t *l3channels.Table, mask []bool, pad int, side PadSide) (*l3channels.Table, error) {
	if t == nil || len(mask) != t.Len() {
		return nil, fmt.Errorf("mask has %d entries for %d rows", len(mask), tableLen(t))
	}
	before, after := SliceOptions{Pad: pad, PadSide: side}.padding()

	keep := make([]bool, len(mask))
	for i, m := range mask {
		if !m {
			continue
		}
		for k := max(i-before, 0); k <= min(i+after, len(mask)-1); k++ {
			keep[k] = true
		}
	}
	var rows []int
	for i, k := range keep {
		if k {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("mask selects no rows: %w", l3channels.ErrInsufficientData)
	}
	return t.Pick(rows), nil
}

func tableLen(t *l3channels.Table) int {
	if t == nil {
		return 0
	}
	return t.Len()
}

// SliceByLap returns the rows of one lap. The table and the lap must
// belong to the same driver when both name one.
func SliceByLap(t *l3channels.Table, lap Lap, opts SliceOptions) (*l3channels.Table, error) {
	if t != nil && t.Meta().Driver != "" && lap.Driver != "" && t.Meta().Driver != lap.Driver {
		return nil, fmt.Errorf("slice %s with table of driver %s: %w", lap, t.Meta().Driver, l3channels.ErrDriverMismatch)
	}
	out, err := SliceByTime(t, lap.Start, lap.End, opts)
	if err != nil {
		return nil, fmt.Errorf("slice lap %d: %w", lap.Number, err)
	}
	return out, nil
}

// SliceByLaps slices each lap and concatenates the results in start order,
// so the result equals the concatenation of the per-lap slices. Rows
// between non-adjacent laps are not included. Padding applies to the
// outer edges only.
func SliceByLaps(t *l3channels.Table, laps []Lap, opts SliceOptions) (*l3channels.Table, error) {
	if len(laps) == 0 {
		return nil, fmt.Errorf("slice laps: no laps: %w", l3channels.ErrInsufficientData)
	}
	sorted := append([]Lap(nil), laps...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for _, l := range sorted[1:] {
		if l.Driver != sorted[0].Driver {
			return nil, fmt.Errorf("slice laps of drivers %s and %s: %w", sorted[0].Driver, l.Driver, l3channels.ErrDriverMismatch)
		}
	}

	inner := opts
	inner.Pad = 0
	parts := make([]*l3channels.Table, 0, len(sorted)+2)
	for _, l := range sorted {
		p, err := SliceByLap(t, l, inner)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}

	before, after := opts.padding()
	if before > 0 {
		lo := t.Search(sorted[0].Start)
		parts = append([]*l3channels.Table{t.Rows(max(lo-before, 0), lo)}, parts...)
	}
	if after > 0 {
		hi := t.Search(sorted[len(sorted)-1].End + 1)
		parts = append(parts, t.Rows(hi, min(hi+after, t.Len())))
	}
	return Concat(parts...)
}

// Concat joins adjacent slices in order. Rows a slice repeats from the end
// of the previous one (same boundary time) are dropped; a slice starting
// before the previous one ends is rejected.
func Concat(tables ...*l3channels.Table) (*l3channels.Table, error) {
	var parts []*l3channels.Table
	for _, t := range tables {
		if t == nil || t.Len() == 0 {
			continue
		}
		if len(parts) > 0 {
			prev := parts[len(parts)-1]
			if t.Start() < prev.End() {
				return nil, fmt.Errorf("concat: slice starting at %v overlaps previous end %v", t.Start(), prev.End())
			}
			if t.Start() == prev.End() {
				drop := min(run(prev, prev.End(), true), run(t, t.Start(), false))
				t = t.Rows(drop, t.Len())
				if t.Len() == 0 {
					continue
				}
			}
		}
		parts = append(parts, t)
	}
	out, err := l3channels.Stack(parts...)
	if err != nil {
		return nil, fmt.Errorf("concat: %w", err)
	}
	return out, nil
}

// run counts the rows at time at from the end (fromEnd) or the start of t.
func run(t *l3channels.Table, at time.Duration, fromEnd bool) int {
	n := 0
	for k := 0; k < t.Len(); k++ {
		i := k
		if fromEnd {
			i = t.Len() - 1 - k
		}
		if t.Time(i) != at {
			break
		}
		n++
	}
	return n
}
