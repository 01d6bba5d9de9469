package l3channels

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/laptrace/internal/trace/l1samples"
)

const s = time.Second

func mustTable(t *testing.T, meta Metadata, times []time.Duration, src Source, cols ...Column) *Table {
	t.Helper()
	source := make([]Source, len(times))
	for i := range source {
		source[i] = src
	}
	tbl, err := NewTable(meta, nil, times, source, cols)
	require.NoError(t, err)
	return tbl
}

func col(t *testing.T, tbl *Table, name string) []float64 {
	t.Helper()
	c, ok := tbl.Column(name)
	require.True(t, ok, "missing column %s", name)
	return c
}

func carLap(t *testing.T) *Table {
	t.Helper()
	meta := Metadata{SessionID: "2023-monza-Q", Driver: "16"}
	times := []time.Duration{0, 240 * time.Millisecond, 500 * time.Millisecond, 730 * time.Millisecond, s, 1270 * time.Millisecond}
	return mustTable(t, meta, times, SourceCar,
		Column{Name: Speed, Values: []float64{280, 284, 289, 291, 296, 300}},
		Column{Name: Gear, Values: []float64{7, 7, 7, 8, 8, 8}},
		Column{Name: Throttle, Values: []float64{100, 100, 100, 100, 99, 100}},
	)
}

func posLap(t *testing.T) *Table {
	t.Helper()
	meta := Metadata{SessionID: "2023-monza-Q", Driver: "16"}
	times := []time.Duration{100 * time.Millisecond, 420 * time.Millisecond, 660 * time.Millisecond, 960 * time.Millisecond, 1200 * time.Millisecond}
	return mustTable(t, meta, times, SourcePos,
		Column{Name: X, Values: []float64{0, 25, 44, 68, 87}},
		Column{Name: Y, Values: []float64{0, 1, 3, 6, 9}},
		Column{Name: Status, Values: []float64{1, 1, 1, 1, 1}},
	)
}

func TestMergeOriginalScenario(t *testing.T) {
	t.Parallel()

	a := mustTable(t, Metadata{Driver: "1"}, []time.Duration{0, 2 * s}, SourceCar,
		Column{Name: Speed, Values: []float64{100, 200}})
	b := mustTable(t, Metadata{Driver: "1"}, []time.Duration{s}, SourcePos,
		Column{Name: Gear, Values: []float64{3}})

	merged, stats, err := Merge(a, b, Original)
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{0, s, 2 * s}, merged.Times())
	assert.Equal(t, []float64{100, 150, 200}, col(t, merged, Speed))
	// Leading discrete gap takes the first known value.
	assert.Equal(t, []float64{3, 3, 3}, col(t, merged, Gear))
	assert.Equal(t, []Source{SourceCar, SourcePos, SourceCar}, merged.Sources())
	assert.Equal(t, 3, stats.Filled)
	assert.Equal(t, 0, stats.Paired)
}

func TestMergeFullyPopulated(t *testing.T) {
	t.Parallel()

	merged, stats, err := Merge(carLap(t), posLap(t), Original)
	require.NoError(t, err)

	assert.Equal(t, 11, merged.Len())
	assert.Equal(t, 11, stats.Rows)
	for _, name := range merged.Channels() {
		for i, v := range col(t, merged, name) {
			assert.False(t, math.IsNaN(v), "%s[%d] is NaN", name, i)
		}
	}
	times := merged.Times()
	for i := 1; i < len(times); i++ {
		assert.LessOrEqual(t, times[i-1], times[i])
	}

	// X at 0 is clamped to the first position sample.
	assert.Equal(t, 0.0, merged.Value(X, 0))
	// Speed at 100ms interpolates between 0 (280) and 240ms (284).
	assert.InDelta(t, 280+4*100.0/240.0, merged.Value(Speed, 1), 1e-9)
}

func TestMergeIdempotent(t *testing.T) {
	t.Parallel()

	for _, tbl := range []*Table{carLap(t), posLap(t)} {
		merged, stats, err := Merge(tbl, tbl, Original)
		require.NoError(t, err)
		assert.True(t, merged.Equal(tbl))
		assert.Equal(t, tbl.Len(), stats.Paired)
		assert.Equal(t, 0, stats.Filled)
	}
}

func TestMergeSharedChannelsPreferFirst(t *testing.T) {
	t.Parallel()

	a := mustTable(t, Metadata{Driver: "4"}, []time.Duration{0, 2 * s, 3 * s}, SourcePos,
		Column{Name: X, Values: []float64{0, 20, math.NaN()}})
	b := mustTable(t, Metadata{Driver: "4"}, []time.Duration{0, s, 2 * s, 3 * s}, SourceCar,
		Column{Name: X, Values: []float64{-5, -5, -5, 33}},
		Column{Name: Speed, Values: []float64{100, 110, 120, 130}})

	merged, stats, err := Merge(a, b, Original)
	require.NoError(t, err)
	// a wins where it has a value; b's samples fill the row only b has and
	// a's NaN cell instead of being interpolated over.
	assert.Equal(t, []float64{0, -5, 20, 33}, col(t, merged, X))
	assert.Equal(t, []float64{100, 110, 120, 130}, col(t, merged, Speed))
	assert.Equal(t, []Source{SourcePos, SourceCar, SourcePos, SourcePos}, merged.Sources())
	assert.Equal(t, 3, stats.Paired)
	assert.Equal(t, 0, stats.Filled)
}

func TestMergeKeepsObservedSampleOfSecondTable(t *testing.T) {
	t.Parallel()

	a := mustTable(t, Metadata{Driver: "4"}, []time.Duration{0, 2 * s}, SourcePos,
		Column{Name: X, Values: []float64{0, 20}})
	b := mustTable(t, Metadata{Driver: "4"}, []time.Duration{s}, SourceCar,
		Column{Name: X, Values: []float64{-5}})

	merged, stats, err := Merge(a, b, Original)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, -5, 20}, col(t, merged, X))
	assert.Equal(t, []Source{SourcePos, SourceCar, SourcePos}, merged.Sources())
	assert.Equal(t, 0, stats.Filled)
}

func TestMergeDuplicateTimestamps(t *testing.T) {
	t.Parallel()

	a := mustTable(t, Metadata{Driver: "1"}, []time.Duration{0, s, s, 2 * s}, SourceCar,
		Column{Name: Speed, Values: []float64{100, 110, 130, 140}})
	b := mustTable(t, Metadata{Driver: "1"}, []time.Duration{s}, SourcePos,
		Column{Name: X, Values: []float64{7}})

	merged, stats, err := Merge(a, b, Original)
	require.NoError(t, err)

	// b's row pairs with the first of a's rows at 1s.
	assert.Equal(t, 4, merged.Len())
	assert.Equal(t, 1, stats.Paired)
	assert.Equal(t, 1, stats.DuplicateTimes)
	assert.Equal(t, []float64{100, 110, 130, 140}, col(t, merged, Speed))
	assert.Equal(t, []float64{7, 7, 7, 7}, col(t, merged, X))

	// Resampling onto the duplicated time resolves to the earlier sample.
	at, err := ResampleOnto(merged, []time.Duration{s})
	require.NoError(t, err)
	assert.Equal(t, 110.0, at.Value(Speed, 0))
}

func TestResampleAroundDuplicateTimestamp(t *testing.T) {
	t.Parallel()

	ms := time.Millisecond
	tbl := mustTable(t, Metadata{Driver: "1"}, []time.Duration{0, s, s, 2 * s}, SourceCar,
		Column{Name: Speed, Values: []float64{100, 110, 200, 200}},
		Column{Name: Gear, Values: []float64{3, 4, 5, 5}})

	at, err := ResampleOnto(tbl, []time.Duration{999 * ms, s, 1001 * ms, 1500 * ms})
	require.NoError(t, err)

	// The earlier of the duplicated samples holds on both sides of 1s.
	speed := col(t, at, Speed)
	assert.InDelta(t, 109.99, speed[0], 1e-9)
	assert.Equal(t, 110.0, speed[1])
	assert.InDelta(t, 110.09, speed[2], 1e-9)
	assert.InDelta(t, 155.0, speed[3], 1e-9)
	assert.Equal(t, []float64{3, 4, 4, 4}, col(t, at, Gear))
}

func TestMergeUnknownChannelsNotFilled(t *testing.T) {
	t.Parallel()

	a := mustTable(t, Metadata{Driver: "1"}, []time.Duration{0, 2 * s}, SourceCar,
		Column{Name: "Tyre", Values: []float64{1, 2}})
	b := mustTable(t, Metadata{Driver: "1"}, []time.Duration{s}, SourcePos,
		Column{Name: X, Values: []float64{5}})

	merged, stats, err := Merge(a, b, Original)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tyre"}, stats.Unfilled)
	assert.True(t, math.IsNaN(merged.Value("Tyre", 1)))

	dropped, names := DropUnknown(merged)
	assert.Equal(t, []string{"Tyre"}, names)
	assert.False(t, dropped.Has("Tyre"))
	assert.True(t, merged.Has("Tyre"), "DropUnknown must not modify its input")
}

func TestMergeErrors(t *testing.T) {
	t.Parallel()

	a := mustTable(t, Metadata{Driver: "1"}, []time.Duration{0}, SourceCar, Column{Name: Speed, Values: []float64{1}})
	b := mustTable(t, Metadata{Driver: "11"}, []time.Duration{0}, SourcePos, Column{Name: X, Values: []float64{1}})
	empty := mustTable(t, Metadata{Driver: "1"}, nil, SourcePos)

	_, _, err := Merge(a, b, Original)
	assert.True(t, errors.Is(err, ErrDriverMismatch))

	_, _, err = Merge(a, empty, Original)
	assert.True(t, errors.Is(err, ErrInsufficientData))

	_, _, err = Merge(nil, a, Original)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestMergeFixedRate(t *testing.T) {
	t.Parallel()

	a := mustTable(t, Metadata{Driver: "1"}, []time.Duration{0, 2 * s}, SourceCar,
		Column{Name: Speed, Values: []float64{100, 200}})
	b := mustTable(t, Metadata{Driver: "1"}, []time.Duration{s}, SourcePos,
		Column{Name: Gear, Values: []float64{3}})

	merged, _, err := Merge(a, b, Hz(2))
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{0, 500 * time.Millisecond, s, 1500 * time.Millisecond, 2 * s}, merged.Times())
	assert.Equal(t, []float64{100, 125, 150, 175, 200}, col(t, merged, Speed))
	assert.Equal(t, []float64{3, 3, 3, 3, 3}, col(t, merged, Gear))
	assert.Equal(t, []Source{SourceCar, SourceInterpolation, SourcePos, SourceInterpolation, SourceCar}, merged.Sources())
}

func TestResampleUpThenDown(t *testing.T) {
	t.Parallel()

	merged, _, err := Merge(carLap(t), posLap(t), Original)
	require.NoError(t, err)

	up, err := Resample(merged, Hz(20))
	require.NoError(t, err)
	assert.Equal(t, 26, up.Len())

	down, err := ResampleOnto(up, merged.Times())
	require.NoError(t, err)
	assert.Equal(t, merged.Len(), down.Len())

	for _, tbl := range []*Table{up, down} {
		times := tbl.Times()
		for i := 1; i < len(times); i++ {
			assert.Less(t, times[i-1], times[i])
		}
		for _, name := range tbl.Channels() {
			for i, v := range col(t, tbl, name) {
				assert.False(t, math.IsNaN(v), "%s[%d] is NaN", name, i)
			}
		}
	}

	same, err := Resample(merged, Original)
	require.NoError(t, err)
	assert.Same(t, merged, same)

	_, err = Resample(mustTable(t, Metadata{}, nil, SourceCar), Hz(4))
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestNewTableStableSort(t *testing.T) {
	t.Parallel()

	times := []time.Duration{2 * s, s, s, 0}
	src := []Source{SourceCar, SourcePos, SourceCar, SourcePos}
	tbl, err := NewTable(Metadata{}, nil, times, src, []Column{{Name: Speed, Values: []float64{4, 2, 3, 1}}})
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{0, s, s, 2 * s}, tbl.Times())
	assert.Equal(t, []float64{1, 2, 3, 4}, col(t, tbl, Speed))
	assert.Equal(t, []Source{SourcePos, SourcePos, SourceCar, SourceCar}, tbl.Sources())

	_, err = NewTable(Metadata{}, nil, times, src, []Column{{Name: Speed, Values: []float64{1}}})
	assert.Error(t, err)
	_, err = NewTable(Metadata{}, nil, times, src[:1], nil)
	assert.Error(t, err)
}

func TestBuilder(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2023, 9, 2, 15, 0, 0, 0, time.UTC)
	tbl := NewBuilder(Metadata{Driver: "55", T0: t0}, nil).
		Append(s, SourceCar, map[string]float64{Speed: 200}).
		Append(0, SourcePos, map[string]float64{X: 1}).
		Build()

	want := []float64{math.NaN(), 200}
	if diff := cmp.Diff(want, col(t, tbl, Speed), cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("Speed mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, t0.Add(s), tbl.Date(1))
	assert.Equal(t, []string{Speed, X}, tbl.Channels())

	for range 20 {
		multi := NewBuilder(Metadata{Driver: "55"}, nil).
			Channel(Throttle).
			Append(0, SourceCar, map[string]float64{Speed: 1, Gear: 2, Brake: 0, RPM: 9000, Throttle: 50}).
			Build()
		assert.Equal(t, []string{Throttle, Brake, RPM, Speed, Gear}, multi.Channels())
	}
}

func TestTableImmutability(t *testing.T) {
	t.Parallel()

	tbl := carLap(t)
	speed := col(t, tbl, Speed)
	speed[0] = -1
	assert.Equal(t, 280.0, tbl.Value(Speed, 0))

	with, err := tbl.WithColumn(Distance, make([]float64, tbl.Len()))
	require.NoError(t, err)
	assert.False(t, tbl.Has(Distance))
	assert.True(t, with.Has(Distance))

	_, err = tbl.WithColumn(Distance, []float64{1})
	assert.Error(t, err)

	rows := tbl.Rows(1, 3)
	assert.Equal(t, 2, rows.Len())
	assert.Equal(t, 240*time.Millisecond, rows.Start())
	assert.Equal(t, []time.Duration{0, 260 * time.Millisecond}, rows.Elapsed())
}

func TestSelect(t *testing.T) {
	t.Parallel()

	tbl := carLap(t)
	sel, err := tbl.Select(Throttle, Speed, Throttle)
	require.NoError(t, err)
	assert.Equal(t, []string{Throttle, Speed}, sel.Channels())
	assert.Equal(t, tbl.Len(), sel.Len())
	assert.Equal(t, tbl.Value(Speed, 1), sel.Value(Speed, 1))
	assert.True(t, tbl.Has(Gear))
	assert.False(t, sel.Has(Gear))

	_, err = tbl.Select(X)
	assert.True(t, errors.Is(err, ErrMissingChannel))
}

func TestFromSamples(t *testing.T) {
	t.Parallel()

	meta := Metadata{Driver: "81"}
	pos := FromPositionSamples(meta, nil, []l1samples.PositionSample{
		{Time: s, X: 1, Y: 2, Z: 3, Status: l1samples.StatusOnTrack},
		{Time: 0, X: 0, Y: 0, Z: 0, Status: l1samples.StatusOffTrack},
	})
	assert.Equal(t, []float64{0, 1}, col(t, pos, Status))
	assert.Equal(t, SourcePos, pos.Source(0))

	car := FromCarSamples(meta, nil, []l1samples.CarSample{{Time: 0, Speed: 250, Gear: 7, Brake: true, DRS: 12}})
	assert.Equal(t, 1.0, car.Value(Brake, 0))
	assert.Equal(t, 7.0, car.Value(Gear, 0))
	assert.Equal(t, SourceCar, car.Source(0))
}

func TestStack(t *testing.T) {
	t.Parallel()

	a := mustTable(t, Metadata{Driver: "1"}, []time.Duration{0, s}, SourceCar, Column{Name: Speed, Values: []float64{1, 2}})
	b := mustTable(t, Metadata{Driver: "1"}, []time.Duration{s, 2 * s}, SourceCar, Column{Name: X, Values: []float64{5, 6}})

	st, err := Stack(a, b)
	require.NoError(t, err)
	assert.Equal(t, 4, st.Len())
	want := []float64{1, 2, math.NaN(), math.NaN()}
	if diff := cmp.Diff(want, col(t, st, Speed), cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("Speed mismatch (-want +got):\n%s", diff)
	}

	_, err = Stack(b, a)
	assert.Error(t, err)

	other := mustTable(t, Metadata{Driver: "2"}, []time.Duration{3 * s}, SourceCar)
	_, err = Stack(a, other)
	assert.True(t, errors.Is(err, ErrDriverMismatch))
}

func TestSchema(t *testing.T) {
	t.Parallel()

	base := DefaultSchema()
	k, ok := base.Kind(Gear)
	assert.True(t, ok)
	assert.Equal(t, Discrete, k)

	ext := base.With("Tyre", Excluded)
	_, ok = base.Kind("Tyre")
	assert.False(t, ok, "With must not modify the receiver")
	k, ok = ext.Kind("Tyre")
	assert.True(t, ok)
	assert.Equal(t, "excluded", k.String())
	assert.Contains(t, ext.Names(), "Tyre")
}

func TestParseFrequency(t *testing.T) {
	t.Parallel()

	f, err := ParseFrequency("original")
	require.NoError(t, err)
	assert.True(t, f.IsOriginal())
	assert.Equal(t, "original", f.String())

	f, err = ParseFrequency("10hz")
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, f.Step())
	assert.Equal(t, "10hz", f.String())

	_, err = ParseFrequency("often")
	assert.Error(t, err)

	for _, in := range []string{"nan", "inf", "-inf"} {
		_, err = ParseFrequency(in)
		assert.Error(t, err, in)
	}
}

func TestResampleGridLimit(t *testing.T) {
	t.Parallel()

	long := mustTable(t, Metadata{Driver: "1"}, []time.Duration{0, 2 * time.Hour}, SourceCar,
		Column{Name: Speed, Values: []float64{100, 200}})

	_, err := Resample(long, Hz(1e9))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")

	_, _, err = Merge(long, long, Hz(1e9))
	assert.Error(t, err)

	_, err = Resample(long, Hz(math.NaN()))
	assert.Error(t, err)
	_, err = Resample(long, Hz(math.Inf(1)))
	assert.Error(t, err)

	ok, err := Resample(long, Hz(1))
	require.NoError(t, err)
	assert.Equal(t, 7201, ok.Len())
}
