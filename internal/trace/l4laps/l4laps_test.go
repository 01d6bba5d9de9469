package l4laps

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/laptrace/internal/trace/l1samples"
	"github.com/banshee-data/laptrace/internal/trace/l3channels"
)

const s = time.Second

// ramp returns a car table with rows every second from 0 to n-1 seconds
// and Speed = 10 * seconds.
func ramp(t *testing.T, driver string, n int) *l3channels.Table {
	t.Helper()
	b := l3channels.NewBuilder(l3channels.Metadata{Driver: driver}, nil)
	for i := 0; i < n; i++ {
		b.Append(time.Duration(i)*s, l3channels.SourceCar, map[string]float64{
			l3channels.Speed: float64(10 * i),
			l3channels.Gear:  float64(1 + i/2),
		})
	}
	return b.Build()
}

func speeds(t *testing.T, tbl *l3channels.Table) []float64 {
	t.Helper()
	c, ok := tbl.Column(l3channels.Speed)
	require.True(t, ok)
	return c
}

func TestSliceByTime(t *testing.T) {
	t.Parallel()
	tbl := ramp(t, "1", 5)

	t.Run("interpolated edges land exactly on the bounds", func(t *testing.T) {
		t.Parallel()
		out, err := SliceByTime(tbl, 500*time.Millisecond, 3500*time.Millisecond, SliceOptions{InterpolateEdges: true})
		require.NoError(t, err)

		assert.Equal(t, 500*time.Millisecond, out.Start())
		assert.Equal(t, 3500*time.Millisecond, out.End())
		assert.Equal(t, []float64{5, 10, 20, 30, 35}, speeds(t, out))
		assert.Equal(t, l3channels.SourceInterpolation, out.Source(0))
		assert.Equal(t, l3channels.SourceCar, out.Source(1))
		assert.Equal(t, l3channels.SourceInterpolation, out.Source(4))
		// Gear holds the previous value at the synthetic rows.
		assert.Equal(t, 1.0, out.Value(l3channels.Gear, 0))
		assert.Equal(t, 2.0, out.Value(l3channels.Gear, 4))
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		t.Parallel()
		out, err := SliceByTime(tbl, s, 3*s, SliceOptions{InterpolateEdges: true})
		require.NoError(t, err)
		assert.Equal(t, []time.Duration{s, 2 * s, 3 * s}, out.Times())
	})

	t.Run("without interpolation only existing rows", func(t *testing.T) {
		t.Parallel()
		out, err := SliceByTime(tbl, 500*time.Millisecond, 3500*time.Millisecond, SliceOptions{})
		require.NoError(t, err)
		assert.Equal(t, []float64{10, 20, 30}, speeds(t, out))
	})

	t.Run("padding", func(t *testing.T) {
		t.Parallel()
		out, err := SliceByTime(tbl, 2*s, 2*s, SliceOptions{Pad: 1})
		require.NoError(t, err)
		assert.Equal(t, []float64{10, 20, 30}, speeds(t, out))

		out, err = SliceByTime(tbl, 2*s, 2*s, SliceOptions{Pad: 5, PadSide: PadAfter})
		require.NoError(t, err)
		assert.Equal(t, []float64{20, 30, 40}, speeds(t, out))
	})

	t.Run("single synthetic row for a point range", func(t *testing.T) {
		t.Parallel()
		out, err := SliceByTime(tbl, 1500*time.Millisecond, 1500*time.Millisecond, SliceOptions{InterpolateEdges: true})
		require.NoError(t, err)
		assert.Equal(t, []float64{15}, speeds(t, out))
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()
		_, err := SliceByTime(tbl, 3*s, s, SliceOptions{})
		assert.True(t, errors.Is(err, ErrEmptyLap))

		_, err = SliceByTime(tbl, 10*s, 11*s, SliceOptions{InterpolateEdges: true})
		assert.True(t, errors.Is(err, l3channels.ErrInsufficientData))

		_, err = SliceByTime(nil, 0, s, SliceOptions{})
		assert.True(t, errors.Is(err, l3channels.ErrInsufficientData))
	})
}

func TestLapRoundTrip(t *testing.T) {
	t.Parallel()
	tbl := ramp(t, "44", 8)

	cases := []struct {
		name   string
		l1, l2 Lap
	}{
		{"boundary on a sample", Lap{Driver: "44", Number: 1, Start: 0, End: 3 * s}, Lap{Driver: "44", Number: 2, Start: 3 * s, End: 7 * s}},
		{"boundary between samples", Lap{Driver: "44", Number: 1, Start: 500 * time.Millisecond, End: 2500 * time.Millisecond}, Lap{Driver: "44", Number: 2, Start: 2500 * time.Millisecond, End: 6200 * time.Millisecond}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			a, err := SliceByLap(tbl, tc.l1, SliceOptions{})
			require.NoError(t, err)
			b, err := SliceByLap(tbl, tc.l2, SliceOptions{})
			require.NoError(t, err)
			joined, err := Concat(a, b)
			require.NoError(t, err)

			whole, err := SliceByTime(tbl, tc.l1.Start, tc.l2.End, SliceOptions{})
			require.NoError(t, err)
			assert.True(t, joined.Equal(whole), "concatenated laps %v != union slice %v", joined.Times(), whole.Times())

			both, err := SliceByLaps(tbl, []Lap{tc.l2, tc.l1}, SliceOptions{})
			require.NoError(t, err)
			assert.True(t, both.Equal(whole))

			// With edges the multi-lap slice still equals the per-lap concatenation.
			opts := SliceOptions{InterpolateEdges: true}
			ea, err := SliceByLap(tbl, tc.l1, opts)
			require.NoError(t, err)
			eb, err := SliceByLap(tbl, tc.l2, opts)
			require.NoError(t, err)
			ejoined, err := Concat(ea, eb)
			require.NoError(t, err)
			eboth, err := SliceByLaps(tbl, []Lap{tc.l1, tc.l2}, opts)
			require.NoError(t, err)
			assert.True(t, eboth.Equal(ejoined))

			times := eboth.Times()
			for i := 1; i < len(times); i++ {
				assert.Less(t, times[i-1], times[i], "no duplicate boundary row")
			}
			assert.Equal(t, tc.l1.Start, eboth.Start())
			assert.Equal(t, tc.l2.End, eboth.End())
		})
	}
}

func TestSliceByLapsPadding(t *testing.T) {
	t.Parallel()
	tbl := ramp(t, "1", 10)
	laps := []Lap{
		{Driver: "1", Number: 3, Start: 3 * s, End: 5 * s},
		{Driver: "1", Number: 4, Start: 5 * s, End: 6 * s},
	}
	out, err := SliceByLaps(tbl, laps, SliceOptions{Pad: 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30, 40, 50, 60, 70, 80}, speeds(t, out))
}

func TestSliceDriverChecks(t *testing.T) {
	t.Parallel()
	tbl := ramp(t, "1", 5)

	_, err := SliceByLap(tbl, Lap{Driver: "22", Start: 0, End: s}, SliceOptions{})
	assert.True(t, errors.Is(err, l3channels.ErrDriverMismatch))

	_, err = SliceByLaps(tbl, []Lap{{Driver: "1", End: s}, {Driver: "2", Start: s, End: 2 * s}}, SliceOptions{})
	assert.True(t, errors.Is(err, l3channels.ErrDriverMismatch))

	_, err = SliceByLaps(tbl, nil, SliceOptions{})
	assert.True(t, errors.Is(err, l3channels.ErrInsufficientData))
}

func TestConcatRejectsOverlap(t *testing.T) {
	t.Parallel()
	tbl := ramp(t, "1", 5)

	a, err := SliceByTime(tbl, 0, 3*s, SliceOptions{})
	require.NoError(t, err)
	b, err := SliceByTime(tbl, 2*s, 4*s, SliceOptions{})
	require.NoError(t, err)

	_, err = Concat(a, b)
	assert.Error(t, err)

	same, err := Concat(a, nil, a.Rows(a.Len()-1, a.Len()))
	require.NoError(t, err)
	assert.True(t, same.Equal(a), "a repeated boundary row is dropped")
}

func TestSliceByMask(t *testing.T) {
	t.Parallel()
	tbl := ramp(t, "1", 6)

	out, err := SliceByMask(tbl, []bool{false, false, true, false, false, false}, 1, PadBoth)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30}, speeds(t, out))

	out, err = SliceByMask(tbl, []bool{true, false, false, false, false, true}, 0, PadBoth)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 50}, speeds(t, out))

	_, err = SliceByMask(tbl, []bool{true}, 0, PadBoth)
	assert.Error(t, err)

	_, err = SliceByMask(tbl, make([]bool, 6), 0, PadBoth)
	assert.True(t, errors.Is(err, l3channels.ErrInsufficientData))
}

func TestFromRecords(t *testing.T) {
	t.Parallel()

	d := func(v time.Duration) *time.Duration { return &v }
	n := func(v int) *int { return &v }

	records := []l1samples.LapRecord{
		{Driver: "1", LapNumber: n(2), Time: d(190 * s), LapTime: d(92 * s)},
		{Driver: "1", LapNumber: n(1), Time: d(98 * s), LapTime: d(98 * s), PitOutTime: d(0)},
		{Driver: "1", LapNumber: n(3), Time: nil, LapTime: d(91 * s)},
		{Driver: "11", LapNumber: nil, Time: d(200 * s), LapTime: d(95 * s)},
		{Driver: "1", LapNumber: n(4), Time: d(290 * s), LapTime: d(100 * s), PitInTime: d(289 * s)},
	}

	laps, stats := FromRecords(records)
	require.Len(t, laps, 4)
	assert.Equal(t, LapStats{Records: 5, Laps: 4, MissingTime: 1, Unnumbered: 1, Pit: 2}, stats)

	assert.Equal(t, Lap{Driver: "1", Number: 1, Start: 0, End: 98 * s, PitOut: true}, laps[0])
	assert.Equal(t, Lap{Driver: "1", Number: 2, Start: 98 * s, End: 190 * s}, laps[1])
	assert.Equal(t, "11", laps[3].Driver)

	clean := Clean(laps)
	require.Len(t, clean, 1)
	assert.Equal(t, 2, clean[0].Number)

	assert.Len(t, ForDriver(laps, "11"), 1)

	fastest, ok := Fastest(ForDriver(laps, "1"))
	require.True(t, ok)
	assert.Equal(t, 2, fastest.Number)
	_, ok = Fastest(nil)
	assert.False(t, ok)
}
