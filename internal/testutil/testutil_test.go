package testutil

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/laptrace/internal/trace/l3channels"
)

func TestSeconds(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []time.Duration{0, time.Second, 2 * time.Second}, Seconds(3))
	assert.Empty(t, Seconds(0))
}

func TestTable(t *testing.T) {
	t.Parallel()

	tbl := Table(t, l3channels.Metadata{Driver: "4"}, Seconds(2),
		l3channels.Column{Name: l3channels.Speed, Values: []float64{1, 2}})
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, "4", tbl.Meta().Driver)
	assert.Equal(t, l3channels.SourceCar, tbl.Source(1))
}

func TestCircleTrack(t *testing.T) {
	t.Parallel()

	track := CircleTrack(t, "s", 36, 50)
	assert.Equal(t, 36, track.Len())
	chord := 2 * 50 * math.Sin(math.Pi/36)
	assert.InDelta(t, 35*chord, track.Length(), 1e-9)

	p := CirclePoints(4, 1)
	assert.InDelta(t, 0, p[1].X, 1e-12)
	assert.InDelta(t, 1, p[1].Y, 1e-12)
}
