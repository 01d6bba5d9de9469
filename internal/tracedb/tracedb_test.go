package tracedb

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/laptrace/internal/timeutil"
	"github.com/banshee-data/laptrace/internal/trace/l1samples"
	"github.com/banshee-data/laptrace/internal/trace/l2track"
	"github.com/banshee-data/laptrace/internal/trace/pipeline"
)

func setupTestDB(t *testing.T) (*DB, *timeutil.MockClock) {
	t.Helper()
	clock := timeutil.NewMockClock(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	db, err := OpenWithClock(filepath.Join(t.TempDir(), "trace.db"), clock)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.MigrateUp())
	return db, clock
}

func squareTrack(t *testing.T, session string) *l2track.OrderedTrack {
	t.Helper()
	var pts []l1samples.TrackPoint
	for i := 0; i < 40; i++ {
		side, k := i/10, float64(i%10)*10
		p := l1samples.TrackPoint{}
		switch side {
		case 0:
			p.X, p.Y = k, 0
		case 1:
			p.X, p.Y = 100, k
		case 2:
			p.X, p.Y = 100-k, 100
		default:
			p.X, p.Y = 0, 100-k
		}
		pts = append(pts, p)
	}
	pts[3].Date = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	cloud := l1samples.NewPointCloud(append(pts, l1samples.TrackPoint{X: 500, Y: 500}))
	track, err := l2track.BuildTour(cloud, l2track.TourConfig{OutlierThreshold: 200, SessionID: session})
	require.NoError(t, err)
	return track
}

func TestMigrations(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	latest, err := LatestMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), latest)

	v, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, latest, v)
	assert.False(t, dirty)

	require.NoError(t, db.MigrateUp(), "second run is a no-op")

	require.NoError(t, db.MigrateDown())
	v, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	_, err = db.Exec(`SELECT COUNT(*) FROM lap_summaries`)
	assert.Error(t, err, "lap_summaries dropped")
}

func TestSaveAndLoadTrack(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	track := squareTrack(t, "2026-imola-Q")
	require.Len(t, track.Excluded(), 1)

	rec, err := db.SaveTrack(track, "Imola")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.TrackID)
	assert.Equal(t, "2026-imola-Q", rec.SessionID)
	assert.Equal(t, 40, rec.Points)
	assert.Equal(t, 1, rec.Excluded)
	assert.Equal(t, 200.0, rec.Threshold)
	assert.Equal(t, "squared_euclidean", rec.Metric)

	loaded, err := db.LoadTrack(rec.TrackID)
	require.NoError(t, err)
	assert.Equal(t, track.SessionID(), loaded.SessionID())
	assert.Equal(t, track.Len(), loaded.Len())
	assert.Equal(t, track.Excluded(), loaded.Excluded())
	assert.InDeltaSlice(t, track.Distances(), loaded.Distances(), 1e-9)
	for i, p := range track.Points() {
		assert.True(t, p.SameXY(loaded.Point(i)), "point %d", i)
		assert.True(t, p.Date.Equal(loaded.Point(i).Date), "date %d", i)
	}

	got, err := db.Track(rec.TrackID)
	require.NoError(t, err)
	assert.Equal(t, "Imola", got.Name)
	assert.InDelta(t, track.Length(), got.Length, 1e-9)
}

func TestSaveTrackWithoutThreshold(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	track, err := l2track.NewOrderedTrack("s", []l1samples.TrackPoint{{X: 0}, {X: 3, Y: 4}}, nil)
	require.NoError(t, err)

	rec, err := db.SaveTrack(track, "")
	require.NoError(t, err)
	got, err := db.Track(rec.TrackID)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got.Threshold))
	assert.Equal(t, 5.0, got.Length)

	_, err = db.SaveTrack(nil, "")
	assert.True(t, errors.Is(err, l1samples.ErrInsufficientData))
}

func TestListAndLatestTracks(t *testing.T) {
	t.Parallel()

	db, clock := setupTestDB(t)
	first, err := db.SaveTrack(squareTrack(t, "A"), "first")
	require.NoError(t, err)
	clock.Advance(time.Minute)
	second, err := db.SaveTrack(squareTrack(t, "A"), "second")
	require.NoError(t, err)
	clock.Advance(time.Minute)
	other, err := db.SaveTrack(squareTrack(t, "B"), "other")
	require.NoError(t, err)

	all, err := db.ListTracks()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{other.TrackID, second.TrackID, first.TrackID},
		[]string{all[0].TrackID, all[1].TrackID, all[2].TrackID})
	assert.True(t, clock.Now().Equal(all[0].CreatedAt))

	latest, err := db.LatestTrack("A")
	require.NoError(t, err)
	assert.Equal(t, second.TrackID, latest.TrackID)

	_, err = db.LatestTrack("C")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, db.DeleteTrack(second.TrackID))
	latest, err = db.LatestTrack("A")
	require.NoError(t, err)
	assert.Equal(t, first.TrackID, latest.TrackID)

	_, err = db.LoadTrack(second.TrackID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(db.DeleteTrack(second.TrackID), ErrNotFound))

	var points int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM track_points WHERE track_id = ?`, second.TrackID).Scan(&points))
	assert.Zero(t, points)
}

func TestLapSummaries(t *testing.T) {
	t.Parallel()

	db, clock := setupTestDB(t)
	run1 := []pipeline.LapSummary{
		{SessionID: "S", Driver: "44", LapNumber: 2, Start: 90 * time.Second, LapTime: 88 * time.Second, Distance: 5012, MaxSpeed: 321, MeanSpeed: 204, Samples: 400},
		{SessionID: "S", Driver: "44", LapNumber: 1, Start: 0, LapTime: 90 * time.Second, Distance: 5020, MaxSpeed: 318, MeanSpeed: 200, Samples: 410, Fastest: false},
		{SessionID: "S", Driver: "1", LapNumber: 1, Start: time.Second, LapTime: 87 * time.Second, Distance: 5001, MaxSpeed: math.NaN(), MeanSpeed: math.NaN(), Samples: 3, Fastest: true},
	}
	require.NoError(t, db.SaveLapSummaries("run-1", run1))
	require.NoError(t, db.SaveLapSummaries("run-x", nil))

	got, err := db.LapSummaries("S")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "1", got[0].Driver)
	assert.True(t, got[0].Fastest)
	assert.True(t, math.IsNaN(got[0].MaxSpeed))
	assert.Equal(t, run1[1], got[1])
	assert.Equal(t, run1[0], got[2])

	clock.Advance(time.Hour)
	require.NoError(t, db.SaveLapSummaries("run-2", run1[:1]))
	got, err = db.LapSummaries("S")
	require.NoError(t, err)
	require.Len(t, got, 1, "only the latest run")

	got, err = db.LapSummaries("unknown")
	require.NoError(t, err)
	assert.Empty(t, got)
}
