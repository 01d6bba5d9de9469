package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/laptrace/internal/config"
	"github.com/banshee-data/laptrace/internal/monitoring"
	"github.com/banshee-data/laptrace/internal/timeutil"
	"github.com/banshee-data/laptrace/internal/trace/l1samples"
	"github.com/banshee-data/laptrace/internal/trace/l2track"
	"github.com/banshee-data/laptrace/internal/trace/l3channels"
	"github.com/banshee-data/laptrace/internal/trace/l4laps"
	"github.com/banshee-data/laptrace/internal/trace/l5distance"
)

// Runner processes sessions with one set of tuning parameters.
type Runner struct {
	Tuning *config.TuningConfig
	Clock  timeutil.Clock
	// Track, when set, is used instead of reconstructing the map from the
	// session's position data.
	Track *l2track.OrderedTrack
	// Drivers, when set, restricts processing to these drivers. DriverAhead
	// then only considers the selected cars.
	Drivers []string
}

// NewRunner returns a Runner using cfg, or the defaults when cfg is nil.
func NewRunner(cfg *config.TuningConfig) *Runner {
	if cfg == nil {
		cfg = config.DefaultTuningConfig()
	}
	return &Runner{Tuning: cfg, Clock: timeutil.RealClock{}}
}

// Run processes session with cfg. See Runner.Run.
func Run(ctx context.Context, session *Session, cfg *config.TuningConfig) (*Result, error) {
	return NewRunner(cfg).Run(ctx, session)
}

// Run builds (or reuses) the track map, then merges, annotates and slices
// every driver with both car and position data. Drivers are processed
// concurrently, bounded by the pipeline_workers tuning value; each worker
// only touches its own driver's tables. The first driver error cancels the
// remaining work.
func (r *Runner) Run(ctx context.Context, session *Session) (*Result, error) {
	if session == nil {
		return nil, fmt.Errorf("run pipeline: nil session")
	}
	clock := r.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	res := &Result{
		RunID:     uuid.NewString(),
		SessionID: session.ID,
		StartedAt: clock.Now(),
	}
	monitoring.Logf("run %s: session %s", res.RunID, session.ID)

	drivers, err := r.selectDrivers(session)
	if err != nil {
		return nil, fmt.Errorf("run session %s: %w", session.ID, err)
	}

	laps, lapStats := l4laps.FromRecords(session.Laps)
	res.LapStats = lapStats
	if r.Tuning.GetExcludePitLaps() {
		laps = l4laps.Clean(laps)
	}

	if r.Track != nil {
		res.Track = r.Track
	} else {
		track, cs, err := BuildTrack(session, laps, r.Tuning)
		if err != nil {
			return nil, err
		}
		res.Track, res.CloudStats = track, cs
	}

	freq := MergeFrequency(r.Tuning)
	annotator := l5distance.NewAnnotator(r.Tuning)
	opts := l4laps.SliceOptions{
		InterpolateEdges: r.Tuning.GetInterpolateEdges(),
		Pad:              r.Tuning.GetSlicePad(),
	}

	results := make([]DriverResult, len(drivers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Tuning.GetPipelineWorkers())
	for i, d := range drivers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dr, err := processDriver(session, d, res.Track, freq, annotator, l4laps.ForDriver(laps, d), opts)
			if err != nil {
				return fmt.Errorf("driver %s: %w", d, err)
			}
			results[i] = dr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("run session %s: %w", session.ID, err)
	}

	if err := addDriverAhead(ctx, results, r.Tuning.GetPipelineWorkers()); err != nil {
		return nil, fmt.Errorf("run session %s: %w", session.ID, err)
	}

	res.Drivers = results
	res.Elapsed = clock.Since(res.StartedAt)
	monitoring.Logf("run %s: %d drivers, %d laps in %v", res.RunID, len(results), len(res.Summaries()), res.Elapsed)
	return res, nil
}

// MergeFrequency returns the merge_frequency tuning value as a Frequency.
func MergeFrequency(cfg *config.TuningConfig) l3channels.Frequency {
	if rate := cfg.GetMergeRate(); rate > 0 {
		return l3channels.Hz(rate)
	}
	return l3channels.Original
}

// BuildTrack reconstructs the session's track map from all on-track
// position samples. When laps are given the loop starts at the position
// where the earliest lap starts; with orient_track set it runs in driving
// direction.
func BuildTrack(session *Session, laps []l4laps.Lap, cfg *config.TuningConfig) (*l2track.OrderedTrack, l1samples.CloudStats, error) {
	cloud, cs, err := l1samples.ExtractPointCloud(session.Positions)
	if err != nil {
		return nil, cs, fmt.Errorf("build track for session %s: %w", session.ID, err)
	}
	monitoring.Logf("session %s: %s", session.ID, cs)

	tc := l2track.TourConfigFromTuning(cfg)
	tc.SessionID = session.ID
	if cfg.GetAutoThreshold() {
		th, err := l2track.SuggestThreshold(cloud, tc.Metric)
		if err != nil {
			monitoring.Logf("session %s: keeping outlier threshold %.1f: %v", session.ID, tc.OutlierThreshold, err)
		} else {
			tc.OutlierThreshold = th
		}
	}

	track, err := l2track.BuildTour(cloud, tc)
	if err != nil {
		return nil, cs, fmt.Errorf("build track for session %s: %w", session.ID, err)
	}

	if cfg.GetOrientTrack() {
		if track, err = track.Oriented(session.Positions[busiestDriver(session.Positions)]); err != nil {
			return nil, cs, fmt.Errorf("orient track for session %s: %w", session.ID, err)
		}
	}
	if p, ok := startLine(session.Positions, laps); ok {
		if track, err = track.StartingAt(p.X, p.Y); err != nil {
			return nil, cs, err
		}
	}
	return track, cs, nil
}

func (r *Runner) selectDrivers(session *Session) ([]string, error) {
	all := session.Drivers()
	if len(r.Drivers) == 0 {
		if len(all) == 0 {
			return nil, ErrNoDrivers
		}
		return all, nil
	}
	var out []string
	for _, d := range all {
		if slices.Contains(r.Drivers, d) {
			out = append(out, d)
		}
	}
	if len(out) < len(r.Drivers) {
		for _, d := range r.Drivers {
			if !slices.Contains(out, d) {
				return nil, fmt.Errorf("driver %s: %w", d, ErrNoDrivers)
			}
		}
	}
	return out, nil
}

func busiestDriver(streams l1samples.PositionStreams) string {
	best, n := "", -1
	for _, d := range streams.Drivers() {
		if len(streams[d]) > n {
			best, n = d, len(streams[d])
		}
	}
	return best
}

// startLine returns the first on-track position of the driver of the
// earliest lap at or after that lap's start.
func startLine(streams l1samples.PositionStreams, laps []l4laps.Lap) (l1samples.PositionSample, bool) {
	if len(laps) == 0 {
		return l1samples.PositionSample{}, false
	}
	first := laps[0]
	for _, l := range laps[1:] {
		if l.Start < first.Start {
			first = l
		}
	}
	var best l1samples.PositionSample
	found := false
	for _, p := range streams[first.Driver] {
		if p.Status != l1samples.StatusOnTrack || p.Time < first.Start {
			continue
		}
		if !found || p.Time < best.Time {
			best, found = p, true
		}
	}
	return best, found
}

func processDriver(session *Session, driver string, track *l2track.OrderedTrack, freq l3channels.Frequency,
	annotator *l5distance.Annotator, laps []l4laps.Lap, opts l4laps.SliceOptions) (DriverResult, error) {
	dr := DriverResult{Driver: driver}
	merged, ms, err := session.Merge(driver, freq)
	if err != nil {
		return dr, err
	}
	dr.MergeStats = ms

	if merged, err = l5distance.ProjectOntoTrack(merged, track); err != nil {
		return dr, err
	}
	if merged, err = annotator.AddDistance(merged, true); err != nil {
		return dr, err
	}
	if len(session.TrackStatus) > 0 {
		if merged, err = l5distance.AddTrackStatus(merged, session.TrackStatus); err != nil {
			return dr, err
		}
	}
	dr.Telemetry = merged

	for _, lap := range laps {
		slice, err := l4laps.SliceByLap(merged, lap, opts)
		if err == nil && slice.Len() == 0 {
			err = l4laps.ErrEmptyLap
		}
		if err != nil {
			if errors.Is(err, l4laps.ErrEmptyLap) || errors.Is(err, l3channels.ErrInsufficientData) {
				monitoring.Debugf("driver %s: skipping %s: %v", driver, lap, err)
				dr.Skipped++
				continue
			}
			return dr, err
		}
		// Distance restarts at zero on every lap.
		if slice, err = annotator.AddDistance(slice, true); err != nil {
			return dr, err
		}
		if slice, err = annotator.AddRelativeDistance(slice, true); err != nil {
			return dr, err
		}
		dr.Laps = append(dr.Laps, lap)
		dr.LapTables = append(dr.LapTables, slice)
		dr.Summaries = append(dr.Summaries, Summarize(session.ID, lap, slice))
	}
	markFastest(dr.Summaries)
	return dr, nil
}

// addDriverAhead annotates every driver's telemetry with the car ahead,
// reading the other drivers' session-long Distance.
func addDriverAhead(ctx context.Context, results []DriverResult, workers int) error {
	if len(results) < 2 {
		return nil
	}
	tables := make([]*l3channels.Table, len(results))
	for i, r := range results {
		tables[i] = r.Telemetry
	}
	annotated := make([]*l3channels.Table, len(results))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range results {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := l5distance.AddDriverAhead(tables[i], tables)
			if err != nil {
				return fmt.Errorf("driver %s: %w", results[i].Driver, err)
			}
			annotated[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i := range results {
		results[i].Telemetry = annotated[i]
	}
	return nil
}
