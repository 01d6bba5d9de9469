package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/banshee-data/laptrace/internal/export"
	"github.com/banshee-data/laptrace/internal/ingest"
	"github.com/banshee-data/laptrace/internal/security"
	"github.com/banshee-data/laptrace/internal/trace/pipeline"
)

// Export formats.
const (
	FormatParquet = "parquet"
	FormatCSV     = "csv"
	FormatNone    = "none"
)

var headline = color.New(color.FgCyan, color.Bold)

func newRunCommand(a *app) *cobra.Command {
	var (
		sessionID string
		trackID   string
		format    string
		save      bool
		name      string
	)
	cmd := &cobra.Command{
		Use:   "run <session-dir>",
		Short: "Merge, annotate and slice the telemetry of every driver in a session",
		Long: `Run builds the track map (or loads a stored one with --track-id), merges
car and position data per driver, adds Distance, TrackDistance,
TrackStatus and DriverAhead channels, slices laps and prints a summary
per lap.

Telemetry is written to the output directory: one Parquet file for the
session plus one for the lap summaries, or one CSV per driver.

Examples:
  laptrace run data/2026-suzuka-R --save
  laptrace run data/2026-suzuka-R --track-id 6f1c... --format csv --frequency 10hz`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			session, err := ingest.LoadSession(a.fsys, args[0], sessionID)
			if err != nil {
				return err
			}
			runner, err := a.runner(trackID)
			if err != nil {
				return err
			}
			res, err := runner.Run(cmd.Context(), session)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			headline.Fprintf(out, "session %s run %s\n", res.SessionID, res.RunID)
			if err := export.PrintLapSummary(out, res.Summaries()); err != nil {
				return err
			}
			if err := a.writeRun(out, res, format); err != nil {
				return err
			}
			if save {
				if err := a.saveRun(out, res, trackID == "", name); err != nil {
					return err
				}
			}
			fmt.Fprintf(out, "%d drivers, %d laps in %v\n", len(res.Drivers), len(res.Summaries()), res.Elapsed)
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session-id", "", "session id (default the directory name)")
	cmd.Flags().StringVar(&trackID, "track-id", "", "use a stored track map instead of rebuilding it")
	cmd.Flags().StringVar(&format, "format", FormatParquet, "telemetry export format: parquet, csv or none")
	cmd.Flags().BoolVar(&save, "save", false, "store lap summaries (and a newly built track) in the database")
	cmd.Flags().StringVar(&name, "name", "", "label stored with a newly built track")
	return cmd
}

// runner returns a pipeline runner with the resolved tuning, using the
// stored track trackID when it is not empty.
func (a *app) runner(trackID string) (*pipeline.Runner, error) {
	r := pipeline.NewRunner(a.tuning)
	r.Clock = a.clock
	if trackID == "" {
		return r, nil
	}
	db, err := a.openDB()
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if r.Track, err = db.LoadTrack(trackID); err != nil {
		return nil, err
	}
	return r, nil
}

func (a *app) writeRun(w io.Writer, res *pipeline.Result, format string) error {
	switch format {
	case FormatCSV:
		for _, d := range res.Drivers {
			if err := a.writeTables(w, format, []string{res.SessionID, d.Driver}, d.Telemetry); err != nil {
				return err
			}
		}
	case FormatParquet:
		if err := a.writeTables(w, format, []string{res.SessionID, "telemetry"}, res.Telemetry()...); err != nil {
			return err
		}
		dir, err := a.outDir()
		if err != nil {
			return err
		}
		path, err := security.OutputPath(dir, ".parquet", res.SessionID, "laps")
		if err != nil {
			return err
		}
		return a.create(w, path, func(f io.Writer) error {
			return export.WriteLapSummariesParquet(f, res.RunID, res.Summaries())
		})
	}
	return nil
}

func (a *app) saveRun(w io.Writer, res *pipeline.Result, saveTrack bool, name string) error {
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	if saveTrack {
		rec, err := db.SaveTrack(res.Track, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "saved track %s\n", rec.TrackID)
	}
	if err := db.SaveLapSummaries(res.RunID, res.Summaries()); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "saved %d lap summaries\n", len(res.Summaries()))
	return err
}
