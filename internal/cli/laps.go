package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/banshee-data/laptrace/internal/export"
	"github.com/banshee-data/laptrace/internal/ingest"
	"github.com/banshee-data/laptrace/internal/tracedb"
)

func newLapsCommand(a *app) *cobra.Command {
	var (
		sessionID string
		driver    string
		trackID   string
		format    string
	)
	cmd := &cobra.Command{
		Use:   "laps <session-dir>",
		Short: "Slice one driver's laps and annotate per-lap distance",
		Long: `Laps merges one driver's telemetry, projects it onto the track map
(rebuilt from the session or loaded with --track-id) and writes every lap
with Distance restarting at zero and RelativeDistance from 0 to 1.

Example:
  laptrace laps data/2026-suzuka-R --driver 16 --format csv`,
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
			runner.Drivers = []string{driver}
			res, err := runner.Run(cmd.Context(), session)
			if err != nil {
				return err
			}
			dr, _ := res.Driver(driver)

			out := cmd.OutOrStdout()
			if err := export.PrintLapSummary(out, dr.Summaries); err != nil {
				return err
			}
			if dr.Skipped > 0 {
				warning.Fprintf(out, "warning: %d laps without telemetry skipped\n", dr.Skipped)
			}
			if format == FormatParquet {
				return a.writeTables(out, format, []string{session.ID, driver, "laps"}, dr.LapTables...)
			}
			for i, lap := range dr.Laps {
				parts := []string{session.ID, driver, "lap" + strconv.Itoa(lap.Number)}
				if err := a.writeTables(out, format, parts, dr.LapTables[i]); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session-id", "", "session id (default the directory name)")
	cmd.Flags().StringVarP(&driver, "driver", "d", "", "driver number")
	cmd.Flags().StringVar(&trackID, "track-id", "", "use a stored track map instead of rebuilding it")
	cmd.Flags().StringVar(&format, "format", FormatCSV, "export format: parquet, csv or none")
	_ = cmd.MarkFlagRequired("driver")
	return cmd
}

func newSummariesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summaries <session-id>",
		Short: "Show the lap summaries stored by the latest saved run of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			summaries, err := db.LapSummaries(args[0])
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				return fmt.Errorf("laps for session %s: %w", args[0], tracedb.ErrNotFound)
			}
			return export.PrintLapSummary(cmd.OutOrStdout(), summaries)
		},
	}
}
