package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/banshee-data/laptrace/internal/export"
	"github.com/banshee-data/laptrace/internal/ingest"
	"github.com/banshee-data/laptrace/internal/security"
	"github.com/banshee-data/laptrace/internal/trace/l2track"
	"github.com/banshee-data/laptrace/internal/trace/l4laps"
	"github.com/banshee-data/laptrace/internal/trace/pipeline"
	"github.com/banshee-data/laptrace/internal/tracedb"
)

func newTrackCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Build, store and export track maps",
	}
	cmd.AddCommand(
		newTrackBuildCommand(a),
		newTrackListCommand(a),
		newTrackExportCommand(a),
		newTrackDeleteCommand(a),
	)
	return cmd
}

func newTrackBuildCommand(a *app) *cobra.Command {
	var (
		sessionID string
		name      string
		save      bool
		geoJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "build <session-dir>",
		Short: "Reconstruct the track map of a session from its position samples",
		Long: `Build orders the unique on-track position samples of all drivers into
one closed loop, excluding points that are too far from their neighbours.

Examples:
  laptrace track build data/2026-suzuka-R --save --name Suzuka
  laptrace track build data/2026-suzuka-R --geojson --out exports`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ingest.LoadSession(a.fsys, args[0], sessionID)
			if err != nil {
				return err
			}
			laps, _ := l4laps.FromRecords(session.Laps)
			if a.tuning.GetExcludePitLaps() {
				laps = l4laps.Clean(laps)
			}
			track, _, err := pipeline.BuildTrack(session, laps, a.tuning)
			if err != nil {
				return err
			}
			if err := export.PrintTrackSummary(cmd.OutOrStdout(), track); err != nil {
				return err
			}
			if save {
				if err := a.saveTrack(cmd.OutOrStdout(), track, name); err != nil {
					return err
				}
			}
			if geoJSON {
				return a.writeGeoJSON(cmd.OutOrStdout(), track)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session-id", "", "session id (default the directory name)")
	cmd.Flags().StringVar(&name, "name", "", "label stored with the track, e.g. the circuit name")
	cmd.Flags().BoolVar(&save, "save", false, "store the track in the database")
	cmd.Flags().BoolVar(&geoJSON, "geojson", false, "write the track as GeoJSON to the output directory")
	return cmd
}

func newTrackListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored track maps, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			records, err := db.ListTracks()
			if err != nil {
				return err
			}
			return printTrackRecords(cmd.OutOrStdout(), records)
		},
	}
}

func newTrackExportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <track-id>",
		Short: "Write a stored track map as GeoJSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			track, err := db.LoadTrack(args[0])
			if err != nil {
				return err
			}
			return a.writeGeoJSON(cmd.OutOrStdout(), track)
		},
	}
}

func newTrackDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <track-id>",
		Short: "Delete a stored track map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.DeleteTrack(args[0]); err != nil {
				return err
			}
			cmd.Printf("deleted track %s\n", args[0])
			return nil
		},
	}
}

func (a *app) saveTrack(w io.Writer, track *l2track.OrderedTrack, name string) error {
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	rec, err := db.SaveTrack(track, name)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "saved track %s\n", rec.TrackID)
	return err
}

func (a *app) writeGeoJSON(w io.Writer, track *l2track.OrderedTrack) error {
	dir, err := a.outDir()
	if err != nil {
		return err
	}
	path, err := security.OutputPath(dir, ".geojson", track.SessionID(), "track")
	if err != nil {
		return err
	}
	opts := export.GeoJSONOptions{
		SimplifyTolerance: a.tuning.GetSimplifyTolerance(),
		IncludeExcluded:   true,
	}
	return a.create(w, path, func(f io.Writer) error { return export.WriteTrackGeoJSON(f, track, opts) })
}

func printTrackRecords(w io.Writer, records []tracedb.TrackRecord) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Track", "Session", "Name", "Points", "Excluded", "Length (m)", "Created"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})
	data := make([][]string, 0, len(records))
	for _, r := range records {
		data = append(data, []string{
			r.TrackID,
			r.SessionID,
			r.Name,
			strconv.Itoa(r.Points),
			strconv.Itoa(r.Excluded),
			fmt.Sprintf("%.1f", r.Length),
			r.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
