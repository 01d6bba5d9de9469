package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/banshee-data/laptrace/internal/export"
	"github.com/banshee-data/laptrace/internal/ingest"
	"github.com/banshee-data/laptrace/internal/security"
	"github.com/banshee-data/laptrace/internal/trace/l3channels"
	"github.com/banshee-data/laptrace/internal/trace/pipeline"
)

var warning = color.New(color.FgYellow)

func newMergeCommand(a *app) *cobra.Command {
	var (
		sessionID string
		driver    string
		format    string
	)
	cmd := &cobra.Command{
		Use:   "merge <session-dir>",
		Short: "Merge one driver's car and position data onto a common timeline",
		Long: `Merge interleaves the car and position samples of a driver, fills gaps
(linear for continuous channels, hold for discrete ones) and optionally
resamples onto a fixed-rate grid set with --frequency.

Example:
  laptrace merge data/2026-suzuka-R --driver 44 --frequency 10hz`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			session, err := ingest.LoadSession(a.fsys, args[0], sessionID)
			if err != nil {
				return err
			}
			merged, ms, err := session.Merge(driver, pipeline.MergeFrequency(a.tuning))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "driver %s: merged %d car and %d position rows into %d (%d paired, %d cells filled)\n",
				driver, ms.RowsA, ms.RowsB, ms.Rows, ms.Paired, ms.Filled)
			if len(ms.Unfilled) > 0 {
				warning.Fprintf(out, "warning: no values to fill %s\n", strings.Join(ms.Unfilled, ", "))
			}
			if ms.DuplicateTimes > 0 {
				warning.Fprintf(out, "warning: %d rows share their time with the previous row\n", ms.DuplicateTimes)
			}
			return a.writeTables(out, format, []string{session.ID, driver, "merged"}, merged)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session-id", "", "session id (default the directory name)")
	cmd.Flags().StringVarP(&driver, "driver", "d", "", "driver number")
	cmd.Flags().StringVar(&format, "format", FormatCSV, "export format: parquet, csv or none")
	_ = cmd.MarkFlagRequired("driver")
	return cmd
}

func checkFormat(format string) error {
	switch format {
	case FormatParquet, FormatCSV, FormatNone:
		return nil
	}
	return fmt.Errorf("unknown format %q (want %s, %s or %s)", format, FormatParquet, FormatCSV, FormatNone)
}

// writeTables writes tables to one file named after parts: a CSV per
// table (numbered when there is more than one) or a single Parquet file.
func (a *app) writeTables(w io.Writer, format string, parts []string, tables ...*l3channels.Table) error {
	if format == FormatNone || len(tables) == 0 {
		return nil
	}
	dir, err := a.outDir()
	if err != nil {
		return err
	}
	if format == FormatParquet {
		path, err := security.OutputPath(dir, ".parquet", parts...)
		if err != nil {
			return err
		}
		return a.create(w, path, func(f io.Writer) error { return export.WriteTableParquet(f, tables...) })
	}
	for i, t := range tables {
		name := parts
		if len(tables) > 1 {
			name = append(append([]string(nil), parts...), fmt.Sprint(i+1))
		}
		path, err := security.OutputPath(dir, ".csv", name...)
		if err != nil {
			return err
		}
		if err := a.create(w, path, func(f io.Writer) error { return export.WriteTableCSV(f, t) }); err != nil {
			return err
		}
	}
	return nil
}

// create writes one export file and reports its path to w.
func (a *app) create(w io.Writer, path string, write func(io.Writer) error) error {
	f, err := a.fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	_, err = fmt.Fprintf(w, "wrote %s\n", path)
	return err
}
