// Package cli implements the laptrace command line: building and storing
// track maps, running the telemetry pipeline over a session directory and
// inspecting stored results.
package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/banshee-data/laptrace/internal/config"
	"github.com/banshee-data/laptrace/internal/fsutil"
	"github.com/banshee-data/laptrace/internal/monitoring"
	"github.com/banshee-data/laptrace/internal/timeutil"
	"github.com/banshee-data/laptrace/internal/tracedb"
	"github.com/banshee-data/laptrace/internal/version"
)

// Settings keys shared by flags, the settings file and LAPTRACE_* variables.
const (
	keyConfig    = "config"
	keyTuning    = "tuning"
	keyDB        = "db"
	keyOut       = "out"
	keyVerbose   = "verbose"
	keyNoColor   = "no-color"
	keyWorkers   = "workers"
	keyFrequency = "frequency"
)

// DefaultDBPath is the track and lap store used when --db is not given.
const DefaultDBPath = "laptrace.db"

// app carries the resolved settings of one invocation.
type app struct {
	v      *viper.Viper
	fsys   fsutil.FileSystem
	clock  timeutil.Clock
	tuning *config.TuningConfig
}

func newApp() *app {
	return &app{v: viper.New(), fsys: fsutil.OSFileSystem{}, clock: timeutil.RealClock{}}
}

// NewRootCommand returns the laptrace command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(newApp())
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "laptrace",
		Short: "Reconstruct track maps and lap telemetry from timing feed exports.",
		Long: `laptrace merges car and position telemetry of a session, rebuilds the
track outline from position samples, slices laps and annotates distance.

A session directory holds positions.csv and car_data.csv, and optionally
laps.csv and track_status.csv.`,
		Version:           version.Version,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.setup() },
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.String(keyConfig, "", "settings file (default .laptrace.yaml in . or $HOME)")
	pf.String(keyTuning, "", "tuning JSON file (default built-in values)")
	pf.String(keyDB, DefaultDBPath, "sqlite database for stored tracks and lap summaries")
	pf.String(keyOut, ".", "directory export files are written to")
	pf.BoolP(keyVerbose, "v", false, "log per-step detail")
	pf.Bool(keyNoColor, false, "disable colored output")
	pf.Int(keyWorkers, 0, "drivers processed concurrently (overrides pipeline_workers)")
	pf.String(keyFrequency, "", `merge frequency, "original" or a rate like 10hz (overrides merge_frequency)`)
	_ = a.v.BindPFlags(pf)

	a.v.SetEnvPrefix("LAPTRACE")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		newTrackCommand(a),
		newMergeCommand(a),
		newLapsCommand(a),
		newRunCommand(a),
		newSummariesCommand(a),
		newMigrateCommand(a),
		newVersionCommand(),
	)
	return root
}

// setup reads the settings file and resolves the tuning configuration.
func (a *app) setup() error {
	if file := a.v.GetString(keyConfig); file != "" {
		a.v.SetConfigFile(file)
	} else {
		a.v.SetConfigName(".laptrace")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
		a.v.AddConfigPath("$HOME")
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading settings file: %w", err)
		}
	}

	if a.v.GetBool(keyVerbose) {
		monitoring.EnableDebug()
	}
	if a.v.GetBool(keyNoColor) {
		color.NoColor = true
	}

	cfg := config.DefaultTuningConfig()
	if path := a.v.GetString(keyTuning); path != "" {
		loaded, err := config.LoadTuningConfig(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.v.IsSet(keyWorkers) {
		n := a.v.GetInt(keyWorkers)
		cfg.PipelineWorkers = &n
	}
	if a.v.IsSet(keyFrequency) {
		f := a.v.GetString(keyFrequency)
		cfg.MergeFrequency = &f
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.tuning = cfg
	return nil
}

// openDB opens the store and applies pending migrations.
func (a *app) openDB() (*tracedb.DB, error) {
	return tracedb.OpenMigrated(a.v.GetString(keyDB))
}

// outDir returns the export directory, creating it if needed.
func (a *app) outDir() (string, error) {
	dir := a.v.GetString(keyOut)
	if err := a.fsys.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return dir, nil
}
