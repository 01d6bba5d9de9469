package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// Defaults applied by the Get* accessors when a field is omitted.
const (
	DefaultOutlierThreshold  = 200.0
	DefaultDistanceMetric    = "squared_euclidean"
	DefaultMergeFrequency    = "original"
	DefaultSpeedUnit         = "kmph"
	DefaultSimplifyTolerance = 5.0
	DefaultPipelineWorkers   = 4
)

// TuningConfig holds the reconstruction and synchronisation knobs. Every
// field is optional; omitted fields fall back to the defaults above.
type TuningConfig struct {
	// Track tour builder
	OutlierThreshold *float64 `json:"outlier_threshold,omitempty"` // squared sensor units for squared_euclidean
	DistanceMetric   *string  `json:"distance_metric,omitempty"`   // "squared_euclidean" or "manhattan"
	AutoThreshold    *bool    `json:"auto_threshold,omitempty"`    // derive threshold from point spacing
	TourWorkers      *int     `json:"tour_workers,omitempty"`
	OrientTrack      *bool    `json:"orient_track,omitempty"`

	// Channel merge
	MergeFrequency *string `json:"merge_frequency,omitempty"` // "original" or a rate like "10hz"

	// Lap slicing
	InterpolateEdges *bool `json:"interpolate_edges,omitempty"`
	SlicePad         *int  `json:"slice_pad,omitempty"`
	ExcludePitLaps   *bool `json:"exclude_pit_laps,omitempty"`

	// Distance annotation
	SpeedUnit *string `json:"speed_unit,omitempty"`

	// Export and pipeline
	SimplifyTolerance *float64 `json:"simplify_tolerance,omitempty"`
	PipelineWorkers   *int     `json:"pipeline_workers,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the package defaults.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		OutlierThreshold:  ptrFloat64(DefaultOutlierThreshold),
		DistanceMetric:    ptrString(DefaultDistanceMetric),
		AutoThreshold:     ptrBool(false),
		TourWorkers:       ptrInt(1),
		OrientTrack:       ptrBool(true),
		MergeFrequency:    ptrString(DefaultMergeFrequency),
		InterpolateEdges:  ptrBool(true),
		SlicePad:          ptrInt(0),
		ExcludePitLaps:    ptrBool(true),
		SpeedUnit:         ptrString(DefaultSpeedUnit),
		SimplifyTolerance: ptrFloat64(DefaultSimplifyTolerance),
		PipelineWorkers:   ptrInt(DefaultPipelineWorkers),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file keep their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches the current directory and common parent directories and
// panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/trace/pipeline/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.OutlierThreshold != nil && *c.OutlierThreshold <= 0 {
		return fmt.Errorf("outlier_threshold must be positive, got %f", *c.OutlierThreshold)
	}

	if c.DistanceMetric != nil {
		switch *c.DistanceMetric {
		case "squared_euclidean", "manhattan":
		default:
			return fmt.Errorf("distance_metric must be squared_euclidean or manhattan, got %q", *c.DistanceMetric)
		}
	}

	if c.TourWorkers != nil && *c.TourWorkers < 1 {
		return fmt.Errorf("tour_workers must be at least 1, got %d", *c.TourWorkers)
	}

	if c.MergeFrequency != nil {
		if _, err := ParseRate(*c.MergeFrequency); err != nil {
			return fmt.Errorf("invalid merge_frequency: %w", err)
		}
	}

	if c.SlicePad != nil && *c.SlicePad < 0 {
		return fmt.Errorf("slice_pad must be non-negative, got %d", *c.SlicePad)
	}

	if c.SpeedUnit != nil {
		switch *c.SpeedUnit {
		case "mps", "mph", "kmph", "kph":
		default:
			return fmt.Errorf("speed_unit must be one of mps, mph, kmph, kph, got %q", *c.SpeedUnit)
		}
	}

	if c.SimplifyTolerance != nil && *c.SimplifyTolerance < 0 {
		return fmt.Errorf("simplify_tolerance must be non-negative, got %f", *c.SimplifyTolerance)
	}

	if c.PipelineWorkers != nil && *c.PipelineWorkers < 1 {
		return fmt.Errorf("pipeline_workers must be at least 1, got %d", *c.PipelineWorkers)
	}

	return nil
}

// ParseRate parses a merge frequency. "original" (or an empty string)
// yields 0; otherwise the value is a positive rate in Hz with an optional
// "hz" suffix, e.g. "10", "10hz" or "4.5Hz".
func ParseRate(s string) (float64, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" || v == "original" {
		return 0, nil
	}
	v = strings.TrimSpace(strings.TrimSuffix(v, "hz"))
	hz, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("frequency %q is neither \"original\" nor a rate in Hz", s)
	}
	if math.IsNaN(hz) || math.IsInf(hz, 0) || hz <= 0 {
		return 0, fmt.Errorf("frequency must be a positive finite rate, got %q", s)
	}
	return hz, nil
}

// GetOutlierThreshold returns the outlier_threshold value or the default.
func (c *TuningConfig) GetOutlierThreshold() float64 {
	if c.OutlierThreshold == nil {
		return DefaultOutlierThreshold
	}
	return *c.OutlierThreshold
}

// GetDistanceMetric returns the distance_metric value or the default.
func (c *TuningConfig) GetDistanceMetric() string {
	if c.DistanceMetric == nil {
		return DefaultDistanceMetric
	}
	return *c.DistanceMetric
}

// GetAutoThreshold returns the auto_threshold value or the default.
func (c *TuningConfig) GetAutoThreshold() bool {
	if c.AutoThreshold == nil {
		return false
	}
	return *c.AutoThreshold
}

// GetTourWorkers returns the tour_workers value or the default.
func (c *TuningConfig) GetTourWorkers() int {
	if c.TourWorkers == nil {
		return 1
	}
	return *c.TourWorkers
}

// GetOrientTrack returns the orient_track value or the default.
func (c *TuningConfig) GetOrientTrack() bool {
	if c.OrientTrack == nil {
		return true
	}
	return *c.OrientTrack
}

// GetMergeRate returns the merge frequency in Hz, 0 meaning the union of
// the original timestamps. Unparseable values fall back to 0.
func (c *TuningConfig) GetMergeRate() float64 {
	if c.MergeFrequency == nil {
		return 0
	}
	hz, err := ParseRate(*c.MergeFrequency)
	if err != nil {
		return 0
	}
	return hz
}

// GetInterpolateEdges returns the interpolate_edges value or the default.
func (c *TuningConfig) GetInterpolateEdges() bool {
	if c.InterpolateEdges == nil {
		return true
	}
	return *c.InterpolateEdges
}

// GetSlicePad returns the slice_pad value or the default.
func (c *TuningConfig) GetSlicePad() int {
	if c.SlicePad == nil {
		return 0
	}
	return *c.SlicePad
}

// GetExcludePitLaps returns the exclude_pit_laps value or the default.
func (c *TuningConfig) GetExcludePitLaps() bool {
	if c.ExcludePitLaps == nil {
		return true
	}
	return *c.ExcludePitLaps
}

// GetSpeedUnit returns the speed_unit value or the default.
func (c *TuningConfig) GetSpeedUnit() string {
	if c.SpeedUnit == nil {
		return DefaultSpeedUnit
	}
	return *c.SpeedUnit
}

// GetSimplifyTolerance returns the simplify_tolerance value or the default.
func (c *TuningConfig) GetSimplifyTolerance() float64 {
	if c.SimplifyTolerance == nil {
		return DefaultSimplifyTolerance
	}
	return *c.SimplifyTolerance
}

// GetPipelineWorkers returns the pipeline_workers value or the default.
func (c *TuningConfig) GetPipelineWorkers() int {
	if c.PipelineWorkers == nil {
		return DefaultPipelineWorkers
	}
	return *c.PipelineWorkers
}
