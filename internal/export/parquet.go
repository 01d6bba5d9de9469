package export

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/banshee-data/laptrace/internal/monitoring"
	"github.com/banshee-data/laptrace/internal/trace/l3channels"
	"github.com/banshee-data/laptrace/internal/trace/pipeline"
)

// TelemetryRow is one row of a merged telemetry table in Parquet form.
// Channels absent from the table, or missing in a row, are null.
type TelemetryRow struct {
	SessionID string     `parquet:"session_id,snappy"`
	Driver    string     `parquet:"driver,snappy"`
	TimeNanos int64      `parquet:"session_time_ns,snappy"`
	Date      *time.Time `parquet:"date,optional,snappy"`
	Source    string     `parquet:"source,snappy"`

	Speed    *float64 `parquet:"speed,optional,snappy"`
	RPM      *float64 `parquet:"rpm,optional,snappy"`
	Gear     *float64 `parquet:"n_gear,optional,snappy"`
	Throttle *float64 `parquet:"throttle,optional,snappy"`
	Brake    *float64 `parquet:"brake,optional,snappy"`
	DRS      *float64 `parquet:"drs,optional,snappy"`
	X        *float64 `parquet:"x,optional,snappy"`
	Y        *float64 `parquet:"y,optional,snappy"`
	Z        *float64 `parquet:"z,optional,snappy"`
	Status   *float64 `parquet:"status,optional,snappy"`

	Distance              *float64 `parquet:"distance_m,optional,snappy"`
	RelativeDistance      *float64 `parquet:"relative_distance,optional,snappy"`
	TrackDistance         *float64 `parquet:"track_distance_m,optional,snappy"`
	TrackStatus           *float64 `parquet:"track_status,optional,snappy"`
	DriverAhead           *float64 `parquet:"driver_ahead,optional,snappy"`
	DistanceToDriverAhead *float64 `parquet:"distance_to_driver_ahead_m,optional,snappy"`
}

// rowFields maps channel names to their TelemetryRow field.
var rowFields = map[string]func(*TelemetryRow) **float64{
	l3channels.Speed:                 func(r *TelemetryRow) **float64 { return &r.Speed },
	l3channels.RPM:                   func(r *TelemetryRow) **float64 { return &r.RPM },
	l3channels.Gear:                  func(r *TelemetryRow) **float64 { return &r.Gear },
	l3channels.Throttle:              func(r *TelemetryRow) **float64 { return &r.Throttle },
	l3channels.Brake:                 func(r *TelemetryRow) **float64 { return &r.Brake },
	l3channels.DRS:                   func(r *TelemetryRow) **float64 { return &r.DRS },
	l3channels.X:                     func(r *TelemetryRow) **float64 { return &r.X },
	l3channels.Y:                     func(r *TelemetryRow) **float64 { return &r.Y },
	l3channels.Z:                     func(r *TelemetryRow) **float64 { return &r.Z },
	l3channels.Status:                func(r *TelemetryRow) **float64 { return &r.Status },
	l3channels.Distance:              func(r *TelemetryRow) **float64 { return &r.Distance },
	l3channels.RelativeDistance:      func(r *TelemetryRow) **float64 { return &r.RelativeDistance },
	l3channels.TrackDistance:         func(r *TelemetryRow) **float64 { return &r.TrackDistance },
	l3channels.TrackStatus:           func(r *TelemetryRow) **float64 { return &r.TrackStatus },
	l3channels.DriverAhead:           func(r *TelemetryRow) **float64 { return &r.DriverAhead },
	l3channels.DistanceToDriverAhead: func(r *TelemetryRow) **float64 { return &r.DistanceToDriverAhead },
}

// TelemetryRows flattens tables into Parquet rows. Channels without a
// column in TelemetryRow are skipped.
func TelemetryRows(tables ...*l3channels.Table) []TelemetryRow {
	var n int
	for _, t := range tables {
		n += t.Len()
	}
	rows := make([]TelemetryRow, 0, n)
	for _, t := range tables {
		meta := t.Meta()
		type col struct {
			field  func(*TelemetryRow) **float64
			values []float64
		}
		var cols []col
		for _, name := range t.Channels() {
			f, ok := rowFields[name]
			if !ok {
				monitoring.Debugf("parquet export: no column for channel %s", name)
				continue
			}
			v, _ := t.Column(name)
			cols = append(cols, col{f, v})
		}
		for i := 0; i < t.Len(); i++ {
			r := TelemetryRow{
				SessionID: meta.SessionID,
				Driver:    meta.Driver,
				TimeNanos: int64(t.Time(i)),
				Source:    string(t.Source(i)),
			}
			if d := t.Date(i); !d.IsZero() {
				r.Date = &d
			}
			for _, c := range cols {
				if v := c.values[i]; !math.IsNaN(v) {
					*c.field(&r) = &v
				}
			}
			rows = append(rows, r)
		}
	}
	return rows
}

// WriteTableParquet writes the rows of tables to w as one Parquet file.
func WriteTableParquet(w io.Writer, tables ...*l3channels.Table) error {
	writer := parquet.NewGenericWriter[TelemetryRow](w)
	if _, err := writer.Write(TelemetryRows(tables...)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write telemetry to parquet: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// LapRow is a lap summary in Parquet form.
type LapRow struct {
	RunID        string   `parquet:"run_id,snappy"`
	SessionID    string   `parquet:"session_id,snappy"`
	Driver       string   `parquet:"driver,snappy"`
	LapNumber    int32    `parquet:"lap_number,snappy"`
	StartNanos   int64    `parquet:"start_ns,snappy"`
	LapTimeNanos int64    `parquet:"lap_time_ns,snappy"`
	DistanceM    float64  `parquet:"distance_m,snappy"`
	MaxSpeed     *float64 `parquet:"max_speed,optional,snappy"`
	MeanSpeed    *float64 `parquet:"mean_speed,optional,snappy"`
	Samples      int32    `parquet:"samples,snappy"`
	Fastest      bool     `parquet:"fastest,snappy"`
}

// WriteLapSummariesParquet writes lap summaries of one run to w.
func WriteLapSummariesParquet(w io.Writer, runID string, summaries []pipeline.LapSummary) error {
	rows := make([]LapRow, len(summaries))
	for i, s := range summaries {
		rows[i] = LapRow{
			RunID:        runID,
			SessionID:    s.SessionID,
			Driver:       s.Driver,
			LapNumber:    int32(s.LapNumber),
			StartNanos:   int64(s.Start),
			LapTimeNanos: int64(s.LapTime),
			DistanceM:    s.Distance,
			MaxSpeed:     optional(s.MaxSpeed),
			MeanSpeed:    optional(s.MeanSpeed),
			Samples:      int32(s.Samples),
			Fastest:      s.Fastest,
		}
	}
	writer := parquet.NewGenericWriter[LapRow](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write lap summaries to parquet: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

func optional(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
