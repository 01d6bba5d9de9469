package tracedb

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/laptrace/internal/trace/pipeline"
)

// SaveLapSummaries stores the lap summaries of one pipeline run.
func (db *DB) SaveLapSummaries(runID string, summaries []pipeline.LapSummary) error {
	if len(summaries) == 0 {
		return nil
	}
	created := db.now()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("save lap summaries: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO lap_summaries (
			run_id, session_id, driver, lap_number, start_nanos, lap_time_nanos,
			distance_m, max_speed, mean_speed, samples, fastest, created_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("save lap summaries: prepare: %w", err)
	}
	defer stmt.Close()

	for _, s := range summaries {
		fastest := 0
		if s.Fastest {
			fastest = 1
		}
		if _, err := stmt.Exec(runID, s.SessionID, s.Driver, s.LapNumber, int64(s.Start), int64(s.LapTime),
			s.Distance, nullFloat(s.MaxSpeed), nullFloat(s.MeanSpeed), s.Samples, fastest, created); err != nil {
			return fmt.Errorf("save lap summary driver %s lap %d: %w", s.Driver, s.LapNumber, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save lap summaries: commit: %w", err)
	}
	return nil
}

// LapSummaries returns the summaries stored for a session by its most
// recent run, ordered by driver and lap start.
func (db *DB) LapSummaries(sessionID string) ([]pipeline.LapSummary, error) {
	rows, err := db.Query(`
		SELECT session_id, driver, lap_number, start_nanos, lap_time_nanos,
			distance_m, max_speed, mean_speed, samples, fastest
		FROM lap_summaries
		WHERE session_id = ? AND run_id = (
			SELECT run_id FROM lap_summaries WHERE session_id = ?
			ORDER BY created_unix_nanos DESC, rowid DESC LIMIT 1
		)
		ORDER BY driver, start_nanos`, sessionID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("lap summaries for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []pipeline.LapSummary
	for rows.Next() {
		var (
			s                   pipeline.LapSummary
			start, lapTime      int64
			maxSpeed, meanSpeed sql.NullFloat64
			fastest             int
		)
		if err := rows.Scan(&s.SessionID, &s.Driver, &s.LapNumber, &start, &lapTime,
			&s.Distance, &maxSpeed, &meanSpeed, &s.Samples, &fastest); err != nil {
			return nil, fmt.Errorf("lap summaries for session %s: scan: %w", sessionID, err)
		}
		s.Start = time.Duration(start)
		s.LapTime = time.Duration(lapTime)
		s.MaxSpeed = floatOrNaN(maxSpeed)
		s.MeanSpeed = floatOrNaN(meanSpeed)
		s.Fastest = fastest != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
