package tracedb

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/laptrace/internal/monitoring"
	"github.com/banshee-data/laptrace/internal/trace/l1samples"
	"github.com/banshee-data/laptrace/internal/trace/l2track"
)

// TrackRecord describes a stored track map.
type TrackRecord struct {
	TrackID   string
	SessionID string
	Name      string
	Points    int
	Excluded  int
	Length    float64
	Threshold float64 // NaN when the map was not built by a tour
	Metric    string
	CreatedAt time.Time
}

// SaveTrack stores track with its excluded outliers and returns the new
// record. name is a free-form label such as the circuit name.
func (db *DB) SaveTrack(track *l2track.OrderedTrack, name string) (TrackRecord, error) {
	if track == nil || track.Len() == 0 {
		return TrackRecord{}, fmt.Errorf("save track: %w", l1samples.ErrInsufficientData)
	}
	stats := track.Stats()
	rec := TrackRecord{
		TrackID:   uuid.NewString(),
		SessionID: track.SessionID(),
		Name:      name,
		Points:    track.Len(),
		Excluded:  len(track.Excluded()),
		Length:    track.Length(),
		Threshold: stats.Threshold,
		Metric:    stats.Metric.String(),
	}
	created := db.now()
	rec.CreatedAt = time.Unix(0, created)

	tx, err := db.Begin()
	if err != nil {
		return TrackRecord{}, fmt.Errorf("save track: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO track_maps (
			track_id, session_id, name, point_count, excluded_count,
			length_m, threshold, metric, created_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TrackID, rec.SessionID, rec.Name, rec.Points, rec.Excluded,
		rec.Length, nullFloat(rec.Threshold), rec.Metric, created,
	); err != nil {
		return TrackRecord{}, fmt.Errorf("save track %s: %w", rec.TrackID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO track_points (track_id, seq, x, y, distance_m, excluded, date_unix_nanos)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return TrackRecord{}, fmt.Errorf("save track %s: prepare points: %w", rec.TrackID, err)
	}
	defer stmt.Close()

	for i, p := range track.Points() {
		if _, err := stmt.Exec(rec.TrackID, i, p.X, p.Y, track.DistanceAtIndex(i), 0, nullDate(p.Date)); err != nil {
			return TrackRecord{}, fmt.Errorf("save track %s point %d: %w", rec.TrackID, i, err)
		}
	}
	for i, p := range track.Excluded() {
		if _, err := stmt.Exec(rec.TrackID, i, p.X, p.Y, nil, 1, nullDate(p.Date)); err != nil {
			return TrackRecord{}, fmt.Errorf("save track %s outlier %d: %w", rec.TrackID, i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return TrackRecord{}, fmt.Errorf("save track %s: commit: %w", rec.TrackID, err)
	}
	monitoring.Logf("saved track %s for session %s (%d points, %.0f m)", rec.TrackID, rec.SessionID, rec.Points, rec.Length)
	return rec, nil
}

// LoadTrack rebuilds a stored track. Distances are recomputed from the
// stored point order.
func (db *DB) LoadTrack(trackID string) (*l2track.OrderedTrack, error) {
	rec, err := db.Track(trackID)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(`
		SELECT x, y, excluded, date_unix_nanos FROM track_points
		WHERE track_id = ? ORDER BY excluded, seq`, trackID)
	if err != nil {
		return nil, fmt.Errorf("load track %s: %w", trackID, err)
	}
	defer rows.Close()

	var points, excluded []l1samples.TrackPoint
	for rows.Next() {
		var (
			p    l1samples.TrackPoint
			ex   int
			date sql.NullInt64
		)
		if err := rows.Scan(&p.X, &p.Y, &ex, &date); err != nil {
			return nil, fmt.Errorf("load track %s: scan: %w", trackID, err)
		}
		if date.Valid {
			p.Date = time.Unix(0, date.Int64).UTC()
		}
		if ex != 0 {
			excluded = append(excluded, p)
		} else {
			points = append(points, p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load track %s: %w", trackID, err)
	}
	track, err := l2track.NewOrderedTrack(rec.SessionID, points, excluded)
	if err != nil {
		return nil, fmt.Errorf("load track %s: %w", trackID, err)
	}
	return track, nil
}

// Track returns the record of one stored track.
func (db *DB) Track(trackID string) (TrackRecord, error) {
	row := db.QueryRow(trackSelect+` WHERE track_id = ?`, trackID)
	rec, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return TrackRecord{}, fmt.Errorf("track %s: %w", trackID, ErrNotFound)
	}
	if err != nil {
		return TrackRecord{}, fmt.Errorf("track %s: %w", trackID, err)
	}
	return rec, nil
}

// LatestTrack returns the most recently saved track of a session.
func (db *DB) LatestTrack(sessionID string) (TrackRecord, error) {
	row := db.QueryRow(trackSelect+` WHERE session_id = ? ORDER BY created_unix_nanos DESC, rowid DESC LIMIT 1`, sessionID)
	rec, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return TrackRecord{}, fmt.Errorf("track for session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return TrackRecord{}, fmt.Errorf("track for session %s: %w", sessionID, err)
	}
	return rec, nil
}

// ListTracks returns all stored tracks, newest first.
func (db *DB) ListTracks() ([]TrackRecord, error) {
	rows, err := db.Query(trackSelect + ` ORDER BY created_unix_nanos DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var out []TrackRecord
	for rows.Next() {
		rec, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("list tracks: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteTrack removes a track and its points.
func (db *DB) DeleteTrack(trackID string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("delete track %s: %w", trackID, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM track_points WHERE track_id = ?`, trackID); err != nil {
		return fmt.Errorf("delete track %s points: %w", trackID, err)
	}
	res, err := tx.Exec(`DELETE FROM track_maps WHERE track_id = ?`, trackID)
	if err != nil {
		return fmt.Errorf("delete track %s: %w", trackID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete track %s: %w", trackID, ErrNotFound)
	}
	return tx.Commit()
}

const trackSelect = `
	SELECT track_id, session_id, name, point_count, excluded_count,
		length_m, threshold, metric, created_unix_nanos
	FROM track_maps`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrack(s scanner) (TrackRecord, error) {
	var (
		rec       TrackRecord
		threshold sql.NullFloat64
		created   int64
	)
	if err := s.Scan(&rec.TrackID, &rec.SessionID, &rec.Name, &rec.Points, &rec.Excluded,
		&rec.Length, &threshold, &rec.Metric, &created); err != nil {
		return TrackRecord{}, err
	}
	rec.Threshold = math.NaN()
	if threshold.Valid {
		rec.Threshold = threshold.Float64
	}
	rec.CreatedAt = time.Unix(0, created)
	return rec, nil
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func nullDate(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}
