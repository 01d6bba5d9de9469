package ingest

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/banshee-data/laptrace/internal/fsutil"
	"github.com/banshee-data/laptrace/internal/monitoring"
	"github.com/banshee-data/laptrace/internal/trace/l1samples"
	"github.com/banshee-data/laptrace/internal/trace/pipeline"
)

// File names of a session directory. Positions and car data are required.
const (
	PositionsFile   = "positions.csv"
	CarFile         = "car_data.csv"
	LapsFile        = "laps.csv"
	TrackStatusFile = "track_status.csv"
)

// LoadSession reads a session directory. The session id defaults to the
// directory name; T0 is derived from the first position sample that
// carries an absolute date.
func LoadSession(fsys fsutil.FileSystem, dir, id string) (*pipeline.Session, error) {
	if id == "" {
		id = filepath.Base(filepath.Clean(dir))
	}
	s := &pipeline.Session{ID: id}

	var err error
	if err = readFile(fsys, filepath.Join(dir, PositionsFile), func(name string, r io.Reader) error {
		s.Positions, err = ReadPositions(name, r)
		return err
	}); err != nil {
		return nil, err
	}
	if err = readFile(fsys, filepath.Join(dir, CarFile), func(name string, r io.Reader) error {
		s.Car, err = ReadCar(name, r)
		return err
	}); err != nil {
		return nil, err
	}

	if p := filepath.Join(dir, LapsFile); fsys.Exists(p) {
		if err = readFile(fsys, p, func(name string, r io.Reader) error {
			s.Laps, err = ReadLaps(name, r)
			return err
		}); err != nil {
			return nil, err
		}
	}
	if p := filepath.Join(dir, TrackStatusFile); fsys.Exists(p) {
		if err = readFile(fsys, p, func(name string, r io.Reader) error {
			s.TrackStatus, err = ReadTrackStatus(name, r)
			return err
		}); err != nil {
			return nil, err
		}
	}

	s.T0 = sessionStart(s.Positions)
	monitoring.Logf("loaded session %s: %d drivers, %d laps, %d status events",
		s.ID, len(s.Positions), len(s.Laps), len(s.TrackStatus))
	return s, nil
}

func readFile(fsys fsutil.FileSystem, path string, read func(name string, r io.Reader) error) error {
	f, err := fsys.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return read(filepath.Base(path), f)
}

func sessionStart(streams l1samples.PositionStreams) (t0 time.Time) {
	for _, d := range streams.Drivers() {
		for _, p := range streams[d] {
			if p.Date.IsZero() {
				continue
			}
			if start := p.Date.Add(-p.Time); t0.IsZero() || start.Before(t0) {
				t0 = start
			}
			break
		}
	}
	return t0
}
