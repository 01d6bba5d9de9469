// Package tracedb persists reconstructed track maps and lap summaries in a
// SQLite database, so that later sessions at the same circuit can reuse a
// map instead of rebuilding it.
package tracedb

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/laptrace/internal/monitoring"
	"github.com/banshee-data/laptrace/internal/timeutil"
)

// ErrNotFound is returned when a requested track does not exist.
var ErrNotFound = errors.New("not found")

// pragmas applied to every connection opened by Open.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// DB wraps the trace database.
type DB struct {
	*sql.DB
	clock timeutil.Clock
}

// Open opens (creating if needed) the database at path and applies the
// connection pragmas. Call MigrateUp before first use.
func Open(path string) (*DB, error) {
	return OpenWithClock(path, timeutil.RealClock{})
}

// OpenWithClock is Open with an injectable clock for record timestamps.
func OpenWithClock(path string, clock timeutil.Clock) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open trace database %s: %w", path, err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", p, err)
		}
	}
	monitoring.Debugf("opened trace database %s", path)
	return &DB{DB: db, clock: clock}, nil
}

// OpenMigrated opens the database and applies all pending migrations.
func OpenMigrated(path string) (*DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) now() int64 {
	return db.clock.Now().UnixNano()
}
