// Package store persists collected races, their labelled laps and training
// runs in SQLite. The schema is managed by embedded golang-migrate
// migrations.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/pitwall/internal/monitoring"
)

var logf = monitoring.Prefixed("[store] ")

// Store wraps the SQLite handle holding collected races, their lap rows and
// training runs.
type Store struct {
	*sql.DB
}

// Open opens (or creates) the database at path and applies any pending
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps per-connection pragmas in effect.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	s := &Store{db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	version, _, err := s.MigrateVersion()
	if err != nil {
		db.Close()
		return nil, err
	}
	logf("opened %s at schema version %d", path, version)
	return s, nil
}
