// Package sqlite implements the lattice storage engine: catalog
// introspection, ancestor lineage resolution, and the structure-table
// migration fixes, all against a local SQLite database file.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/tabletree/lattice/pkg/types"
)

// Store wraps one open database connection. Single-writer: callers must not
// share a Store across concurrent migrations of the same file.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database file at path and enables foreign-key
// enforcement.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, types.ErrDBPathEmpty
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// DB exposes the underlying connection for the engine functions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close releases the connection. Safe to call more than once.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
