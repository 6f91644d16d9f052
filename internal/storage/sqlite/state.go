// Package sqlite provides a single-file SQLite state store for deployments
// without PostgreSQL.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrInvalidValue is returned when a value is not a JSON document.
var ErrInvalidValue = errors.New("state value is not valid JSON")

const schema = `
CREATE TABLE IF NOT EXISTS state_entries (
	scope      TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	PRIMARY KEY (scope, key)
);`

var pragmas = []string{
	"PRAGMA journal_mode=WAL;",
	"PRAGMA synchronous=NORMAL;",
	"PRAGMA busy_timeout=5000;",
}

// StateStore implements state.Store on SQLite.
type StateStore struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" opens a private
// in-memory database.
//
// Precondition: path must be non-empty.
// Postcondition: The schema exists, or a non-nil error is returned.
func Open(ctx context.Context, path string) (*StateStore, error) {
	if path == "" {
		return nil, errors.New("empty sqlite path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating sqlite directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	// One connection serializes writers and keeps :memory: a single database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, p := range append(pragmas, schema) {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("initializing sqlite %s: %w", path, err)
		}
	}
	return &StateStore{db: db}, nil
}

// Close releases the database.
func (s *StateStore) Close() error {
	return s.db.Close()
}

// Get returns the value for (scope, key).
//
// Postcondition: ok is false if no row exists.
func (s *StateStore) Get(ctx context.Context, scope, key string) (json.RawMessage, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM state_entries WHERE scope = ? AND key = ?`, scope, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("querying state %s/%s: %w", scope, key, err)
	}
	return json.RawMessage(value), true, nil
}

// Set upserts the value for (scope, key).
//
// Postcondition: Returns ErrInvalidValue without writing if value is not JSON.
func (s *StateStore) Set(ctx context.Context, scope, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("%s/%s: %w", scope, key, ErrInvalidValue)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO state_entries (scope, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (scope, key) DO UPDATE SET
		   value = excluded.value,
		   updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')`,
		scope, key, string(value),
	)
	if err != nil {
		return fmt.Errorf("writing state %s/%s: %w", scope, key, err)
	}
	return nil
}

// Delete removes (scope, key). A missing row is not an error.
func (s *StateStore) Delete(ctx context.Context, scope, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM state_entries WHERE scope = ? AND key = ?`, scope, key,
	); err != nil {
		return fmt.Errorf("deleting state %s/%s: %w", scope, key, err)
	}
	return nil
}

// Keys lists the keys stored under scope in ascending byte order.
func (s *StateStore) Keys(ctx context.Context, scope string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM state_entries WHERE scope = ? ORDER BY key COLLATE BINARY`, scope,
	)
	if err != nil {
		return nil, fmt.Errorf("listing state %s: %w", scope, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning state keys %s: %w", scope, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanning state keys %s: %w", scope, err)
	}
	return keys, nil
}
