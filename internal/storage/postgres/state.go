package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrInvalidValue is returned when a value is not a JSON document.
var ErrInvalidValue = errors.New("state value is not valid JSON")

// StateSchema creates the state table. It matches migrations/000001.
const StateSchema = `
CREATE TABLE IF NOT EXISTS state_entries (
	scope      TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (scope, key)
);`

// StateRepository stores player and room state in PostgreSQL. It implements
// state.Store.
type StateRepository struct {
	db *pgxpool.Pool
}

// NewStateRepository creates a StateRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with the
// state_entries table present.
func NewStateRepository(db *pgxpool.Pool) *StateRepository {
	return &StateRepository{db: db}
}

// Get returns the value for (scope, key).
//
// Postcondition: ok is false if no row exists.
func (r *StateRepository) Get(ctx context.Context, scope, key string) (json.RawMessage, bool, error) {
	var value []byte
	err := r.db.QueryRow(ctx,
		`SELECT value FROM state_entries WHERE scope = $1 AND key = $2`,
		scope, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("querying state %s/%s: %w", scope, key, err)
	}
	return json.RawMessage(value), true, nil
}

// Set upserts the value for (scope, key).
//
// Precondition: value must be valid JSON.
// Postcondition: Returns ErrInvalidValue without writing if it is not.
func (r *StateRepository) Set(ctx context.Context, scope, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("%s/%s: %w", scope, key, ErrInvalidValue)
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO state_entries (scope, key, value)
		 VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (scope, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		scope, key, string(value),
	)
	if err != nil {
		return fmt.Errorf("writing state %s/%s: %w", scope, key, err)
	}
	return nil
}

// Delete removes (scope, key). A missing row is not an error.
func (r *StateRepository) Delete(ctx context.Context, scope, key string) error {
	if _, err := r.db.Exec(ctx,
		`DELETE FROM state_entries WHERE scope = $1 AND key = $2`,
		scope, key,
	); err != nil {
		return fmt.Errorf("deleting state %s/%s: %w", scope, key, err)
	}
	return nil
}

// Keys lists the keys stored under scope in ascending order.
func (r *StateRepository) Keys(ctx context.Context, scope string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT key FROM state_entries WHERE scope = $1 ORDER BY key COLLATE "C"`,
		scope,
	)
	if err != nil {
		return nil, fmt.Errorf("listing state %s: %w", scope, err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning state keys %s: %w", scope, err)
	}
	return keys, nil
}
