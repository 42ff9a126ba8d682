// Package pgxstore persists watcher state in PostgreSQL, one row per
// account with the snapshot as jsonb.
package pgxstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/screwyprof/efpwatch/watcher"
)

// Sentinel errors for store operations
var (
	ErrTransactionFailed = errors.New("transaction failed")
	ErrQueryFailed       = errors.New("snapshot query failed")
	ErrDecodeFailed      = errors.New("snapshot decode failed")
	ErrCopyFailed        = errors.New("bulk copy operation failed")
)

// Store implements watcher.Store interface using pgx
type Store struct {
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL store with an existing connection pool.
// Returns the store and a closer function.
func New(pool *pgxpool.Pool) (*Store, func()) {
	store := &Store{pool: pool}
	closer := func() {
		pool.Close()
	}
	return store, closer
}

// Load returns the persisted state, or an empty state when no rows exist
func (s *Store) Load(ctx context.Context) (watcher.State, error) {
	rows, err := s.pool.Query(ctx, "SELECT identifier, snapshot FROM account_snapshots")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer rows.Close()

	state := watcher.State{}
	for rows.Next() {
		var (
			identifier string
			raw        []byte
		)
		if err := rows.Scan(&identifier, &raw); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
		}
		var snap watcher.Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return nil, fmt.Errorf("%w: account %s: %w", ErrDecodeFailed, identifier, err)
		}
		state[watcher.Identifier(identifier)] = snap
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return state, nil
}

// Save replaces the entire persisted state in one transaction: truncate,
// then bulk-load the new rows with CopyFrom. Readers either see the old
// state or the new one; accounts no longer watched disappear with the
// truncate.
func (s *Store) Save(ctx context.Context, state watcher.State) error {
	rows, err := stateToRows(state)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // No-op if commit succeeds

	if _, err := tx.Exec(ctx, "DELETE FROM account_snapshots"); err != nil {
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}

	if len(rows) > 0 {
		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"account_snapshots"},
			[]string{"identifier", "snapshot", "fetched_at"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCopyFailed, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}
	return nil
}

// stateToRows converts the state mapping to [][]any for pgx.CopyFromRows
func stateToRows(state watcher.State) ([][]any, error) {
	rows := make([][]any, 0, len(state))
	for id, snap := range state {
		raw, err := json.Marshal(snap)
		if err != nil {
			return nil, fmt.Errorf("%w: account %s: %w", ErrDecodeFailed, id, err)
		}
		rows = append(rows, []any{string(id), raw, snap.FetchedAt})
	}
	return rows, nil
}
