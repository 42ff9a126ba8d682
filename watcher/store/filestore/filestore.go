// Package filestore persists watcher state as a single JSON document,
// replaced atomically on every save.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/screwyprof/efpwatch/watcher"
)

// Sentinel errors for store operations
var (
	ErrLoadFailed = errors.New("reading state file failed")
	ErrSaveFailed = errors.New("writing state file failed")
)

// document is the on-disk layout
type document struct {
	SavedAt  time.Time     `json:"saved_at"`
	Accounts watcher.State `json:"accounts"`
}

// Store implements watcher.Store on top of a local JSON file
type Store struct {
	path string
}

// New creates a Store at the given path. The file need not exist yet.
func New(path string) *Store {
	return &Store{path: path}
}

// Load returns the persisted state, or an empty state when the file is absent
func (s *Store) Load(_ context.Context) (watcher.State, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return watcher.State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	if doc.Accounts == nil {
		return watcher.State{}, nil
	}
	return doc.Accounts, nil
}

// Save replaces the entire persisted state. The document is written to a
// temporary file in the same directory, fsynced, then renamed over the
// target, so a crash mid-save leaves either the old state or the new one,
// never a half-written file.
func (s *Store) Save(_ context.Context, state watcher.State) error {
	raw, err := json.MarshalIndent(document{SavedAt: time.Now().UTC(), Accounts: state}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() // no-op once renamed

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return nil
}
