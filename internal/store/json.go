package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/ryanm101/librelauncher/internal/game"
)

const lockRetryDelay = 50 * time.Millisecond

// JSONStore keeps the registry in an indented JSON array. Writers across
// processes are serialized by an advisory lock next to the file.
type JSONStore struct {
	path string
	lock *flock.Flock
}

// NewJSONStore creates a store for the file at path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path, lock: flock.New(path + ".lock")}
}

// Path returns the registry file path.
func (s *JSONStore) Path() string {
	return s.path
}

// Load reads the registry file.
func (s *JSONStore) Load(ctx context.Context) ([]game.Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}

	var records []game.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", s.path, err)
	}
	return records, nil
}

// Save writes records to a temporary file and renames it over the registry.
func (s *JSONStore) Save(ctx context.Context, records []game.Record) error {
	if records == nil {
		records = []game.Record{}
	}
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil { //nolint:gosec // Standard dir permissions
		return fmt.Errorf("create registry dir: %w", err)
	}

	ok, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock registry: %w", err)
	}
	if !ok {
		return fmt.Errorf("lock registry: %s is busy", s.path)
	}
	defer func() { _ = s.lock.Unlock() }()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write registry: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace registry: %w", err)
	}
	return nil
}

// Close releases nothing; the lock is only held during Save.
func (s *JSONStore) Close() error {
	return nil
}
