// Package store persists the game registry.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/ryanm101/librelauncher/internal/game"
	"github.com/ryanm101/librelauncher/internal/logging"
	"github.com/ryanm101/librelauncher/internal/metrics"
)

// Store loads and saves the full registry.
type Store interface {
	// Load returns the persisted records. A missing store yields no records
	// and no error.
	Load(ctx context.Context) ([]game.Record, error)
	// Save replaces the persisted records with records.
	Save(ctx context.Context, records []game.Record) error
	Close() error
}

// Snapshotter provides the records to persist.
type Snapshotter interface {
	List() []game.Record
}

// Open returns the store for driver ("json" or "sqlite") at path.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", "json":
		return NewJSONStore(path), nil
	case "sqlite":
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// Gate is the single write path of the registry. Flushes are serialized and
// never fail the caller.
type Gate struct {
	mu    sync.Mutex
	store Store
}

// NewGate creates a gate writing to s.
func NewGate(s Store) *Gate {
	return &Gate{store: s}
}

// Flush snapshots src and saves it. Errors are logged and counted.
func (g *Gate) Flush(ctx context.Context, src Snapshotter) {
	_ = g.FlushErr(ctx, src)
}

// FlushErr is Flush for callers that want to report the error themselves.
// The error is logged and counted either way.
func (g *Gate) FlushErr(ctx context.Context, src Snapshotter) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	records := src.List()
	err := g.store.Save(ctx, records)
	metrics.RecordFlush(err)
	metrics.GamesTotal.Set(float64(len(records)))
	if err != nil {
		logging.Error("failed to persist registry", "error", err)
	}
	return err
}

// Load reads the registry through the underlying store. A corrupt store is
// logged and treated as empty.
func (g *Gate) Load(ctx context.Context) []game.Record {
	g.mu.Lock()
	defer g.mu.Unlock()

	records, err := g.store.Load(ctx)
	if err != nil {
		logging.Warn("failed to load registry, starting empty", "error", err)
		return nil
	}
	metrics.GamesTotal.Set(float64(len(records)))
	return records
}

// Close closes the underlying store.
func (g *Gate) Close() error {
	return g.store.Close()
}
