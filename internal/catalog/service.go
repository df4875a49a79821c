package catalog

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/ryanm101/librelauncher/internal/logging"
	"github.com/ryanm101/librelauncher/internal/metrics"
)

// Fetcher downloads the full catalog. Progress, when non-nil, receives the
// raw response bytes as they are read.
type Fetcher interface {
	FetchAppList(ctx context.Context, progress io.Writer) ([]Entry, error)
}

// Service owns the process-wide catalog index. The index is loaded from the
// snapshot file when possible and refreshed from the network at most once
// per process.
type Service struct {
	path    string
	fetcher Fetcher

	idx   atomic.Pointer[Index]
	group singleflight.Group

	mu         sync.Mutex
	refreshed  bool
	refreshErr error
}

// NewService creates a catalog service backed by the snapshot at path.
func NewService(path string, f Fetcher) *Service {
	s := &Service{path: path, fetcher: f}
	s.idx.Store(NewIndex(nil))
	return s
}

// Index returns the current index. It never blocks and never returns nil.
func (s *Service) Index() *Index {
	return s.idx.Load()
}

// Load reads the snapshot file into the service. A stale snapshot is still
// used; a missing or corrupt one leaves the index empty.
func (s *Service) Load() *Index {
	idx, err := LoadFile(s.path)
	if err != nil {
		logging.Debug("catalog snapshot unavailable", "path", s.path, "error", err)
	}
	s.set(idx)
	return idx
}

// Refresh downloads the catalog, replaces the index in full and persists the
// snapshot. Only the first call per process touches the network; later and
// concurrent calls share its outcome. On failure the returned index is empty
// and the previously loaded index stays in place.
func (s *Service) Refresh(ctx context.Context, progress io.Writer) (*Index, error) {
	v, err, _ := s.group.Do("refresh", func() (any, error) {
		s.mu.Lock()
		if s.refreshed {
			err := s.refreshErr
			s.mu.Unlock()
			if err != nil {
				return NewIndex(nil), err
			}
			return s.Index(), nil
		}
		s.mu.Unlock()

		idx, err := s.refresh(ctx, progress)

		s.mu.Lock()
		s.refreshed = true
		s.refreshErr = err
		s.mu.Unlock()
		return idx, err
	})
	return v.(*Index), err
}

func (s *Service) refresh(ctx context.Context, progress io.Writer) (*Index, error) {
	entries, err := s.fetcher.FetchAppList(ctx, progress)
	if err != nil {
		logging.Warn("catalog refresh failed", "error", err)
		return NewIndex(nil), err
	}

	idx := NewIndex(entries)
	s.set(idx)
	if err := SaveFile(s.path, idx); err != nil {
		logging.Warn("failed to persist catalog snapshot", "path", s.path, "error", err)
	}
	logging.Info("catalog refreshed", "entries", idx.Len())
	return idx, nil
}

// Ensure loads the snapshot and, when it is empty, starts a background
// refresh. It returns without waiting for the network.
func (s *Service) Ensure(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if s.Load().Len() > 0 {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		_, _ = s.Refresh(context.WithoutCancel(ctx), nil)
	}()
	return done
}

func (s *Service) set(idx *Index) {
	s.idx.Store(idx)
	metrics.CatalogEntries.Set(float64(idx.Len()))
}
