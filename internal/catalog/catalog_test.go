package catalog

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	calls   atomic.Int32
	entries []Entry
	err     error
	release chan struct{}
}

func (f *fakeFetcher) FetchAppList(ctx context.Context, progress io.Writer) ([]Entry, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if progress != nil {
		_, _ = progress.Write([]byte("x"))
	}
	return f.entries, f.err
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "steam_app_list.json")
	idx := NewIndex([]Entry{{AppID: 220, Name: "Half-Life 2"}, {AppID: 400, Name: "Portal"}})

	require.NoError(t, SaveFile(path, idx))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, idx.Entries(), got.Entries())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"appid\": 220")
}

func TestLoadFile_MissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()

	idx, err := LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
	assert.Equal(t, 0, idx.Len())

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0644)) // #nosec G306
	idx, err = LoadFile(corrupt)
	assert.Error(t, err)
	assert.Equal(t, 0, idx.Len())
}

func TestIndex_NilSafe(t *testing.T) {
	var idx *Index
	assert.Equal(t, 0, idx.Len())
	assert.Nil(t, idx.Entries())
}

func TestService_PrefersSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apps.json")
	require.NoError(t, SaveFile(path, NewIndex([]Entry{{AppID: 1, Name: "Cached"}})))

	f := &fakeFetcher{entries: []Entry{{AppID: 2, Name: "Remote"}}}
	svc := NewService(path, f)

	<-svc.Ensure(context.Background())

	assert.Equal(t, int32(0), f.calls.Load())
	assert.Equal(t, "Cached", svc.Index().Entries()[0].Name)
}

func TestService_EnsureRefreshesWhenEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apps.json")
	f := &fakeFetcher{entries: []Entry{{AppID: 2, Name: "Remote"}}}
	svc := NewService(path, f)

	<-svc.Ensure(context.Background())

	assert.Equal(t, 1, svc.Index().Len())
	persisted, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Remote", persisted.Entries()[0].Name)
}

func TestService_RefreshOncePerProcess(t *testing.T) {
	f := &fakeFetcher{err: errors.New("connection refused")}
	svc := NewService(filepath.Join(t.TempDir(), "apps.json"), f)

	idx, err := svc.Refresh(context.Background(), nil)
	assert.Error(t, err)
	assert.Equal(t, 0, idx.Len())

	idx, err = svc.Refresh(context.Background(), nil)
	assert.Error(t, err, "the failure is remembered for the session")
	assert.Equal(t, 0, idx.Len())
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestService_ConcurrentRefreshCollapses(t *testing.T) {
	f := &fakeFetcher{entries: []Entry{{AppID: 7, Name: "Seven"}}, release: make(chan struct{})}
	svc := NewService(filepath.Join(t.TempDir(), "apps.json"), f)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			idx, err := svc.Refresh(context.Background(), nil)
			assert.NoError(t, err)
			assert.Equal(t, 1, idx.Len())
		}()
	}
	close(f.release)
	wg.Wait()

	assert.Equal(t, int32(1), f.calls.Load())
}

func TestService_RefreshFailureKeepsLoadedIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apps.json")
	require.NoError(t, SaveFile(path, NewIndex([]Entry{{AppID: 1, Name: "Cached"}})))

	svc := NewService(path, &fakeFetcher{err: errors.New("timeout")})
	svc.Load()

	_, err := svc.Refresh(context.Background(), nil)
	assert.Error(t, err)
	assert.Equal(t, 1, svc.Index().Len())
}
