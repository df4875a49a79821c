package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ryanm101/librelauncher/internal/game"
	"github.com/ryanm101/librelauncher/internal/metrics"
)

func sampleRecords() []game.Record {
	summary := "Very Positive"
	pct := 92
	reqs := "OS: Windows 10\nMemory: 8 GB RAM"
	played := time.UnixMicro(1700000000123456)

	full := game.Record{
		Name:               "Half-Life 2",
		ExePath:            "/games/hl2/hl2.exe",
		IconPath:           "/data/game_icons/HalfLife2.png",
		BannerPath:         "/data/game_banners/HalfLife2.jpg",
		Description:        "Gordon returns.",
		PlayTime:           90*time.Minute + 1500*time.Microsecond,
		LastPlayed:         &played,
		Favorite:           true,
		ReviewSummary:      &summary,
		ReviewPercentage:   &pct,
		SystemRequirements: &reqs,
	}
	full.SetStatus(game.AttrReviews, game.StatusFetched)
	full.SetStatus(game.AttrDescription, game.StatusFetched)
	full.SetStatus(game.AttrRequirements, game.StatusFailed)

	bare := game.Record{Name: "Indie", ExePath: "/games/indie/run.exe"}
	return []game.Record{full, bare}
}

func assertSameRecords(t *testing.T, want, got []game.Record) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		w, g := want[i], got[i]
		assert.Equal(t, w.Name, g.Name)
		assert.Equal(t, w.ExePath, g.ExePath)
		assert.Equal(t, w.IconPath, g.IconPath)
		assert.Equal(t, w.BannerPath, g.BannerPath)
		assert.Equal(t, w.Description, g.Description)
		assert.Equal(t, w.PlayTime, g.PlayTime)
		assert.Equal(t, w.Favorite, g.Favorite)
		assert.Equal(t, w.ReviewSummary, g.ReviewSummary)
		assert.Equal(t, w.ReviewPercentage, g.ReviewPercentage)
		assert.Equal(t, w.SystemRequirements, g.SystemRequirements)
		if w.LastPlayed == nil {
			assert.Nil(t, g.LastPlayed)
		} else {
			require.NotNil(t, g.LastPlayed)
			assert.Equal(t, w.LastPlayed.UnixMicro(), g.LastPlayed.UnixMicro())
		}
		for _, attr := range game.Attributes {
			assert.Equal(t, w.StatusOf(attr), g.StatusOf(attr), "status of %s", attr)
		}
	}
}

func TestJSONStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "games.json")
	s := NewJSONStore(path)
	ctx := context.Background()

	records := sampleRecords()
	require.NoError(t, s.Save(ctx, records))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assertSameRecords(t, records, loaded)

	// No temp files are left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestJSONStore_Layout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.json")
	s := NewJSONStore(path)
	require.NoError(t, s.Save(context.Background(), []game.Record{{Name: "Игра", ExePath: "/g.exe"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[\n    {\n")
	assert.Contains(t, string(data), `"name": "Игра"`)
	assert.Contains(t, string(data), `"icon_path": null`)
}

func TestJSONStore_EmptySave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.json")
	s := NewJSONStore(path)
	require.NoError(t, s.Save(context.Background(), nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestJSONStore_LoadMissing(t *testing.T) {
	s := NewJSONStore(filepath.Join(t.TempDir(), "absent.json"))
	records, err := s.Load(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestJSONStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	records, err := NewJSONStore(path).Load(context.Background())
	assert.Error(t, err)
	assert.Empty(t, records)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "games.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	records := sampleRecords()
	require.NoError(t, s.Save(ctx, records))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assertSameRecords(t, records, loaded)

	// Saving again replaces everything.
	require.NoError(t, s.Save(ctx, records[1:]))
	loaded, err = s.Load(ctx)
	require.NoError(t, err)
	assertSameRecords(t, records[1:], loaded)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), sampleRecords()))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	loaded, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open("json", filepath.Join(dir, "games.json"))
	require.NoError(t, err)
	assert.IsType(t, &JSONStore{}, s)

	s, err = Open("sqlite", filepath.Join(dir, "games.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	_ = s.Close()

	_, err = Open("bolt", filepath.Join(dir, "games.bolt"))
	assert.Error(t, err)
}

// MockStore is a mock implementation of Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Load(ctx context.Context) ([]game.Record, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]game.Record), args.Error(1)
}

func (m *MockStore) Save(ctx context.Context, records []game.Record) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockStore) Close() error {
	return m.Called().Error(0)
}

func TestGate_FlushSwallowsErrors(t *testing.T) {
	ms := new(MockStore)
	ms.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	reg := game.NewRegistry(sampleRecords())
	gate := NewGate(ms)

	before := testutil.ToFloat64(metrics.Flushes.WithLabelValues("error"))
	assert.NotPanics(t, func() { gate.Flush(context.Background(), reg) })
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.Flushes.WithLabelValues("error")))
	assert.Error(t, gate.FlushErr(context.Background(), reg))
	ms.AssertNumberOfCalls(t, "Save", 2)
}

func TestGate_FlushSnapshotsRegistry(t *testing.T) {
	ms := new(MockStore)
	ms.On("Save", mock.Anything, mock.MatchedBy(func(records []game.Record) bool {
		return len(records) == 2 && records[0].ExePath == "/games/hl2/hl2.exe"
	})).Return(nil)

	gate := NewGate(ms)
	gate.Flush(context.Background(), game.NewRegistry(sampleRecords()))
	ms.AssertExpectations(t)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.GamesTotal))
}

func TestGate_LoadCorruptIsEmpty(t *testing.T) {
	ms := new(MockStore)
	ms.On("Load", mock.Anything).Return(nil, errors.New("corrupt"))

	gate := NewGate(ms)
	assert.Empty(t, gate.Load(context.Background()))
}
