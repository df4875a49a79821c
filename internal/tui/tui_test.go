package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanm101/librelauncher/internal/enrich"
	"github.com/ryanm101/librelauncher/internal/game"
)

type fakeLibrary struct {
	reg    *game.Registry
	events chan enrich.Event

	mu        sync.Mutex
	selected  []string
	launched  []string
	launchErr error
	enriched  int
}

func newFakeLibrary(names ...string) *fakeLibrary {
	recs := make([]game.Record, 0, len(names))
	for _, n := range names {
		recs = append(recs, game.Record{Name: n, ExePath: "/games/" + n + ".exe"})
	}
	return &fakeLibrary{reg: game.NewRegistry(recs), events: make(chan enrich.Event, 4)}
}

func (f *fakeLibrary) List(filter string) []game.Record { return f.reg.Sorted(filter) }

func (f *fakeLibrary) Select(key string) (game.Record, error) {
	f.mu.Lock()
	f.selected = append(f.selected, key)
	f.mu.Unlock()
	rec, ok := f.reg.Get(key)
	if !ok {
		return game.Record{}, game.NotFoundError("get game", key)
	}
	return rec, nil
}

func (f *fakeLibrary) ToggleFavorite(ctx context.Context, key string) (game.Record, error) {
	return f.reg.Update(key, func(r *game.Record) { r.Favorite = !r.Favorite })
}

func (f *fakeLibrary) Launch(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.launchErr != nil {
		return f.launchErr
	}
	f.launched = append(f.launched, key)
	return nil
}

func (f *fakeLibrary) Running(key string) bool { return false }

func (f *fakeLibrary) EnrichAll() int {
	f.enriched++
	return f.reg.Len()
}

func (f *fakeLibrary) Events() <-chan enrich.Event { return f.events }

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// step applies msg and runs the resulting command once, feeding its message
// back into the model.
func step(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(model)
	if cmd == nil {
		return m
	}
	out := cmd()
	if _, isBatch := out.(tea.BatchMsg); isBatch {
		return m
	}
	next, _ = m.Update(out)
	return next.(model)
}

func loaded(t *testing.T, lib *fakeLibrary) model {
	t.Helper()
	m := newModel(context.Background(), lib)
	return step(t, m, m.loadGames()())
}

func TestModel_LoadSelectsFirstGame(t *testing.T) {
	lib := newFakeLibrary("Portal", "Half-Life 2")
	m := loaded(t, lib)

	require.Len(t, m.games, 2)
	assert.Equal(t, "Half-Life 2", m.games[0].Name)
	assert.Equal(t, "/games/Half-Life 2.exe", m.selected)
	assert.Equal(t, []string{"/games/Half-Life 2.exe"}, lib.selected)
}

func TestModel_NavigationSelects(t *testing.T) {
	lib := newFakeLibrary("a", "b", "c")
	m := loaded(t, lib)

	m = step(t, m, key("j"))
	assert.Equal(t, 1, m.cursor)
	assert.Equal(t, "/games/b.exe", m.selected)

	m = step(t, m, key("j"))
	m = step(t, m, key("j"))
	assert.Equal(t, 2, m.cursor, "cursor stops at end")

	m = step(t, m, key("k"))
	assert.Equal(t, 1, m.cursor)

	m = step(t, m, tea.KeyMsg{Type: tea.KeyPgUp})
	assert.Equal(t, 0, m.cursor)
	m = step(t, m, tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, 2, m.cursor)
}

func TestModel_Search(t *testing.T) {
	lib := newFakeLibrary("Portal", "Portal 2", "Half-Life 2")
	m := loaded(t, lib)

	m = step(t, m, key("/"))
	assert.True(t, m.searching)
	for _, r := range "port" {
		m = step(t, m, key(string(r)))
	}
	assert.Equal(t, "port", m.searchQuery)
	assert.Len(t, m.games, 2)

	m = step(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "por", m.searchQuery)

	m = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.searching)
}

func TestModel_FavoriteAndLaunch(t *testing.T) {
	lib := newFakeLibrary("Portal")
	m := loaded(t, lib)

	m = step(t, m, key("f"))
	assert.Equal(t, "Portal added to favorites", m.statusMsg)
	rec, _ := lib.reg.Get("/games/Portal.exe")
	assert.True(t, rec.Favorite)

	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "Started Portal", m.statusMsg)
	assert.Equal(t, []string{"/games/Portal.exe"}, lib.launched)

	lib.launchErr = errors.New("exec format error")
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.statusMsg, "exec format error")
}

func TestModel_EnrichAll(t *testing.T) {
	lib := newFakeLibrary("a", "b")
	m := loaded(t, lib)

	m = step(t, m, key("e"))
	assert.Equal(t, 1, lib.enriched)
	assert.Equal(t, "Enriching 2 games...", m.statusMsg)
}

func TestModel_EventRefreshesList(t *testing.T) {
	lib := newFakeLibrary("Portal")
	m := loaded(t, lib)

	_, err := lib.reg.Update("/games/Portal.exe", func(r *game.Record) { r.Description = "cake" })
	require.NoError(t, err)
	lib.events <- enrich.Event{Kind: enrich.EventDetails, Key: "/games/Portal.exe"}

	msg := m.waitForEvent()()
	next, cmd := m.Update(msg)
	m = next.(model)
	assert.Equal(t, "Updated details for Portal", m.statusMsg)
	require.NotNil(t, cmd)

	m = step(t, m, m.loadGames()())
	assert.Equal(t, "cake", m.games[0].Description)
	assert.Len(t, lib.selected, 1, "reloading does not select again")
}

func TestModel_EventsClosed(t *testing.T) {
	lib := newFakeLibrary()
	close(lib.events)
	m := newModel(context.Background(), lib)

	msg := m.waitForEvent()()
	assert.IsType(t, eventsClosedMsg{}, msg)
	_, cmd := m.Update(msg)
	assert.Nil(t, cmd)
}

func TestModel_QuitAndHelp(t *testing.T) {
	m := newModel(context.Background(), newFakeLibrary())

	_, cmd := m.Update(key("q"))
	assert.NotNil(t, cmd)

	next, _ := m.Update(key("?"))
	m = next.(model)
	assert.True(t, m.showHelp)
	next, _ = m.Update(key("x"))
	assert.False(t, next.(model).showHelp)
}

func TestView(t *testing.T) {
	m := newModel(context.Background(), newFakeLibrary())
	assert.Equal(t, "Loading...", m.View())

	summary, pct := "Mostly Positive", 78
	lib := newFakeLibrary()
	require.NoError(t, lib.reg.Add(game.Record{
		Name:             "Portal",
		ExePath:          "/games/portal.exe",
		ReviewSummary:    &summary,
		ReviewPercentage: &pct,
	}))
	m = loaded(t, lib)
	m = step(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})

	view := m.View()
	assert.Contains(t, view, "Portal")
	assert.Contains(t, view, "Mostly Positive")
	assert.Contains(t, view, "78% positive")
	assert.Contains(t, view, "Never")
	assert.True(t, strings.Contains(view, "1 games"))

	m.showHelp = true
	assert.Contains(t, m.View(), "Keyboard Shortcuts")
}

func TestDescribeEvent(t *testing.T) {
	assert.Equal(t, "Portal exited", describeEvent(enrich.Event{Kind: enrich.EventPlayed}, "Portal"))
	assert.Equal(t, "Updated icon for Portal", describeEvent(enrich.Event{Kind: enrich.EventIcon}, "Portal"))
	assert.Contains(t, describeEvent(enrich.Event{Kind: enrich.EventLaunchFailed, Err: errors.New("boom")}, "Portal"), "boom")
}
