// Package tui is a terminal browser for the game library.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ryanm101/librelauncher/internal/enrich"
	"github.com/ryanm101/librelauncher/internal/game"
)

// Library is the part of the launcher core the browser drives.
type Library interface {
	List(filter string) []game.Record
	Select(key string) (game.Record, error)
	ToggleFavorite(ctx context.Context, key string) (game.Record, error)
	Launch(ctx context.Context, key string) error
	Running(key string) bool
	EnrichAll() int
	Events() <-chan enrich.Event
}

// Run shows the browser until the user quits or ctx is cancelled.
func Run(ctx context.Context, lib Library) error {
	p := tea.NewProgram(newModel(ctx, lib), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

type model struct {
	ctx context.Context
	lib Library

	games    []game.Record
	cursor   int
	selected string
	width    int
	height   int
	err      error

	// Search
	searching   bool
	searchQuery string

	statusMsg string
	showHelp  bool
}

func newModel(ctx context.Context, lib Library) model {
	return model{ctx: ctx, lib: lib}
}

type gamesMsg struct {
	games []game.Record
}

type selectedMsg struct {
	rec game.Record
	err error
}

type eventMsg struct {
	event enrich.Event
}

type eventsClosedMsg struct{}

type actionMsg struct {
	status string
	err    error
}

// Init loads the list and starts listening for background events.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.loadGames(), m.waitForEvent())
}

func (m model) loadGames() tea.Cmd {
	lib, query := m.lib, m.searchQuery
	return func() tea.Msg {
		return gamesMsg{games: lib.List(query)}
	}
}

func (m model) waitForEvent() tea.Cmd {
	events := m.lib.Events()
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{event: e}
	}
}

// selectCurrent selects the game under the cursor, which schedules whatever
// metadata it is missing.
func (m model) selectCurrent() tea.Cmd {
	if m.cursor >= len(m.games) {
		return nil
	}
	lib, key := m.lib, m.games[m.cursor].ExePath
	return func() tea.Msg {
		rec, err := lib.Select(key)
		return selectedMsg{rec: rec, err: err}
	}
}

func (m model) current() (game.Record, bool) {
	if m.cursor < 0 || m.cursor >= len(m.games) {
		return game.Record{}, false
	}
	return m.games[m.cursor], true
}

// Update handles messages.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		return m.handleKey(msg)

	case gamesMsg:
		m.games = msg.games
		if m.cursor >= len(m.games) {
			m.cursor = max(len(m.games)-1, 0)
		}
		if rec, ok := m.current(); ok && rec.ExePath != m.selected {
			return m, m.selectCurrent()
		}

	case selectedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.selected = msg.rec.ExePath
		}

	case eventMsg:
		m.statusMsg = describeEvent(msg.event, m.nameOf(msg.event.Key))
		return m, tea.Batch(m.loadGames(), m.waitForEvent())

	case eventsClosedMsg:
		return m, nil

	case actionMsg:
		m.err = msg.err
		if msg.err != nil {
			m.statusMsg = msg.err.Error()
		} else {
			m.statusMsg = msg.status
		}
		return m, m.loadGames()
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "?" && !m.searching {
		m.showHelp = !m.showHelp
		return m, nil
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.searching {
		switch msg.String() {
		case "enter", "esc":
			m.searching = false
			return m, nil
		case "backspace":
			if r := []rune(m.searchQuery); len(r) > 0 {
				m.searchQuery = string(r[:len(r)-1])
			}
		default:
			if msg.Type == tea.KeyRunes {
				m.searchQuery += string(msg.Runes)
			}
		}
		m.cursor = 0
		return m, m.loadGames()
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			return m, m.selectCurrent()
		}
	case "down", "j":
		if m.cursor < len(m.games)-1 {
			m.cursor++
			return m, m.selectCurrent()
		}
	case "pgup":
		m.cursor = max(m.cursor-10, 0)
		return m, m.selectCurrent()
	case "pgdown":
		m.cursor = max(min(m.cursor+10, len(m.games)-1), 0)
		return m, m.selectCurrent()
	case "/":
		m.searching = true
		m.searchQuery = ""
		return m, nil
	case "f":
		if rec, ok := m.current(); ok {
			return m, m.toggleFavorite(rec)
		}
	case "enter":
		if rec, ok := m.current(); ok {
			return m, m.launch(rec)
		}
	case "e":
		n := m.lib.EnrichAll()
		m.statusMsg = fmt.Sprintf("Enriching %d games...", n)
	case "r":
		m.statusMsg = "Refreshing..."
		return m, m.loadGames()
	}
	return m, nil
}

func (m model) toggleFavorite(rec game.Record) tea.Cmd {
	lib, ctx := m.lib, m.ctx
	return func() tea.Msg {
		updated, err := lib.ToggleFavorite(ctx, rec.ExePath)
		if err != nil {
			return actionMsg{err: err}
		}
		if updated.Favorite {
			return actionMsg{status: rec.Name + " added to favorites"}
		}
		return actionMsg{status: rec.Name + " removed from favorites"}
	}
}

func (m model) launch(rec game.Record) tea.Cmd {
	lib, ctx := m.lib, m.ctx
	return func() tea.Msg {
		if err := lib.Launch(ctx, rec.ExePath); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "Started " + rec.Name}
	}
}

func (m model) nameOf(key string) string {
	for _, g := range m.games {
		if g.ExePath == key {
			return g.Name
		}
	}
	return key
}

func describeEvent(e enrich.Event, name string) string {
	switch e.Kind {
	case enrich.EventDetails:
		return "Updated details for " + name
	case enrich.EventIcon:
		return "Updated icon for " + name
	case enrich.EventLaunchFailed:
		return fmt.Sprintf("Failed to launch %s: %v", name, e.Err)
	case enrich.EventPlayed:
		return name + " exited"
	}
	return ""
}
