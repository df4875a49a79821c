package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/ryanm101/librelauncher/internal/game"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#66c0f4"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333333")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#2a475e")).
			Foreground(lipgloss.Color("#f0f4f6"))

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8a9298"))

	statusStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("241"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	reviewColors = map[game.ReviewClass]lipgloss.Color{
		game.ReviewPositive: lipgloss.Color("#66c0f4"),
		game.ReviewMixed:    lipgloss.Color("#b9940a"),
		game.ReviewNegative: lipgloss.Color("#c1483d"),
		game.ReviewNeutral:  lipgloss.Color("#a8a8a8"),
	}
)

// View renders the UI.
func (m model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	if m.showHelp {
		return m.viewHelp()
	}

	listWidth := max(m.width/3, 24)
	detailWidth := max(m.width-listWidth-6, 30)
	visible := max(m.height-6, 5)

	content := lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Width(listWidth).Render(m.viewList(visible)),
		panelStyle.Width(detailWidth).Render(m.viewDetail(detailWidth)),
	)

	status := fmt.Sprintf(" %d games", len(m.games))
	switch {
	case m.searching:
		status = " SEARCH: " + m.searchQuery
	case m.statusMsg != "":
		status = " " + m.statusMsg
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		content,
		statusStyle.Width(m.width).Render(status),
		helpStyle.Render("j/k: nav | Enter: play | f: favorite | e: enrich all | /: search | ?: help | q: quit"),
	)
}

func (m model) viewList(visible int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Library") + "\n\n")
	if len(m.games) == 0 {
		if m.searchQuery != "" {
			b.WriteString("No games match the search.")
		} else {
			b.WriteString("No games yet.\nUse CLI: librelauncher add <file>")
		}
		return b.String()
	}

	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := min(start+visible, len(m.games))
	for i := start; i < end; i++ {
		g := m.games[i]
		marker := "  "
		switch {
		case m.lib.Running(g.ExePath):
			marker = "▶ "
		case g.Favorite:
			marker = "★ "
		}
		line := marker + g.Name
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	if len(m.games) > visible {
		fmt.Fprintf(&b, "  (%d/%d)\n", m.cursor+1, len(m.games))
	}
	return b.String()
}

func (m model) viewDetail(width int) string {
	rec, ok := m.current()
	if !ok {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(rec.Name) + "\n\n")

	row := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(label), value)
	}
	row("Play time:  ", playTime(rec.PlayTime))
	if rec.LastPlayed != nil {
		row("Last played:", humanize.Time(*rec.LastPlayed))
	} else {
		row("Last played:", "Never")
	}

	if rec.ReviewSummary != nil {
		style := lipgloss.NewStyle().Bold(true).Foreground(reviewColors[game.ClassifyReview(*rec.ReviewSummary)])
		review := style.Render(*rec.ReviewSummary)
		if rec.ReviewPercentage != nil {
			review += " (" + strconv.Itoa(*rec.ReviewPercentage) + "% positive)"
		}
		row("Reviews:    ", review)
	} else {
		row("Reviews:    ", "N/A")
	}

	text := lipgloss.NewStyle().Width(width - 2)
	if rec.Description != "" {
		b.WriteString("\n" + text.Render(rec.Description) + "\n")
	} else if rec.Needs(game.AttrDescription) {
		b.WriteString("\nLoading description...\n")
	}
	if rec.SystemRequirements != nil && *rec.SystemRequirements != "" {
		b.WriteString("\n" + labelStyle.Render("System requirements") + "\n")
		b.WriteString(text.Render(*rec.SystemRequirements) + "\n")
	}
	if m.err != nil {
		fmt.Fprintf(&b, "\nError: %v\n", m.err)
	}
	return b.String()
}

func (m model) viewHelp() string {
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	keys := []struct{ key, desc string }{
		{"j/↓", "Move down"},
		{"k/↑", "Move up"},
		{"PgUp", "Page up"},
		{"PgDn", "Page down"},
		{"Enter", "Launch the selected game"},
		{"f", "Toggle favorite"},
		{"e", "Enrich every game missing metadata"},
		{"/", "Search by name"},
		{"r", "Reload the list"},
		{"?", "Toggle this help"},
		{"q", "Quit"},
	}
	lines := []string{titleStyle.Render("Keyboard Shortcuts"), ""}
	for _, k := range keys {
		lines = append(lines, keyStyle.Render(fmt.Sprintf("  %-6s", k.key))+"  "+descStyle.Render(k.desc))
	}
	lines = append(lines, "", helpStyle.Render("Press any key to close"))
	return strings.Join(lines, "\n")
}

func playTime(d time.Duration) string {
	h := int(d / time.Hour)
	mins := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", h, mins)
}
