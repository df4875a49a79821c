package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ryanm101/librelauncher/internal/game"
)

// outputConfig holds global output settings.
type outputConfig struct {
	JSON  bool
	Quiet bool
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printInfo prints a message unless quiet or JSON output is requested.
func (c *commandContext) printInfo(cmd *cobra.Command, format string, args ...any) {
	if c.output.Quiet || c.output.JSON {
		return
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8a9298"))
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f0f4f6"))

	reviewStyles = map[game.ReviewClass]lipgloss.Style{
		game.ReviewPositive: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#66c0f4")),
		game.ReviewMixed:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#b9940a")),
		game.ReviewNegative: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#c1483d")),
		game.ReviewNeutral:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#a8a8a8")),
	}
)

// styled renders s with style when colors are enabled.
func styled(style lipgloss.Style, s string, colorize bool) string {
	if !colorize {
		return s
	}
	return style.Render(s)
}

// formatPlayTime renders a duration as hours and minutes.
func formatPlayTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", h, m)
}
