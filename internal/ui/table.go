package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// TableColumn defines a table column with name and width.
type TableColumn struct {
	Title string
	Width int
}

// NewTable creates a new Bubbles table with default styling.
func NewTable(columns []TableColumn, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{
			Title: c.Title,
			Width: c.Width,
		}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1), // +1 for header
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(string(ColorMuted))).
		BorderBottom(true).
		Bold(true).
		Foreground(lipgloss.Color(string(ColorPrimary)))
	s.Cell = s.Cell.
		Foreground(lipgloss.Color(string(ColorPrimary)))
	// Nothing is focused in CLI output, so the cursor row must look like the others.
	s.Selected = s.Cell

	t.SetStyles(s)
	return t
}

// RenderSimpleTable renders a non-interactive table string for CLI output.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}

	t := NewTable(columns, tableRows)
	return t.View()
}

// StatusTableRow is one alias in the reachability table.
type StatusTableRow struct {
	OK      bool
	Name    string // alias
	Target  string // user@host
	Latency string // latency, or the failure reason
}

// RenderStatusTable renders the result of checking every alias.
func RenderStatusTable(rows []StatusTableRow) string {
	if len(rows) == 0 {
		return "No hosts deployed"
	}

	successStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(string(ColorSuccess)))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(string(ColorError)))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(string(ColorMuted)))
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(string(ColorPrimary))).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(lipgloss.Color(string(ColorMuted)))

	nameWidth, targetWidth := len("NAME")+2, len("TARGET")+2
	for _, row := range rows {
		nameWidth = max(nameWidth, lipgloss.Width(row.Name)+2)
		targetWidth = max(targetWidth, lipgloss.Width(row.Target)+2)
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("  STATUS   "+padRight("NAME", nameWidth)+padRight("TARGET", targetWidth)+"LATENCY") + "\n")

	for _, row := range rows {
		icon, latency := errorStyle.Render(SymbolFail), errorStyle.Render(row.Latency)
		if row.OK {
			icon, latency = successStyle.Render(SymbolComplete), mutedStyle.Render(row.Latency)
		}
		b.WriteString("  " + icon + "        " +
			padRight(row.Name, nameWidth) +
			padRight(row.Target, targetWidth) +
			latency + "\n")
	}

	return b.String()
}

// padRight pads a string to the specified width.
func padRight(s string, width int) string {
	// Account for ANSI codes when calculating visible length
	visibleLen := lipgloss.Width(s)
	if visibleLen >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visibleLen)
}
