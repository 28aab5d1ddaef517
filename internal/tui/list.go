package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gcanale/tmx/internal/search"
	"github.com/mattn/go-runewidth"
)

// linesPerItem is the number of terminal lines each result occupies.
const linesPerItem = 2

// renderList renders the left panel: search results list with scrolling.
func (m model) renderList(width, height int) string {
	if len(m.results) == 0 {
		empty := lipgloss.NewStyle().
			Foreground(colorDim).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render("No results")
		return empty
	}

	var lines []string
	for i, r := range m.results {
		if i < m.listOffset {
			continue
		}
		if len(lines)+linesPerItem > height {
			break
		}
		rows := formatResultLine(r, width, i == m.cursor)
		lines = append(lines, rows...)
	}

	// Pad remaining lines
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}

	return strings.Join(lines, "\n")
}

// kindStyle picks the list color for an artifact kind.
func kindStyle(kind string) lipgloss.Style {
	switch {
	case kind == "message" || kind == "attachment":
		return styleKindMessage
	case strings.HasPrefix(kind, "call") || strings.HasPrefix(kind, "meeting"):
		return styleKindCall
	default:
		return styleKindOther
	}
}

// formatResultLine formats a single search result as two lines:
//
//	line 1: [>] #id kind  source file
//	line 2:    snippet (dimmed)
func formatResultLine(r search.Result, width int, selected bool) []string {
	id := fmt.Sprintf("#%d", r.ArtifactID)
	kind := kindStyle(r.Kind).Render(r.Kind)

	// Truncate the source file name to fit width: leave room for id + kind
	doc := filepath.Base(r.DocPath)
	docMax := width - 2 - len(id) - runewidth.StringWidth(r.Kind) - 4
	if docMax < 0 {
		docMax = 0
	}
	if runewidth.StringWidth(doc) > docMax {
		doc = runewidth.Truncate(doc, docMax, "")
	}

	// Line 1: id kind source-file
	line1 := fmt.Sprintf("%s %s %s", id, kind, doc)
	if selected {
		line1 = styleListSelected.Render("> ") + line1
	} else {
		line1 = "  " + line1
	}

	// Line 2: snippet (dimmed, indented)
	snippet := strings.ReplaceAll(r.Snippet, "\n", " ")
	snippet = strings.ReplaceAll(snippet, "\t", " ")
	snippet = strings.ReplaceAll(snippet, ">>>", "")
	snippet = strings.ReplaceAll(snippet, "<<<", "")
	snippetMax := width - 4 // indent
	if snippetMax < 0 {
		snippetMax = 0
	}
	if runewidth.StringWidth(snippet) > snippetMax {
		snippet = runewidth.Truncate(snippet, snippetMax, "")
	}
	line2 := "    " + lipgloss.NewStyle().Foreground(colorDim).Render(snippet)

	return []string{line1, line2}
}

// adjustListScroll keeps the cursor visible within the list viewport.
func (m *model) adjustListScroll(listHeight int) {
	visibleItems := listHeight / linesPerItem
	if visibleItems < 1 {
		visibleItems = 1
	}
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visibleItems {
		m.listOffset = m.cursor - visibleItems + 1
	}
}
