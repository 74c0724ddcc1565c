// Package goldmark renders markdown answers to ANSI-styled terminal output
// using goldmark for parsing and lipgloss for styling.
//
// Model answers lean on GFM tables for budgets and balance sheets, so the
// parser runs with the GFM extension and tables are laid out in aligned
// columns.
package goldmark

import "github.com/cashflow/steward"

// Render parses markdown source and returns ANSI-styled terminal output.
// Paragraphs and list items are word-wrapped to width. Code blocks and
// tables are rendered without reflow.
func Render(source string, width int, theme steward.Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	r := newRenderer(theme)
	return r.render([]byte(source), width)
}
