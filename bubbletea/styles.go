package bubbletea

import (
	"strconv"

	"github.com/cashflow/steward"
	"github.com/charmbracelet/lipgloss"
)

// Styles maps a Theme to lipgloss styles for TUI rendering.
type Styles struct {
	Question lipgloss.Style
	Thinking lipgloss.Style
	Error    lipgloss.Style
	Muted    lipgloss.Style
	Accent   lipgloss.Style
}

// NewStyles creates Styles from a Theme.
func NewStyles(t steward.Theme) Styles {
	return Styles{
		Question: lipgloss.NewStyle().Foreground(ansiColor(t.Question)).Bold(true),
		Thinking: lipgloss.NewStyle().Foreground(ansiColor(t.Thinking)).Faint(true),
		Error:    lipgloss.NewStyle().Foreground(ansiColor(t.Error)),
		Muted:    lipgloss.NewStyle().Foreground(ansiColor(t.Muted)).Faint(true),
		Accent:   lipgloss.NewStyle().Foreground(ansiColor(t.Accent)).Bold(true),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}
