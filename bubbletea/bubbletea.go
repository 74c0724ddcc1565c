// Package bubbletea provides an interactive terminal chat over a steward relay.
package bubbletea

import (
	"context"

	"github.com/cashflow/steward"
	tea "github.com/charmbracelet/bubbletea"
)

// ChatFunc answers message given the prior turns. The onEvent callback is
// called for each output event. The function blocks until the answer
// completes or the context is cancelled.
type ChatFunc func(ctx context.Context, history []steward.Turn, message string, onEvent func(steward.Event)) error

// Run creates and runs the Bubble Tea program. It blocks until the program
// exits. When ctx is cancelled, the program quits.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// StreamEventMsg wraps an output event for delivery to the model.
type StreamEventMsg struct {
	Event steward.Event
}

// ChatDoneMsg signals that one answer has finished.
type ChatDoneMsg struct {
	Err error
}
