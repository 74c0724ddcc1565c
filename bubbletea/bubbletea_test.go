package bubbletea_test

import (
	"context"
	"testing"

	"github.com/cashflow/steward"
	bt "github.com/cashflow/steward/bubbletea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

// initModel creates a model and sends a WindowSizeMsg to initialize the viewport.
func initModel(t *testing.T, chat bt.ChatFunc) bt.Model {
	t.Helper()
	return initModelWithSize(t, chat, 80, 24)
}

// initModelWithSize creates a model with a custom terminal size.
func initModelWithSize(t *testing.T, chat bt.ChatFunc, width, height int) bt.Model {
	t.Helper()
	m := bt.New(chat, &steward.Transcript{}, steward.DefaultTheme())
	return updateModel(t, m, tea.WindowSizeMsg{Width: width, Height: height})
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

// nopChat answers nothing.
func nopChat(context.Context, []steward.Turn, string, func(steward.Event)) error {
	return nil
}

// scripted returns a ChatFunc that emits events and returns err.
func scripted(err error, events ...steward.Event) bt.ChatFunc {
	return func(_ context.Context, _ []steward.Turn, _ string, onEvent func(steward.Event)) error {
		for _, e := range events {
			onEvent(e)
		}
		return err
	}
}
