package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cashflow/steward"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

var _ tea.Model = Model{}

// Model is the Bubble Tea model for the chat TUI.
type Model struct {
	// Input is the question input. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable conversation. Exported for test access.
	Viewport viewport.Model

	chat       ChatFunc
	transcript *steward.Transcript
	theme      steward.Theme
	styles     Styles

	blocks     []MessageBlock
	blockFocus int // index of focused reasoning block (-1 = none)

	// Current exchange. The transcript gains both turns only when the
	// answer finishes without an error event.
	question string
	reply    string
	failed   bool

	running bool
	cancel  context.CancelFunc
	eventCh chan steward.Event
	doneCh  chan error
	err     error
	ready   bool
}

// New creates a chat Model. Completed exchanges are appended to transcript.
func New(chat ChatFunc, transcript *steward.Transcript, theme steward.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about your finances..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		Input:      ti,
		chat:       chat,
		transcript: transcript,
		theme:      theme,
		styles:     NewStyles(theme),
		blockFocus: -1,
	}
}

// Running returns whether an answer is streaming.
func (m Model) Running() bool { return m.running }

// Err returns the last error, if any.
func (m Model) Err() error { return m.err }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamEventMsg:
		m = m.processEvent(msg.Event)
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		if m.eventCh != nil {
			return m, listenForEvent(m.eventCh, m.doneCh)
		}
		return m, nil

	case ChatDoneMsg:
		if m.cancel != nil {
			m.cancel()
		}
		m.running = false
		m.cancel = nil
		m.eventCh = nil
		m.doneCh = nil
		switch {
		case msg.Err == nil && !m.failed:
			m.transcript.Append(steward.RoleUser, m.question)
			m.transcript.Append(steward.RoleAssistant, m.reply)
		case msg.Err != nil && !errors.Is(msg.Err, context.Canceled):
			m.err = msg.Err
		}
		m = m.updateBlockFocus()
		cmds = append(cmds, m.Input.Focus())
		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputHeight := 1
	statusHeight := 1
	borderHeight := 2 // newlines between sections
	vpHeight := max(msg.Height-inputHeight-statusHeight-borderHeight, 1)

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m = m.renderTranscript()
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()

	m.Input.Width = msg.Width
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submit(text)

	case tea.KeyTab:
		if !m.running && m.blockFocus >= 0 {
			block, cmd := m.blocks[m.blockFocus].Update(ToggleMsg{})
			m.blocks[m.blockFocus] = block
			m.Viewport.SetContent(m.renderContent())
			return m, cmd
		}
		return m, nil

	case tea.KeyShiftTab:
		if !m.running {
			m = m.cycleFocusPrev()
			m.Viewport.SetContent(m.renderContent())
		}
		return m, nil
	}

	// Runes go to the input only, since the viewport binds j/k.
	if !m.running {
		var cmd tea.Cmd
		var cmds []tea.Cmd
		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.err = nil
	m.question = text
	m.reply = ""
	m.failed = false

	m.blocks = append(m.blocks, NewQuestionBlock(text, m.styles))
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()

	history := append([]steward.Turn(nil), m.transcript.Turns...)
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.eventCh = make(chan steward.Event, 256)
	m.doneCh = make(chan error, 1)
	m.running = true

	m.Input.Blur()

	return m, tea.Batch(
		startChat(ctx, m.chat, history, text, m.eventCh, m.doneCh),
		listenForEvent(m.eventCh, m.doneCh),
	)
}

// renderTranscript creates blocks for turns loaded before the program started.
func (m Model) renderTranscript() Model {
	for _, t := range m.transcript.Turns {
		switch t.Role {
		case steward.RoleUser:
			m.blocks = append(m.blocks, NewQuestionBlock(t.Content, m.styles))
		case steward.RoleAssistant:
			b := NewAnswerBlock(m.theme)
			b.Append(t.Content)
			m.blocks = append(m.blocks, b)
		}
	}
	return m
}

func (m Model) renderContent() string {
	var b strings.Builder
	for i, block := range m.blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(block.View(m.Viewport.Width))
	}
	return b.String()
}

// processEvent routes an output event to the trailing block of its kind,
// starting a new block when the kind changes.
func (m Model) processEvent(evt steward.Event) Model {
	switch e := evt.(type) {
	case steward.EventAnswer:
		m.reply += e.Text
		if b, ok := m.last().(*AnswerBlock); ok {
			b.Append(e.Text)
			return m
		}
		b := NewAnswerBlock(m.theme)
		b.Append(e.Text)
		m.blocks = append(m.blocks, b)
	case steward.EventThinking:
		if b, ok := m.last().(*ThinkingBlock); ok {
			b.Append(e.Text)
			return m
		}
		b := NewThinkingBlock(m.theme, m.styles)
		b.Append(e.Text)
		m.blocks = append(m.blocks, b)
		m = m.updateBlockFocus()
	case steward.EventError:
		m.failed = true
		m.blocks = append(m.blocks, NewErrorBlock(e.Message, m.styles))
	}
	return m
}

func (m Model) last() MessageBlock {
	if len(m.blocks) == 0 {
		return nil
	}
	return m.blocks[len(m.blocks)-1]
}

// updateBlockFocus focuses the last reasoning block.
func (m Model) updateBlockFocus() Model {
	m.blockFocus = -1
	for i := len(m.blocks) - 1; i >= 0; i-- {
		if _, ok := m.blocks[i].(*ThinkingBlock); ok {
			m.blockFocus = i
			return m
		}
	}
	return m
}

// cycleFocusPrev moves focus to the previous reasoning block, wrapping around.
func (m Model) cycleFocusPrev() Model {
	start := m.blockFocus - 1
	if start < 0 {
		start = len(m.blocks) - 1
	}
	for i := range len(m.blocks) {
		idx := (start - i + len(m.blocks)) % len(m.blocks)
		if _, ok := m.blocks[idx].(*ThinkingBlock); ok {
			m.blockFocus = idx
			return m
		}
	}
	m.blockFocus = -1
	return m
}

func (m Model) statusLine() string {
	if m.err != nil {
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	}
	if m.running {
		return m.styles.Muted.Render("Thinking about your numbers...")
	}
	return m.styles.Muted.Render("Enter to ask, Tab to show reasoning, Ctrl+C to quit")
}

// startChat runs chat in a goroutine and signals completion.
func startChat(ctx context.Context, chat ChatFunc, history []steward.Turn, message string, eventCh chan<- steward.Event, doneCh chan<- error) tea.Cmd {
	return func() tea.Msg {
		err := chat(ctx, history, message, func(e steward.Event) {
			select {
			case eventCh <- e:
			case <-ctx.Done():
			}
		})
		close(eventCh)
		doneCh <- err
		return nil
	}
}

// listenForEvent waits for the next event. When the channel closes, it
// reads the result from doneCh.
func listenForEvent(ch <-chan steward.Event, doneCh <-chan error) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return ChatDoneMsg{Err: <-doneCh}
		}
		return StreamEventMsg{Event: evt}
	}
}
