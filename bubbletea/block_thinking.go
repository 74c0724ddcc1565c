package bubbletea

import (
	"fmt"
	"strings"

	"github.com/cashflow/steward"
	"github.com/cashflow/steward/goldmark"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var _ MessageBlock = (*ThinkingBlock)(nil)

// ThinkingBlock holds the model's reasoning for one answer. Collapsed, it
// shows a header with the word count. Expanded, the reasoning is rendered
// as markdown behind a muted gutter.
type ThinkingBlock struct {
	content   strings.Builder
	collapsed bool
	theme     steward.Theme
	styles    Styles
}

// NewThinkingBlock creates a ThinkingBlock that starts collapsed.
func NewThinkingBlock(theme steward.Theme, styles Styles) *ThinkingBlock {
	return &ThinkingBlock{collapsed: true, theme: theme, styles: styles}
}

// Append adds reasoning text.
func (b *ThinkingBlock) Append(text string) {
	b.content.WriteString(text)
}

// Words returns the number of words of reasoning received so far.
func (b *ThinkingBlock) Words() int {
	return len(strings.Fields(b.content.String()))
}

func (b *ThinkingBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	if _, ok := msg.(ToggleMsg); ok {
		b.collapsed = !b.collapsed
	}
	return b, nil
}

func (b *ThinkingBlock) View(width int) string {
	indicator, hint := "▶", "Tab to show"
	if !b.collapsed {
		indicator, hint = "▼", "Tab to hide"
	}
	header := fmt.Sprintf("%s Reasoning · %s · %s", indicator, wordCount(b.Words()), hint)
	header = b.styles.Thinking.Render(lipgloss.NewStyle().Width(width).Render(header))

	body := strings.TrimRight(goldmark.Render(b.content.String(), max(width-2, 1), b.theme), "\n")
	if b.collapsed || body == "" {
		return header
	}
	gutter := b.styles.Muted.Render("│") + " "
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = gutter + b.styles.Thinking.Render(line)
	}
	return header + "\n" + strings.Join(lines, "\n")
}

func wordCount(n int) string {
	if n == 1 {
		return "1 word"
	}
	return fmt.Sprintf("%d words", n)
}
