package bubbletea

import (
	"strings"

	"github.com/cashflow/steward"
	"github.com/cashflow/steward/goldmark"
	tea "github.com/charmbracelet/bubbletea"
)

var _ MessageBlock = (*AnswerBlock)(nil)

// AnswerBlock renders streamed answer text as markdown. Paragraphs ending at
// a blank line are rendered once per width and cached; only the trailing
// text is re-rendered on each increment.
type AnswerBlock struct {
	content strings.Builder
	theme   steward.Theme

	stable        string
	stableByWidth map[int]string
}

// NewAnswerBlock creates a block for streaming answer text.
func NewAnswerBlock(theme steward.Theme) *AnswerBlock {
	return &AnswerBlock{
		theme:         theme,
		stableByWidth: make(map[int]string),
	}
}

// Append adds answer text.
func (b *AnswerBlock) Append(text string) {
	b.content.WriteString(text)
	b.promote()
}

// Text returns the raw markdown received so far.
func (b *AnswerBlock) Text() string {
	return b.content.String()
}

func (b *AnswerBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *AnswerBlock) View(width int) string {
	stable := b.renderStable(width)
	trailing := b.trailing()
	if hasUnclosedFence(trailing) {
		trailing += "\n```"
	}
	if trailing == "" {
		return stable
	}
	rendered := goldmark.Render(trailing, width, b.theme)
	if strings.TrimSpace(rendered) == "" {
		return stable
	}
	if stable == "" {
		return rendered
	}
	return strings.TrimRight(stable, "\n") + "\n\n" + strings.TrimLeft(rendered, "\n")
}

// promote moves the stable prefix forward to the last blank line that is
// not inside an open code fence.
func (b *AnswerBlock) promote() {
	raw := b.content.String()
	for end := len(raw); ; {
		idx := strings.LastIndex(raw[:end], "\n\n")
		if idx <= 0 {
			return
		}
		candidate := raw[:idx]
		if !hasUnclosedFence(candidate) {
			if candidate != b.stable {
				b.stable = candidate
				clear(b.stableByWidth)
			}
			return
		}
		end = idx
	}
}

func (b *AnswerBlock) renderStable(width int) string {
	if width <= 0 || b.stable == "" {
		return ""
	}
	if cached, ok := b.stableByWidth[width]; ok {
		return cached
	}
	rendered := goldmark.Render(b.stable, width, b.theme)
	b.stableByWidth[width] = rendered
	return rendered
}

func (b *AnswerBlock) trailing() string {
	raw := b.content.String()
	if b.stable == "" {
		return raw
	}
	return strings.TrimPrefix(raw, b.stable+"\n\n")
}

// hasUnclosedFence reports an odd number of "```" in s. Triple backticks
// inside inline code are counted too.
func hasUnclosedFence(s string) bool {
	return strings.Count(s, "```")%2 == 1
}
