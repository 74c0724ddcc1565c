package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var _ MessageBlock = (*QuestionBlock)(nil)

// QuestionBlock renders a user question with a "> " prefix.
type QuestionBlock struct {
	text   string
	styles Styles
}

// NewQuestionBlock creates a QuestionBlock.
func NewQuestionBlock(text string, styles Styles) *QuestionBlock {
	return &QuestionBlock{text: text, styles: styles}
}

func (b *QuestionBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *QuestionBlock) View(width int) string {
	content := b.styles.Question.Render("> ") + b.text
	return lipgloss.NewStyle().Width(width).Render(content)
}
