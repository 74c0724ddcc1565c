package bubbletea_test

import (
	"testing"

	"github.com/cashflow/steward"
	bt "github.com/cashflow/steward/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestErrorBlock_View(t *testing.T) {
	t.Parallel()
	block := bt.NewErrorBlock("AI service error: quota exceeded", bt.NewStyles(steward.DefaultTheme()))
	assert.Contains(t, block.View(80), "AI service error: quota exceeded")
}
