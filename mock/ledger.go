package mock

import (
	"context"

	"github.com/cashflow/steward"
)

// Interface compliance checks.
var (
	_ steward.Ledger         = (*Ledger)(nil)
	_ steward.PromptRenderer = (*PromptRenderer)(nil)
)

// Ledger is a test double for steward.Ledger.
// Set FinancialProfileFn before calling FinancialProfile.
type Ledger struct {
	FinancialProfileFn func(ctx context.Context, userID int64) (*steward.Profile, error)
}

// FinancialProfile delegates to FinancialProfileFn.
func (l *Ledger) FinancialProfile(ctx context.Context, userID int64) (*steward.Profile, error) {
	return l.FinancialProfileFn(ctx, userID)
}

// PromptRenderer is a test double for steward.PromptRenderer.
// Set RenderSystemFn before calling RenderSystem.
type PromptRenderer struct {
	RenderSystemFn func(data steward.PromptData) (string, error)
}

// RenderSystem delegates to RenderSystemFn.
func (r *PromptRenderer) RenderSystem(data steward.PromptData) (string, error) {
	return r.RenderSystemFn(data)
}
