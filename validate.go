package steward

import (
	"fmt"
	"strings"
)

// Validate checks universal constraints on Prompt.
// Provider implementations may apply additional provider-specific validation.
func (p Prompt) Validate() error {
	if p.Temperature != nil {
		if *p.Temperature < 0 || *p.Temperature > 2 {
			return fmt.Errorf("temperature must be in [0, 2], got %g: %w", *p.Temperature, ErrValidation)
		}
	}
	if p.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d: %w", p.MaxTokens, ErrValidation)
	}
	if len(p.Turns) == 0 {
		return fmt.Errorf("prompt has no turns: %w", ErrValidation)
	}
	if last := p.Turns[len(p.Turns)-1]; last.Role != RoleUser {
		return fmt.Errorf("last turn must be %s, got %q: %w", RoleUser, last.Role, ErrValidation)
	}
	return nil
}

// Validate checks that a chat request can be answered.
// History turns with unknown roles are not an error; assembly skips them.
func (r ChatRequest) Validate() error {
	if r.UserID <= 0 {
		return fmt.Errorf("user id must be positive, got %d: %w", r.UserID, ErrValidation)
	}
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("message must not be empty: %w", ErrValidation)
	}
	return nil
}

// Known reports whether r is a role the model understands.
func (r Role) Known() bool {
	return r == RoleUser || r == RoleAssistant
}
