package steward

import "time"

// Transcript is a locally persisted conversation, used by the CLI to carry
// history between one-shot questions.
type Transcript struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	UpdatedAt time.Time
	Turns     []Turn
}

// Append adds one turn and bumps UpdatedAt.
func (t *Transcript) Append(role Role, content string) {
	t.Turns = append(t.Turns, Turn{Role: role, Content: content})
	t.UpdatedAt = time.Now()
}
