package steward

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Generation defaults applied by Assembler.
const (
	DefaultMaxHistory  = 20
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
)

// PromptData is the input to a PromptRenderer. Exactly one of Snapshot and
// Notice is set.
type PromptData struct {
	Snapshot *FinancialSnapshot
	Notice   string
}

// PromptRenderer renders the system instruction for one request.
type PromptRenderer interface {
	RenderSystem(data PromptData) (string, error)
}

// Assembler builds the model Prompt for a ChatRequest from the user's
// financial records and the conversation history.
type Assembler struct {
	ledger      Ledger
	renderer    PromptRenderer
	maxHistory  int
	model       string
	temperature float64
	maxTokens   int
	log         logrus.FieldLogger
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithMaxHistory sets how many prior turns are kept. Default is
// DefaultMaxHistory.
func WithMaxHistory(n int) AssemblerOption {
	return func(a *Assembler) { a.maxHistory = n }
}

// WithModel sets the model ID placed on every prompt.
func WithModel(model string) AssemblerOption {
	return func(a *Assembler) { a.model = model }
}

// WithTemperature sets the sampling temperature. Default is
// DefaultTemperature.
func WithTemperature(t float64) AssemblerOption {
	return func(a *Assembler) { a.temperature = t }
}

// WithMaxTokens sets the output token limit. Default is DefaultMaxTokens.
func WithMaxTokens(n int) AssemblerOption {
	return func(a *Assembler) { a.maxTokens = n }
}

// WithAssemblerLogger sets the logger. Default is the logrus standard logger.
func WithAssemblerLogger(l logrus.FieldLogger) AssemblerOption {
	return func(a *Assembler) {
		if l != nil {
			a.log = l
		}
	}
}

// NewAssembler creates an Assembler reading from ledger.
func NewAssembler(ledger Ledger, renderer PromptRenderer, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		ledger:      ledger,
		renderer:    renderer,
		maxHistory:  DefaultMaxHistory,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		log:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble validates req and returns the prompt to stream. Ledger failures
// do not fail assembly; they are reported to the model as a notice.
func (a *Assembler) Assemble(ctx context.Context, req ChatRequest) (Prompt, error) {
	if err := req.Validate(); err != nil {
		return Prompt{}, err
	}

	system, err := a.renderer.RenderSystem(a.promptData(ctx, req.UserID))
	if err != nil {
		return Prompt{}, fmt.Errorf("render system prompt: %w", err)
	}

	window := Window(req.History, a.maxHistory)
	turns := make([]Turn, 0, len(window)+1)
	for _, t := range window {
		if !t.Role.Known() {
			a.log.WithField("role", t.Role).Debug("skipping history turn with unknown role")
			continue
		}
		turns = append(turns, t)
	}
	turns = append(turns, Turn{Role: RoleUser, Content: req.Message})

	temp := a.temperature
	return Prompt{
		Model:       a.model,
		System:      system,
		Turns:       turns,
		MaxTokens:   a.maxTokens,
		Temperature: &temp,
	}, nil
}

func (a *Assembler) promptData(ctx context.Context, userID int64) PromptData {
	profile, err := a.ledger.FinancialProfile(ctx, userID)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return PromptData{Notice: NoticeNoReports}
	case err != nil:
		a.log.WithError(err).WithField("user_id", userID).Warn("failed to load financial profile")
		return PromptData{Notice: NoticeUnavailable(err)}
	case len(profile.Reports) == 0:
		return PromptData{Notice: NoticeNoReports}
	}
	return PromptData{Snapshot: Snapshot(profile)}
}

// Window returns the last n turns of history, dropping the oldest first.
// A non-positive n yields no history.
func Window(history []Turn, n int) []Turn {
	if n <= 0 {
		return nil
	}
	if len(history) > n {
		return history[len(history)-n:]
	}
	return history
}
