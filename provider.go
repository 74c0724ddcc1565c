package steward

import "context"

// TokenSource uses a pull-based iterator pattern. Next returns io.EOF when
// generation ends normally; any other error is an upstream failure.
// Cancellation flows through the context passed to Provider.Stream().
//
// Close releases the underlying connection. It is safe to call Close more
// than once and after Next has returned an error. Next after Close returns
// ErrSourceClosed.
type TokenSource interface {
	Next() (Increment, error)
	Close() error
}

// Provider is a strategy pattern interface for language model backends.
// The prompt is passed by value; providers must not retain it.
type Provider interface {
	Stream(ctx context.Context, prompt Prompt) (TokenSource, error)
}

// Prompt is the fully assembled model input for one request.
// The provider uses its own defaults when generation fields are zero/nil.
type Prompt struct {
	Model       string   // model ID, provider-specific; empty = provider default
	System      string
	Turns       []Turn   // prior window followed by the new user turn
	MaxTokens   int      // 0 = provider default
	Temperature *float64 // nil = provider default
}
