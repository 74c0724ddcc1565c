// Package langchaingo adapts langchaingo chat models (OpenAI-compatible
// endpoints, Ollama) to steward.Provider.
package langchaingo

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/cashflow/steward"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultOllamaHost is used when no Ollama host is configured.
const DefaultOllamaHost = "http://127.0.0.1:11434"

// Provider streams a prompt through an llms.Model.
type Provider struct {
	model     llms.Model
	reasoning bool
}

// Option configures a Provider.
type Option func(*Provider)

// WithReasoningStream receives separate reasoning deltas (OpenAI-compatible
// reasoning_content) and delivers them as out-of-band increments. The model
// must call StreamingReasoningFunc for every delta.
func WithReasoningStream() Option {
	return func(p *Provider) { p.reasoning = true }
}

// Interface compliance checks.
var (
	_ steward.Provider    = (*Provider)(nil)
	_ steward.TokenSource = (*source)(nil)
)

// New wraps model.
func New(model llms.Model, opts ...Option) *Provider {
	p := &Provider{model: model}
	for _, o := range opts {
		o(p)
	}
	return p
}

// NewOpenAI connects to an OpenAI-compatible chat endpoint. An empty baseURL
// selects the OpenAI default.
func NewOpenAI(apiKey, baseURL, model string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("langchaingo: OpenAI API key is not set: %w", steward.ErrValidation)
	}
	opts := []openai.Option{openai.WithToken(apiKey), openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("langchaingo: create openai client: %w", err)
	}
	return New(llm, WithReasoningStream()), nil
}

// NewOllama connects to an Ollama server. An empty host selects
// DefaultOllamaHost.
func NewOllama(host, model string) (*Provider, error) {
	if host == "" {
		host = DefaultOllamaHost
	}
	llm, err := ollama.New(ollama.WithModel(model), ollama.WithServerURL(host))
	if err != nil {
		return nil, fmt.Errorf("langchaingo: create ollama client: %w", err)
	}
	return New(llm), nil
}

// Stream starts generation and blocks until the first chunk arrives or the
// call fails, so failures before any output surface here rather than from
// Next.
func (p *Provider) Stream(ctx context.Context, prompt steward.Prompt) (steward.TokenSource, error) {
	if err := prompt.Validate(); err != nil {
		return nil, fmt.Errorf("langchaingo: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &source{
		chunks: make(chan steward.Increment),
		done:   make(chan error, 1),
		closed: make(chan struct{}),
		cancel: cancel,
	}

	opts := callOptions(prompt)
	if p.reasoning {
		opts = append(opts, llms.WithStreamingReasoningFunc(func(ctx context.Context, reasoning, chunk []byte) error {
			if err := s.push(ctx, steward.Increment{Text: string(reasoning), OutOfBand: true}); err != nil {
				return err
			}
			return s.push(ctx, steward.Increment{Text: string(chunk)})
		}))
	} else {
		opts = append(opts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			return s.push(ctx, steward.Increment{Text: string(chunk)})
		}))
	}

	go func() {
		_, err := p.model.GenerateContent(ctx, messages(prompt), opts...)
		s.done <- err
	}()

	select {
	case inc := <-s.chunks:
		s.first, s.hasFirst = inc, true
		return s, nil
	case err := <-s.done:
		if err != nil {
			cancel()
			return nil, fmt.Errorf("langchaingo: %w", err)
		}
		s.err = io.EOF
		return s, nil
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}
}

func messages(prompt steward.Prompt) []llms.MessageContent {
	msgs := make([]llms.MessageContent, 0, len(prompt.Turns)+1)
	if prompt.System != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, prompt.System))
	}
	for _, t := range prompt.Turns {
		switch t.Role {
		case steward.RoleUser:
			msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, t.Content))
		case steward.RoleAssistant:
			msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeAI, t.Content))
		}
	}
	return msgs
}

func callOptions(prompt steward.Prompt) []llms.CallOption {
	var opts []llms.CallOption
	if prompt.Model != "" {
		opts = append(opts, llms.WithModel(prompt.Model))
	}
	if prompt.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*prompt.Temperature))
	}
	if prompt.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(prompt.MaxTokens))
	}
	return opts
}

// source bridges langchaingo's callback streaming to a pull iterator. The
// chunk channel is unbuffered, so the model goroutine never runs ahead of
// the consumer.
type source struct {
	chunks chan steward.Increment
	done   chan error
	closed chan struct{}
	cancel context.CancelFunc

	first    steward.Increment
	hasFirst bool
	err      error // terminal result once observed
	once     sync.Once
}

func (s *source) Next() (steward.Increment, error) {
	select {
	case <-s.closed:
		return steward.Increment{}, steward.ErrSourceClosed
	default:
	}
	if s.hasFirst {
		s.hasFirst = false
		return s.first, nil
	}
	if s.err != nil {
		return steward.Increment{}, s.err
	}
	select {
	case inc := <-s.chunks:
		return inc, nil
	case err := <-s.done:
		if err != nil {
			s.err = fmt.Errorf("langchaingo: %w", err)
		} else {
			s.err = io.EOF
		}
		return steward.Increment{}, s.err
	case <-s.closed:
		return steward.Increment{}, steward.ErrSourceClosed
	}
}

// push hands inc to the consumer. Empty increments are dropped; the
// OpenAI client reports deltas without text (role, usage) as empty chunks.
func (s *source) push(ctx context.Context, inc steward.Increment) error {
	if inc.Text == "" {
		return nil
	}
	select {
	case s.chunks <- inc:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *source) Close() error {
	s.once.Do(func() {
		close(s.closed)
		s.cancel()
	})
	return nil
}
