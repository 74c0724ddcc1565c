package gemini

import (
	"context"
	"fmt"

	"github.com/cashflow/steward"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ steward.Provider = (*Client)(nil)

// Client implements [steward.Provider] for the Google Gemini API.
type Client struct {
	client          *genai.Client
	model           string
	includeThoughts bool
}

// Option configures a [Client].
type Option func(*Client)

// WithModel sets the model ID used when the prompt names none.
// Default is gemini-2.5-flash.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithIncludeThoughts asks the model to return thought summaries, delivered
// as out-of-band increments. Default is false.
func WithIncludeThoughts(include bool) Option {
	return func(c *Client) { c.includeThoughts = include }
}

// New creates a new Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is required: %w", steward.ErrValidation)
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	c := &Client{
		client: gc,
		model:  defaultModel,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Stream sends a streaming request to the Gemini API and returns a
// [steward.TokenSource] over the response. It waits for the first response
// chunk, so failures before any output surface here.
func (c *Client) Stream(ctx context.Context, prompt steward.Prompt) (steward.TokenSource, error) {
	if err := prompt.Validate(); err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	model := prompt.Model
	if model == "" {
		model = c.model
	}

	seq := c.client.Models.GenerateContentStream(ctx, model, ConvertTurns(prompt.Turns), c.buildConfig(prompt))
	s := newStream(seq)
	if err := s.fill(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (c *Client) buildConfig(prompt steward.Prompt) *genai.GenerateContentConfig {
	maxTokens := prompt.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	}
	if c.includeThoughts {
		config.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
	}

	if prompt.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: prompt.System}},
		}
	}

	if prompt.Temperature != nil {
		temp := float32(*prompt.Temperature)
		config.Temperature = &temp
	}

	return config
}

// ConvertTurns converts steward turns to genai Contents. Assistant turns use
// the "model" role. Turns with unknown roles are dropped.
// Exported for testing.
func ConvertTurns(turns []steward.Turn) []*genai.Content {
	var result []*genai.Content
	for _, t := range turns {
		var role string
		switch t.Role {
		case steward.RoleUser:
			role = "user"
		case steward.RoleAssistant:
			role = "model"
		default:
			continue
		}
		result = append(result, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: t.Content}},
		})
	}
	return result
}
