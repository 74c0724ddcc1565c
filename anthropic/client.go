package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cashflow/steward"
	"github.com/hashicorp/go-retryablehttp"
)

// Interface compliance check.
var _ steward.Provider = (*Client)(nil)

// Client implements [steward.Provider] for the Anthropic Messages API.
type Client struct {
	apiKey         string
	baseURL        string
	httpClient     *retryablehttp.Client
	thinkingBudget int
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom retrying HTTP client.
func WithHTTPClient(hc *retryablehttp.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryMax sets how many times a failed request is retried before any
// response body is read. Default is 3.
func WithRetryMax(n int) Option {
	return func(c *Client) { c.httpClient.RetryMax = n }
}

// WithLogger routes the HTTP client's retry logs to l.
func WithLogger(l retryablehttp.LeveledLogger) Option {
	return func(c *Client) { c.httpClient.Logger = l }
}

// WithThinkingBudget enables extended thinking with the given token budget.
// Thinking deltas are delivered as out-of-band increments. Zero disables it.
func WithThinkingBudget(tokens int) Option {
	return func(c *Client) { c.thinkingBudget = tokens }
}

// New creates a new Anthropic [Client] with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = 3
	hc.RetryWaitMin = 1 * time.Second
	hc.RetryWaitMax = 10 * time.Second
	hc.Logger = nil
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: hc,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Stream sends a streaming request to the Anthropic Messages API and returns
// a [steward.TokenSource] over the response.
func (c *Client) Stream(ctx context.Context, prompt steward.Prompt) (steward.TokenSource, error) {
	if err := prompt.Validate(); err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	body, err := json.Marshal(c.buildRequest(prompt))
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, body)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("Anthropic-Version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseHTTPError(resp)
	}

	return newStream(ctx, resp.Body), nil
}

func (c *Client) buildRequest(prompt steward.Prompt) apiRequest {
	model := prompt.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := prompt.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	req := apiRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Stream:      true,
		System:      convertSystem(prompt.System),
		Messages:    convertTurns(prompt.Turns),
		Temperature: prompt.Temperature,
	}
	if c.thinkingBudget > 0 {
		// Extended thinking rejects a custom temperature, and the budget
		// counts toward max_tokens.
		req.Temperature = nil
		req.Thinking = &apiThinking{Type: "enabled", BudgetTokens: c.thinkingBudget}
		if req.MaxTokens <= c.thinkingBudget {
			req.MaxTokens = c.thinkingBudget + maxTokens
		}
	}
	return req
}

// convertSystem converts the system prompt into a single cached text block.
// Returns nil when the prompt is empty.
func convertSystem(system string) []apiContentBlock {
	if system == "" {
		return nil
	}
	return []apiContentBlock{{
		Type:         "text",
		Text:         system,
		CacheControl: &apiCacheControl{Type: "ephemeral"},
	}}
}

// convertTurns maps turns to API messages, merging consecutive turns of the
// same role since the API requires alternation.
func convertTurns(turns []steward.Turn) []apiMessage {
	var result []apiMessage
	for _, t := range turns {
		role := string(t.Role)
		if role != string(steward.RoleUser) && role != string(steward.RoleAssistant) {
			continue
		}
		block := apiContentBlock{Type: "text", Text: t.Content}
		if n := len(result); n > 0 && result[n-1].Role == role {
			result[n-1].Content = append(result[n-1].Content, block)
			continue
		}
		result = append(result, apiMessage{Role: role, Content: []apiContentBlock{block}})
	}
	return result
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("anthropic: HTTP %d (failed to read body: %w)", resp.StatusCode, err)
	}
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return fmt.Errorf("anthropic: HTTP %d: %s", resp.StatusCode, string(body))
	}
	return fmt.Errorf("anthropic: %s: %s", apiErr.Error.Type, apiErr.Error.Message)
}
