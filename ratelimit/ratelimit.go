// Package ratelimit wraps a steward.Provider with request rate limiting and
// retries of failed stream opens.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/cashflow/steward"
	"golang.org/x/time/rate"
)

// Config holds configuration for rate limiting and retries.
type Config struct {
	// RequestsPerMinute is the maximum number of streams opened per minute.
	// If 0 or negative, no rate limiting is applied.
	RequestsPerMinute float64

	// MaxRetries is the maximum number of retries of a failed open.
	// If 0 or negative, no retries are attempted.
	MaxRetries int

	// BackoffMin is the wait before the first retry. Defaults to 1 second.
	BackoffMin time.Duration

	// BackoffMax caps the wait between retries. Defaults to 30 seconds.
	BackoffMax time.Duration
}

// Provider opens streams through an inner provider. Only the open is
// retried: once a TokenSource is returned, its failures reach the caller
// unchanged, since a partial stream cannot be replayed.
type Provider struct {
	inner      steward.Provider
	limiter    *rate.Limiter
	maxRetries int
	backoffMin time.Duration
	backoffMax time.Duration
}

// Interface compliance check.
var _ steward.Provider = (*Provider)(nil)

// New wraps inner.
func New(inner steward.Provider, cfg Config) *Provider {
	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), 1)
	}
	p := &Provider{
		inner:      inner,
		limiter:    limiter,
		maxRetries: max(cfg.MaxRetries, 0),
		backoffMin: cfg.BackoffMin,
		backoffMax: cfg.BackoffMax,
	}
	if p.backoffMin <= 0 {
		p.backoffMin = time.Second
	}
	if p.backoffMax <= 0 {
		p.backoffMax = 30 * time.Second
	}
	return p
}

// Stream waits for the limiter, then opens a stream, retrying failures with
// exponential backoff and +/-20% jitter. Validation errors and context
// cancellation are not retried.
func (p *Provider) Stream(ctx context.Context, prompt steward.Prompt) (steward.TokenSource, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("ratelimit: wait: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		src, err := p.inner.Stream(ctx, prompt)
		if err == nil {
			return src, nil
		}
		if attempt >= p.maxRetries || !retryable(ctx, err) {
			if attempt > 0 {
				return nil, fmt.Errorf("ratelimit: %d attempts failed: %w", attempt+1, err)
			}
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.backoff(attempt)):
		}
	}
}

func (p *Provider) backoff(attempt int) time.Duration {
	d := p.backoffMin * time.Duration(1<<uint(attempt))
	if d > p.backoffMax || d <= 0 {
		d = p.backoffMax
	}
	return time.Duration(float64(d) * (0.8 + 0.4*rand.Float64()))
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, steward.ErrValidation) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
