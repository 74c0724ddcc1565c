// Package mock provides test doubles for steward interfaces using function fields.
package mock

import (
	"context"
	"io"

	"github.com/cashflow/steward"
)

// Interface compliance checks.
var (
	_ steward.Provider    = (*Provider)(nil)
	_ steward.TokenSource = (*TokenSource)(nil)
)

// Provider is a test double for steward.Provider.
// Set StreamFn before calling Stream.
type Provider struct {
	StreamFn func(ctx context.Context, prompt steward.Prompt) (steward.TokenSource, error)
}

// Stream delegates to StreamFn.
func (p *Provider) Stream(ctx context.Context, prompt steward.Prompt) (steward.TokenSource, error) {
	return p.StreamFn(ctx, prompt)
}

// TokenSource is a test double for steward.TokenSource.
// NextFn panics when nil to catch missing setup. CloseFn is nil-safe because
// callers commonly defer Close.
type TokenSource struct {
	NextFn  func() (steward.Increment, error)
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *TokenSource) Next() (steward.Increment, error) {
	return s.NextFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *TokenSource) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// Increments returns a TokenSource that yields incs in order, then io.EOF.
func Increments(incs ...steward.Increment) *TokenSource {
	i := 0
	return &TokenSource{
		NextFn: func() (steward.Increment, error) {
			if i >= len(incs) {
				return steward.Increment{}, io.EOF
			}
			inc := incs[i]
			i++
			return inc, nil
		},
	}
}

// Chunks returns a TokenSource that yields each chunk as an in-band
// increment, then io.EOF.
func Chunks(chunks ...string) *TokenSource {
	incs := make([]steward.Increment, len(chunks))
	for i, c := range chunks {
		incs[i] = steward.Increment{Text: c}
	}
	return Increments(incs...)
}

// Failing returns a TokenSource that yields chunks, then err.
func Failing(err error, chunks ...string) *TokenSource {
	src := Chunks(chunks...)
	next := src.NextFn
	src.NextFn = func() (steward.Increment, error) {
		inc, e := next()
		if e == io.EOF {
			return steward.Increment{}, err
		}
		return inc, e
	}
	return src
}
