package gemini

import (
	"fmt"
	"io"
	"iter"

	"github.com/cashflow/steward"
	"google.golang.org/genai"
)

// stream implements [steward.TokenSource] by wrapping the genai SDK's
// streaming iterator.
type stream struct {
	pull    func() (*genai.GenerateContentResponse, error, bool)
	stop    func()
	pending []steward.Increment
	done    bool
	closed  bool
	err     error
}

// Interface compliance check.
var _ steward.TokenSource = (*stream)(nil)

func newStream(seq iter.Seq2[*genai.GenerateContentResponse, error]) *stream {
	next, stop := iter.Pull2(seq)
	return &stream{pull: next, stop: stop}
}

func (s *stream) Next() (steward.Increment, error) {
	if s.closed {
		return steward.Increment{}, steward.ErrSourceClosed
	}
	if err := s.fill(); err != nil {
		return steward.Increment{}, err
	}
	if len(s.pending) == 0 {
		return steward.Increment{}, io.EOF
	}
	inc := s.pending[0]
	s.pending = s.pending[1:]
	return inc, nil
}

// fill pulls chunks until an increment is pending or the iterator ends.
func (s *stream) fill() error {
	for len(s.pending) == 0 {
		switch {
		case s.err != nil:
			return s.err
		case s.done:
			return nil
		}
		resp, err, ok := s.pull()
		if !ok {
			s.done = true
			return nil
		}
		if err != nil {
			s.err = fmt.Errorf("gemini: %w", err)
			return s.err
		}
		s.pending = append(s.pending, increments(resp)...)
	}
	return nil
}

// increments extracts the text parts of the first candidate.
func increments(resp *genai.GenerateContentResponse) []steward.Increment {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	c := resp.Candidates[0]
	if c.Content == nil {
		return nil
	}
	var out []steward.Increment
	for _, p := range c.Content.Parts {
		if p == nil || p.Text == "" {
			continue
		}
		out = append(out, steward.Increment{Text: p.Text, OutOfBand: p.Thought})
	}
	return out
}

func (s *stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.stop()
	return nil
}
