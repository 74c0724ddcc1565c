package steward

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Marker literals delimiting an inline reasoning span.
const (
	OpenMarker  = "<think>"
	CloseMarker = "</think>"
)

// ClassifierState is the classifier's position relative to reasoning spans.
type ClassifierState int

const (
	StateAnswering ClassifierState = iota // Outside any reasoning span.
	StateThinking                         // Inside a span opened by OpenMarker.
)

// String returns a human-readable state name.
func (s ClassifierState) String() string {
	switch s {
	case StateAnswering:
		return "answering"
	case StateThinking:
		return "thinking"
	default:
		return fmt.Sprintf("ClassifierState(%d)", int(s))
	}
}

// ThinkingPolicy decides whether reasoning text is surfaced as Thinking
// segments or dropped.
type ThinkingPolicy int

const (
	ThinkingSuppress ThinkingPolicy = iota // Reasoning is discarded unemitted.
	ThinkingEmit                           // Reasoning is emitted as SegmentThinking.
)

// ParseThinkingPolicy maps "suppress" or "emit" to a ThinkingPolicy.
// An empty string selects ThinkingSuppress.
func ParseThinkingPolicy(s string) (ThinkingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "suppress":
		return ThinkingSuppress, nil
	case "emit":
		return ThinkingEmit, nil
	default:
		return 0, fmt.Errorf("unknown thinking policy %q: %w", s, ErrValidation)
	}
}

// TailMode decides how much unresolved text is held back while waiting for
// a marker that may be split across increments.
type TailMode int

const (
	// TailMarkerStart holds everything from the last marker-start character.
	TailMarkerStart TailMode = iota
	// TailMarkerPrefix holds only a suffix that is a proper prefix of a
	// marker, so the buffer never exceeds the longer marker length minus one.
	TailMarkerPrefix
)

// ParseTailMode maps "marker-start" or "marker-prefix" to a TailMode.
// An empty string selects TailMarkerStart.
func ParseTailMode(s string) (TailMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "marker-start":
		return TailMarkerStart, nil
	case "marker-prefix":
		return TailMarkerPrefix, nil
	default:
		return 0, fmt.Errorf("unknown tail mode %q: %w", s, ErrValidation)
	}
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithThinkingPolicy sets the reasoning emission policy. Default is
// ThinkingSuppress.
func WithThinkingPolicy(p ThinkingPolicy) ClassifierOption {
	return func(c *Classifier) { c.policy = p }
}

// WithTailMode sets the split-marker retention mode. Default is
// TailMarkerStart.
func WithTailMode(m TailMode) ClassifierOption {
	return func(c *Classifier) { c.tail = m }
}

// WithMarkers replaces the marker literals. Empty or identical markers are
// ignored.
func WithMarkers(open, close string) ClassifierOption {
	return func(c *Classifier) {
		if open == "" || close == "" || open == close {
			return
		}
		c.open, c.close = open, close
	}
}

// Classifier separates final-answer text from reasoning in a stream of
// increments. It is a synchronous state machine owned by a single request;
// it never blocks, performs I/O, or fails. A Classifier is not safe for
// concurrent use.
type Classifier struct {
	open    string
	close   string
	policy  ThinkingPolicy
	tail    TailMode
	state   ClassifierState
	pending string
}

// NewClassifier returns a Classifier in StateAnswering with an empty buffer.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		open:  OpenMarker,
		close: CloseMarker,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns the current state.
func (c *Classifier) State() ClassifierState {
	return c.state
}

// Pending returns the number of bytes held unresolved in the buffer.
func (c *Classifier) Pending() int {
	return len(c.pending)
}

// Feed consumes one increment and returns the segments it resolves, in
// order. Out-of-band increments never touch the buffer or the state.
func (c *Classifier) Feed(inc Increment) []Segment {
	if inc.OutOfBand {
		return c.emitThinking(nil, inc.Text)
	}
	c.pending += inc.Text

	var out []Segment
	for {
		var more bool
		if c.state == StateThinking {
			out, more = c.resolveThinking(out)
		} else {
			out, more = c.resolveAnswering(out)
		}
		if !more {
			return out
		}
	}
}

// Finish flushes the buffer once the source is exhausted. Remaining text
// is an Answer segment in StateAnswering; an unterminated span is dropped
// (or emitted as Thinking under ThinkingEmit).
func (c *Classifier) Finish() (Segment, bool) {
	rest := c.pending
	c.pending = ""
	if rest == "" {
		return Segment{}, false
	}
	if c.state == StateAnswering {
		return Segment{Kind: SegmentAnswer, Text: rest}, true
	}
	if c.policy == ThinkingEmit {
		return Segment{Kind: SegmentThinking, Text: rest}, true
	}
	return Segment{}, false
}

// resolveAnswering makes one resolution step in StateAnswering and reports
// whether another step may make progress.
func (c *Classifier) resolveAnswering(out []Segment) ([]Segment, bool) {
	open := strings.Index(c.pending, c.open)
	end := strings.Index(c.pending, c.close)

	switch {
	case open >= 0 && (end < 0 || open < end):
		out = c.emitAnswer(out, c.pending[:open])
		c.pending = c.pending[open+len(c.open):]
		c.state = StateThinking
		return out, true
	case end >= 0:
		// Headless reasoning: the span opened before anything we saw.
		out = c.emitThinking(out, c.pending[:end])
		c.pending = c.pending[end+len(c.close):]
		return out, true
	}

	cut := c.tailStart(c.open, c.close)
	if cut < 0 {
		out = c.emitAnswer(out, c.pending)
		c.pending = ""
		return out, false
	}
	if cut > 0 {
		out = c.emitAnswer(out, c.pending[:cut])
		c.pending = c.pending[cut:]
	}
	return out, false
}

// resolveThinking makes one resolution step in StateThinking and reports
// whether another step may make progress.
func (c *Classifier) resolveThinking(out []Segment) ([]Segment, bool) {
	if end := strings.Index(c.pending, c.close); end >= 0 {
		out = c.emitThinking(out, c.pending[:end])
		c.pending = c.pending[end+len(c.close):]
		c.state = StateAnswering
		return out, true
	}

	cut := c.tailStart(c.close)
	if cut < 0 {
		out = c.emitThinking(out, c.pending)
		c.pending = ""
		return out, false
	}
	out = c.emitThinking(out, c.pending[:cut])
	c.pending = c.pending[cut:]
	return out, false
}

// tailStart returns the byte offset where a possibly split marker may begin,
// or -1 if the whole buffer can be resolved.
func (c *Classifier) tailStart(markers ...string) int {
	if c.tail == TailMarkerPrefix {
		return prefixTail(c.pending, markers)
	}
	var starts strings.Builder
	for _, m := range markers {
		r, _ := utf8.DecodeRuneInString(m)
		starts.WriteRune(r)
	}
	return strings.LastIndexAny(c.pending, starts.String())
}

// prefixTail returns the offset of the longest suffix of s that is a proper
// prefix of one of markers, or -1.
func prefixTail(s string, markers []string) int {
	longest := 0
	for _, m := range markers {
		longest = max(longest, len(m))
	}
	for i := max(0, len(s)-longest+1); i < len(s); i++ {
		for _, m := range markers {
			if strings.HasPrefix(m, s[i:]) {
				return i
			}
		}
	}
	return -1
}

func (c *Classifier) emitAnswer(out []Segment, text string) []Segment {
	if text == "" {
		return out
	}
	return append(out, Segment{Kind: SegmentAnswer, Text: text})
}

func (c *Classifier) emitThinking(out []Segment, text string) []Segment {
	if text == "" || c.policy != ThinkingEmit {
		return out
	}
	return append(out, Segment{Kind: SegmentThinking, Text: text})
}
