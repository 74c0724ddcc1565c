package steward

// Increment is one text fragment produced by a TokenSource.
// OutOfBand marks text the model delivered through a reasoning side channel
// (e.g. reasoning_content, thinking deltas) rather than inline markers.
type Increment struct {
	Text      string
	OutOfBand bool
}

// SegmentKind tags a Segment as final answer or reasoning.
type SegmentKind int

const (
	SegmentAnswer   SegmentKind = iota // Final answer text shown to the user.
	SegmentThinking                    // Reasoning text, only under ThinkingEmit.
)

// String returns the wire name of the kind.
func (k SegmentKind) String() string {
	switch k {
	case SegmentAnswer:
		return "answer"
	case SegmentThinking:
		return "thinking"
	default:
		return "unknown"
	}
}

// Segment is one classified, ordered unit of output text. Text is never empty.
type Segment struct {
	Kind SegmentKind
	Text string
}
