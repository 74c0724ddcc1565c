package steward

// Event is a sealed interface representing one output event pushed to a Sink.
// Exactly one EventDone or EventError terminates a request; nothing follows it.
// The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// EventAnswer carries an Answer segment.
type EventAnswer struct {
	Text string
}

func (EventAnswer) event() {}

// EventThinking carries a Thinking segment.
type EventThinking struct {
	Text string
}

func (EventThinking) event() {}

// EventDone signals normal completion.
type EventDone struct{}

func (EventDone) event() {}

// EventError signals upstream failure with a human-readable cause.
type EventError struct {
	Message string
}

func (EventError) event() {}

// EventFor converts a segment into its output event.
func EventFor(seg Segment) Event {
	if seg.Kind == SegmentThinking {
		return EventThinking{Text: seg.Text}
	}
	return EventAnswer{Text: seg.Text}
}

// Interface compliance checks.
var (
	_ Event = EventAnswer{}
	_ Event = EventThinking{}
	_ Event = EventDone{}
	_ Event = EventError{}
)
