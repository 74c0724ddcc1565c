package steward

// Sink delivers output events to a transport, in the order they are sent.
// A Send error means the consumer is gone; the caller stops sending.
type Sink interface {
	Send(Event) error
}

// SinkFunc adapts an ordinary function to Sink.
type SinkFunc func(Event) error

// Send calls f(e).
func (f SinkFunc) Send(e Event) error {
	return f(e)
}

// Interface compliance checks.
var _ Sink = SinkFunc(nil)
