package mock

import (
	"sync"

	"github.com/cashflow/steward"
)

// Interface compliance checks.
var (
	_ steward.Sink = (*Sink)(nil)
	_ steward.Sink = (*Recorder)(nil)
)

// Sink is a test double for steward.Sink.
// Set SendFn before calling Send.
type Sink struct {
	SendFn func(e steward.Event) error
}

// Send delegates to SendFn.
func (s *Sink) Send(e steward.Event) error {
	return s.SendFn(e)
}

// Recorder is a steward.Sink that keeps every event it receives.
// Err, when set, is returned from every Send after the event is recorded.
type Recorder struct {
	mu     sync.Mutex
	events []steward.Event
	Err    error
}

// Send records e.
func (r *Recorder) Send(e steward.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.Err
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []steward.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]steward.Event(nil), r.events...)
}

// Answer concatenates the text of all recorded EventAnswer events.
func (r *Recorder) Answer() string {
	var s string
	for _, e := range r.Events() {
		if a, ok := e.(steward.EventAnswer); ok {
			s += a.Text
		}
	}
	return s
}
