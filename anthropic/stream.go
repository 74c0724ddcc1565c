package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cashflow/steward"
)

// stream implements [steward.TokenSource] by parsing SSE events from an HTTP
// response body.
type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	ctx     context.Context
	done    bool
	closed  bool
	err     error // terminal error, if any
}

// Interface compliance check.
var _ steward.TokenSource = (*stream)(nil)

func newStream(ctx context.Context, body io.ReadCloser) *stream {
	return &stream{
		body:    body,
		scanner: bufio.NewScanner(body),
		ctx:     ctx,
	}
}

// Next reads until the next text or thinking delta.
// Returns io.EOF after message_stop.
func (s *stream) Next() (steward.Increment, error) {
	switch {
	case s.closed:
		return steward.Increment{}, steward.ErrSourceClosed
	case s.done:
		return steward.Increment{}, io.EOF
	case s.err != nil:
		return steward.Increment{}, s.err
	}

	for {
		eventType, data, err := s.readSSEEvent()
		if err != nil {
			if err == io.EOF {
				err = fmt.Errorf("anthropic: unexpected end of stream")
			}
			if s.ctx.Err() != nil {
				err = s.ctx.Err()
			}
			s.err = err
			return steward.Increment{}, err
		}

		inc, ok, err := s.processEvent(eventType, data)
		if err != nil {
			s.err = err
			return steward.Increment{}, err
		}
		if s.done {
			return steward.Increment{}, io.EOF
		}
		if ok {
			return inc, nil
		}
		// Non-text event (ping, message_start, etc.) - keep reading.
	}
}

// Close closes the underlying HTTP response body.
func (s *stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}

// readSSEEvent reads lines until a complete SSE event is assembled.
// Returns the event type and the data payload.
func (s *stream) readSSEEvent() (string, string, error) {
	var eventType string
	var dataBuf strings.Builder

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			// Empty line signals end of event.
			if dataBuf.Len() > 0 {
				return eventType, dataBuf.String(), nil
			}
			continue
		}

		if strings.HasPrefix(line, "event: ") {
			eventType = strings.TrimPrefix(line, "event: ")
		} else if strings.HasPrefix(line, "data: ") {
			if dataBuf.Len() > 0 {
				dataBuf.WriteByte('\n')
			}
			dataBuf.WriteString(strings.TrimPrefix(line, "data: "))
		}
		// Ignore comments (lines starting with ':') and unknown fields.
	}

	if err := s.scanner.Err(); err != nil {
		return "", "", fmt.Errorf("anthropic: %w", err)
	}
	if dataBuf.Len() > 0 {
		return eventType, dataBuf.String(), nil
	}
	return "", "", io.EOF
}

// processEvent maps an SSE event to an increment. ok is false for events that
// carry no text.
func (s *stream) processEvent(eventType, data string) (inc steward.Increment, ok bool, err error) {
	switch eventType {
	case "content_block_delta":
		var evt sseContentBlockDelta
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			return inc, false, fmt.Errorf("anthropic: failed to parse content_block_delta: %w", err)
		}
		switch evt.Delta.Type {
		case "text_delta":
			return steward.Increment{Text: evt.Delta.Text}, true, nil
		case "thinking_delta":
			return steward.Increment{Text: evt.Delta.Thinking, OutOfBand: true}, true, nil
		}
		// signature_delta and input_json_delta carry no text.
		return inc, false, nil
	case "message_stop":
		s.done = true
		return inc, false, nil
	case "error":
		var evt sseError
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			return inc, false, fmt.Errorf("anthropic: failed to parse error event: %w", err)
		}
		return inc, false, fmt.Errorf("anthropic: %s: %s", evt.Error.Type, evt.Error.Message)
	default:
		// message_start, content_block_start/stop, message_delta, ping and
		// unknown event types carry no text.
		return inc, false, nil
	}
}
