// Package json encodes steward values for the wire and for local storage.
package json

import (
	"encoding/json"
	"fmt"

	"github.com/cashflow/steward"
)

// Wire names of output event types.
const (
	typeAnswer   = "answer"
	typeThinking = "thinking"
	typeDone     = "done"
	typeError    = "error"
)

// eventDTO is the JSON representation of an Event with a type discriminator.
type eventDTO struct {
	Type    string  `json:"type"`
	Content *string `json:"content,omitempty"`
}

// MarshalEvent serializes an Event as one SSE payload,
// e.g. {"type":"answer","content":"..."}.
func MarshalEvent(e steward.Event) ([]byte, error) {
	var dto eventDTO
	switch v := e.(type) {
	case steward.EventAnswer:
		dto = eventDTO{Type: typeAnswer, Content: &v.Text}
	case steward.EventThinking:
		dto = eventDTO{Type: typeThinking, Content: &v.Text}
	case steward.EventDone:
		dto = eventDTO{Type: typeDone}
	case steward.EventError:
		dto = eventDTO{Type: typeError, Content: &v.Message}
	default:
		return nil, fmt.Errorf("unknown event type: %T", e)
	}
	return json.Marshal(dto)
}

// UnmarshalEvent deserializes an SSE payload produced by MarshalEvent.
func UnmarshalEvent(data []byte) (steward.Event, error) {
	var dto eventDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	var content string
	if dto.Content != nil {
		content = *dto.Content
	}
	switch dto.Type {
	case typeAnswer:
		return steward.EventAnswer{Text: content}, nil
	case typeThinking:
		return steward.EventThinking{Text: content}, nil
	case typeDone:
		return steward.EventDone{}, nil
	case typeError:
		return steward.EventError{Message: content}, nil
	default:
		return nil, fmt.Errorf("unknown event type: %q", dto.Type)
	}
}

// chatRequestDTO is the JSON body of a chat request.
type chatRequestDTO struct {
	UserID  int64     `json:"userId"`
	Message string    `json:"message"`
	History []turnDTO `json:"history"`
}

type turnDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UnmarshalChatRequest decodes a chat request body. It does not validate
// the request.
func UnmarshalChatRequest(data []byte) (steward.ChatRequest, error) {
	var dto chatRequestDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return steward.ChatRequest{}, fmt.Errorf("unmarshal chat request: %w", err)
	}
	return steward.ChatRequest{
		UserID:  dto.UserID,
		Message: dto.Message,
		History: turnsFromDTO(dto.History),
	}, nil
}

// MarshalChatRequest encodes a chat request body.
func MarshalChatRequest(r steward.ChatRequest) ([]byte, error) {
	return json.Marshal(chatRequestDTO{
		UserID:  r.UserID,
		Message: r.Message,
		History: turnsToDTO(r.History),
	})
}

func turnsToDTO(turns []steward.Turn) []turnDTO {
	out := make([]turnDTO, len(turns))
	for i, t := range turns {
		out[i] = turnDTO{Role: string(t.Role), Content: t.Content}
	}
	return out
}

func turnsFromDTO(dtos []turnDTO) []steward.Turn {
	if len(dtos) == 0 {
		return nil
	}
	out := make([]steward.Turn, len(dtos))
	for i, d := range dtos {
		out[i] = steward.Turn{Role: steward.Role(d.Role), Content: d.Content}
	}
	return out
}
