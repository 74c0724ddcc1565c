package json_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cashflow/steward"
	stewardjson "github.com/cashflow/steward/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalEvent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		event steward.Event
		want  string
	}{
		{"answer", steward.EventAnswer{Text: "Net worth: 5000"}, `{"type":"answer","content":"Net worth: 5000"}`},
		{"thinking", steward.EventThinking{Text: "sum"}, `{"type":"thinking","content":"sum"}`},
		{"done", steward.EventDone{}, `{"type":"done"}`},
		{"error", steward.EventError{Message: "AI service error: boom"}, `{"type":"error","content":"AI service error: boom"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			data, err := stewardjson.MarshalEvent(tt.event)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))

			got, err := stewardjson.UnmarshalEvent(data)
			require.NoError(t, err)
			assert.Equal(t, tt.event, got)
		})
	}
}

func TestMarshalEvent_NonASCII(t *testing.T) {
	t.Parallel()
	data, err := stewardjson.MarshalEvent(steward.EventAnswer{Text: "净资产"})
	require.NoError(t, err)
	assert.Contains(t, string(data), "净资产")
}

func TestMarshalEvent_Unknown(t *testing.T) {
	t.Parallel()
	_, err := stewardjson.MarshalEvent(nil)
	assert.Error(t, err)
}

func TestUnmarshalEvent_Errors(t *testing.T) {
	t.Parallel()
	_, err := stewardjson.UnmarshalEvent([]byte(`{"type":"tool_call"}`))
	assert.ErrorContains(t, err, "unknown event type")

	_, err = stewardjson.UnmarshalEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestUnmarshalChatRequest(t *testing.T) {
	t.Parallel()
	body := `{
		"userId": 42,
		"message": "How much should I save?",
		"history": [
			{"role": "user", "content": "hi"},
			{"role": "assistant", "content": "hello"}
		]
	}`
	got, err := stewardjson.UnmarshalChatRequest([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, steward.ChatRequest{
		UserID:  42,
		Message: "How much should I save?",
		History: []steward.Turn{
			{Role: steward.RoleUser, Content: "hi"},
			{Role: steward.RoleAssistant, Content: "hello"},
		},
	}, got)
}

func TestUnmarshalChatRequest_MissingHistory(t *testing.T) {
	t.Parallel()
	got, err := stewardjson.UnmarshalChatRequest([]byte(`{"userId":1,"message":"q"}`))
	require.NoError(t, err)
	assert.Nil(t, got.History)
}

func TestUnmarshalChatRequest_Malformed(t *testing.T) {
	t.Parallel()
	_, err := stewardjson.UnmarshalChatRequest([]byte(`{"userId":"one"}`))
	assert.Error(t, err)
}

func TestMarshalChatRequest(t *testing.T) {
	t.Parallel()
	data, err := stewardjson.MarshalChatRequest(steward.ChatRequest{UserID: 3, Message: "q"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":3,"message":"q","history":[]}`, string(data))
}

func TestMarshalTranscript_V1Envelope(t *testing.T) {
	t.Parallel()
	tr := steward.Transcript{
		ID:        "t-1",
		UserID:    9,
		CreatedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 10, 1, 9, 5, 0, 0, time.UTC),
	}
	data, err := stewardjson.MarshalTranscript(tr)
	require.NoError(t, err)

	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &env))
	assert.JSONEq(t, `1`, string(env["version"]))
	assert.JSONEq(t, `9`, string(env["user_id"]))
	assert.Contains(t, env, "turns")
}

func TestUnmarshalTranscript_RejectsUnknownVersion(t *testing.T) {
	t.Parallel()
	_, err := stewardjson.UnmarshalTranscript([]byte(`{"version":2}`))
	assert.ErrorContains(t, err, "unsupported envelope version")
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "sessions", "lin.json")
	want := steward.Transcript{
		ID:        "t-2",
		UserID:    1,
		CreatedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 10, 1, 9, 1, 0, 0, time.UTC),
		Turns: []steward.Turn{
			{Role: steward.RoleUser, Content: "What is my net worth?"},
			{Role: steward.RoleAssistant, Content: "About 3000."},
		},
	}
	require.NoError(t, stewardjson.Save(path, want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	got, err := stewardjson.Load(path)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Turns, got.Turns)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()
	_, err := stewardjson.Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
