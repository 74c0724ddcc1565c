package gin_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cashflow/steward"
	stewardgin "github.com/cashflow/steward/gin"
	stewardjson "github.com/cashflow/steward/json"
	"github.com/cashflow/steward/mock"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

// newServer wires a Server whose provider streams src and whose ledger
// reports no data for any user.
func newServer(t *testing.T, src steward.TokenSource, opts ...stewardgin.Option) (*stewardgin.Server, *steward.Prompt) {
	t.Helper()
	var got steward.Prompt
	provider := &mock.Provider{
		StreamFn: func(ctx context.Context, prompt steward.Prompt) (steward.TokenSource, error) {
			got = prompt
			return src, nil
		},
	}
	ledger := &mock.Ledger{
		FinancialProfileFn: func(ctx context.Context, userID int64) (*steward.Profile, error) {
			return nil, steward.ErrUserNotFound
		},
	}
	renderer := &mock.PromptRenderer{
		RenderSystemFn: func(data steward.PromptData) (string, error) {
			return "advisor: " + data.Notice, nil
		},
	}
	log := quietLogger()
	assembler := steward.NewAssembler(ledger, renderer, steward.WithAssemblerLogger(log))
	relay := steward.NewRelay(provider, steward.WithLogger(log))
	opts = append([]stewardgin.Option{stewardgin.WithLogger(log)}, opts...)
	return stewardgin.New(assembler, relay, opts...), &got
}

func postChat(t *testing.T, srv *stewardgin.Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

// parseEvents decodes every SSE data frame in body.
func parseEvents(t *testing.T, body string) []steward.Event {
	t.Helper()
	var events []steward.Event
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		e, err := stewardjson.UnmarshalEvent([]byte(payload))
		require.NoError(t, err)
		events = append(events, e)
	}
	return events
}

func TestServer_Info(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t, mock.Chunks())

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, []any{"/health", "/chat"}, body["endpoints"])
}

func TestServer_Health(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t, mock.Chunks())

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestServer_RequestIDPropagates(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t, mock.Chunks())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestServer_Chat_StreamsEvents(t *testing.T) {
	t.Parallel()
	srv, prompt := newServer(t, mock.Chunks("<think>check rent</think>", "Spend ", "less."))

	w := postChat(t, srv, `{"userId":7,"message":"How do I save?","history":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))
	assert.Equal(t, "keep-alive", w.Header().Get("Connection"))
	assert.Equal(t, []steward.Event{
		steward.EventAnswer{Text: "Spend "},
		steward.EventAnswer{Text: "less."},
		steward.EventDone{},
	}, parseEvents(t, w.Body.String()))

	assert.Equal(t, "advisor: "+steward.NoticeNoReports, prompt.System)
	require.Len(t, prompt.Turns, 3)
	assert.Equal(t, steward.Turn{Role: steward.RoleUser, Content: "How do I save?"}, prompt.Turns[2])
}

func TestServer_Chat_FramesAreDataLines(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t, mock.Chunks("ok"))

	w := postChat(t, srv, `{"userId":1,"message":"hi"}`)

	assert.Equal(t, "data:{\"type\":\"answer\",\"content\":\"ok\"}\n\ndata:{\"type\":\"done\"}\n\n", w.Body.String())
}

func TestServer_Chat_UpstreamFailure(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t, mock.Failing(errors.New("quota exceeded"), "Partial "))

	w := postChat(t, srv, `{"userId":1,"message":"hi"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []steward.Event{
		steward.EventAnswer{Text: "Partial "},
		steward.EventError{Message: "AI service error: quota exceeded"},
	}, parseEvents(t, w.Body.String()))
}

func TestServer_Chat_BadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"userId":`},
		{"blank message", `{"userId":1,"message":"   "}`},
		{"missing user", `{"message":"hi"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv, _ := newServer(t, mock.Chunks("never"))

			w := postChat(t, srv, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["detail"])
		})
	}
}

func TestServer_Chat_RenderFailure(t *testing.T) {
	t.Parallel()
	ledger := &mock.Ledger{
		FinancialProfileFn: func(ctx context.Context, userID int64) (*steward.Profile, error) {
			return nil, steward.ErrUserNotFound
		},
	}
	renderer := &mock.PromptRenderer{
		RenderSystemFn: func(data steward.PromptData) (string, error) {
			return "", errors.New("template: bad")
		},
	}
	provider := &mock.Provider{
		StreamFn: func(ctx context.Context, prompt steward.Prompt) (steward.TokenSource, error) {
			t.Fatal("provider must not be called")
			return nil, nil
		},
	}
	log := quietLogger()
	srv := stewardgin.New(
		steward.NewAssembler(ledger, renderer, steward.WithAssemblerLogger(log)),
		steward.NewRelay(provider, steward.WithLogger(log)),
		stewardgin.WithLogger(log),
	)

	w := postChat(t, srv, `{"userId":1,"message":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestServer_Chat_ClientDisconnect(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	src := &mock.TokenSource{
		NextFn: func() (steward.Increment, error) {
			cancel()
			return steward.Increment{}, context.Canceled
		},
	}
	srv, _ := newServer(t, src)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"userId":1,"message":"hi"}`)).WithContext(ctx)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, parseEvents(t, w.Body.String()))
}

func TestServer_CORS(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t, mock.Chunks("ok"), stewardgin.WithAllowedOrigins("http://localhost:5173"))

	t.Run("preflight from allowed origin", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	})

	t.Run("simple request from allowed origin", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, strings.ToLower(w.Header().Get("Access-Control-Expose-Headers")), "x-request-id")
	})

	t.Run("other origin is refused", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("same-origin request passes through", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestServer_NoOriginsDisablesCORS(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t, mock.Chunks("ok"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
