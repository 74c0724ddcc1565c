// Package gin serves the chat API over HTTP using gin-gonic/gin, streaming
// events to the client as server-sent events.
package gin

import (
	"errors"
	"io"
	"net/http"

	"github.com/cashflow/steward"
	stewardjson "github.com/cashflow/steward/json"
	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ServiceName is reported by the info and health endpoints.
const ServiceName = "steward finance assistant"

// Server routes HTTP requests to an Assembler and a Relay.
type Server struct {
	assembler      *steward.Assembler
	relay          *steward.Relay
	log            logrus.FieldLogger
	allowedOrigins []string
	engine         *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Default is the logrus standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithAllowedOrigins enables CORS for the given origins.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.allowedOrigins = append(s.allowedOrigins, origins...) }
}

// New creates a Server and registers its routes.
func New(assembler *steward.Assembler, relay *steward.Relay, opts ...Option) *Server {
	s := &Server{
		assembler: assembler,
		relay:     relay,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))
	if len(s.allowedOrigins) > 0 {
		r.Use(allowOrigins(s.allowedOrigins))
	}
	r.GET("/", s.infoHandler)
	r.GET("/health", s.healthHandler)
	r.POST("/chat", s.chatHandler)
	s.engine = r
	return s
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// infoHandler handles the GET / endpoint
func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "running",
		"service":   ServiceName,
		"message":   "Service is up. Send chat requests to POST /chat.",
		"endpoints": []string{"/health", "/chat"},
	})
}

// healthHandler handles the GET /health endpoint
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": ServiceName})
}

// chatHandler handles the POST /chat endpoint. Request errors are plain JSON
// responses; once the event stream starts, failures arrive as error events.
func (s *Server) chatHandler(c *gin.Context) {
	ctx := c.Request.Context()
	log := requestLog(c, s.log)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "failed to read request body"})
		return
	}
	req, err := stewardjson.UnmarshalChatRequest(body)
	if err != nil {
		log.WithError(err).Warn("invalid chat request payload")
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request payload"})
		return
	}

	log = log.WithFields(logrus.Fields{
		"user_id":        req.UserID,
		"message_length": len(req.Message),
	})

	prompt, err := s.assembler.Assemble(ctx, req)
	switch {
	case errors.Is(err, steward.ErrValidation):
		log.WithError(err).Warn("rejected chat request")
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	case err != nil:
		log.WithError(err).Error("failed to assemble prompt")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to prepare the conversation"})
		return
	}
	log.Info("chat request")

	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	err = s.relay.Run(ctx, prompt, eventSink(c.Writer))
	switch {
	case err == nil:
	case ctx.Err() != nil:
		log.Info("client disconnected")
	default:
		log.WithError(err).Error("chat stream failed")
	}
}

// eventSink writes each event as one SSE data frame and flushes it.
func eventSink(w gin.ResponseWriter) steward.Sink {
	return steward.SinkFunc(func(e steward.Event) error {
		data, err := stewardjson.MarshalEvent(e)
		if err != nil {
			return err
		}
		if err := sse.Encode(w, sse.Event{Data: string(data)}); err != nil {
			return err
		}
		w.Flush()
		return nil
	})
}
