package steward

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Relay drives one request end to end: it opens a TokenSource, feeds every
// increment through a fresh Classifier and forwards the resolved segments to
// a Sink, followed by exactly one terminal event.
type Relay struct {
	provider       Provider
	classifierOpts []ClassifierOption
	log            logrus.FieldLogger
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithClassifierOptions sets the options applied to each request's Classifier.
func WithClassifierOptions(opts ...ClassifierOption) RelayOption {
	return func(r *Relay) {
		r.classifierOpts = append(r.classifierOpts, opts...)
	}
}

// WithLogger sets the logger. Default is the logrus standard logger.
func WithLogger(l logrus.FieldLogger) RelayOption {
	return func(r *Relay) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRelay creates a Relay streaming from provider.
func NewRelay(provider Provider, opts ...RelayOption) *Relay {
	r := &Relay{provider: provider, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run streams one prompt into sink. It returns nil after EventDone has been
// sent. On upstream failure it sends a single EventError and returns the
// cause. If ctx is cancelled it returns ctx.Err() without flushing the
// classifier and without a terminal event. A Sink error is returned as is.
func (r *Relay) Run(ctx context.Context, prompt Prompt, sink Sink) error {
	log := r.log.WithField("model", prompt.Model)

	src, err := r.provider.Stream(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Error("failed to open token stream")
		return r.fail(log, sink, err)
	}
	defer src.Close()

	cls := NewClassifier(r.classifierOpts...)
	var answers, thoughts int
	forward := func(seg Segment) error {
		if seg.Kind == SegmentThinking {
			thoughts++
		} else {
			answers++
		}
		return sink.Send(EventFor(seg))
	}

	for {
		if err := ctx.Err(); err != nil {
			log.WithField("pending", cls.Pending()).Debug("relay cancelled")
			return err
		}
		inc, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				log.WithField("pending", cls.Pending()).Debug("relay cancelled")
				return ctx.Err()
			}
			log.WithError(err).WithField("answers", answers).Error("token stream failed")
			return r.fail(log, sink, err)
		}
		for _, seg := range cls.Feed(inc) {
			if err := forward(seg); err != nil {
				return fmt.Errorf("send segment: %w", err)
			}
		}
	}

	if seg, ok := cls.Finish(); ok {
		if err := forward(seg); err != nil {
			return fmt.Errorf("send segment: %w", err)
		}
	}
	if err := sink.Send(EventDone{}); err != nil {
		return fmt.Errorf("send done: %w", err)
	}
	log.WithFields(logrus.Fields{
		"answers":  answers,
		"thoughts": thoughts,
	}).Info("relay completed")
	return nil
}

// fail reports cause to sink as the terminal event and returns cause.
func (r *Relay) fail(log logrus.FieldLogger, sink Sink, cause error) error {
	msg := fmt.Sprintf("AI service error: %v", cause)
	if err := sink.Send(EventError{Message: msg}); err != nil {
		log.WithError(err).Warn("failed to deliver error event")
	}
	return cause
}
