package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	backend "github.com/redis/go-redis/v9"

	"github.com/dylansturg/weakevent"
	"github.com/dylansturg/weakevent/internal/logging"
)

var (
	// ErrClosed is returned by Run when the pub/sub connection closes
	// before the context is canceled.
	ErrClosed = errors.New("redis subscription closed")
)

// Recorder counts feed activity. A Collector from pkg/observability
// satisfies it; a nil Recorder disables counting.
type Recorder interface {
	MessageReceived()
	DecodeError()
}

// Remote identifies the publisher of a forwarded message. It is the
// sender value handlers receive when a Source raises its event.
type Remote struct {
	Channel string
	Origin  string
}

// Source republishes one Redis pub/sub channel as a local weak event.
// Remote publishers never learn about local subscribers; subscribers
// attach weak handlers to Event and may be reclaimed at any time
// without unsubscribing from anything.
type Source[A any] struct {
	client  *backend.Client
	channel string
	event   weakevent.Event[A]
	logger  *slog.Logger
	metrics Recorder
}

// Option configures a Source.
type Option[A any] func(*Source[A])

// WithLogger sets a custom structured logger for the source.
func WithLogger[A any](logger *slog.Logger) Option[A] {
	return func(s *Source[A]) {
		s.logger = logger
	}
}

// WithRecorder counts received and skipped messages on rec.
func WithRecorder[A any](rec Recorder) Option[A] {
	return func(s *Source[A]) {
		s.metrics = rec
	}
}

// NewSource creates a source reading from channel on an existing
// client. The client is borrowed; closing it remains the caller's
// responsibility.
func NewSource[A any](client *backend.Client, channel string, opts ...Option[A]) *Source[A] {
	s := &Source[A]{
		client:  client,
		channel: channel,
		logger:  logging.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Event returns the local event remote messages are raised on.
func (s *Source[A]) Event() *weakevent.Event[A] {
	return &s.event
}

// Channel returns the Redis channel name this source consumes.
func (s *Source[A]) Channel() string {
	return s.channel
}

// Run subscribes and forwards messages until ctx is canceled or the
// connection closes. Messages are raised in arrival order on Run's
// goroutine; a handler that blocks stalls the feed.
func (s *Source[A]) Run(ctx context.Context) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	// Block until Redis confirms the subscription, so callers can
	// sequence publishers after Run is known to be receiving.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}
	s.logger.Info("subscribed", "channel", s.channel)

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return ErrClosed
			}
			s.dispatch(msg)
		}
	}
}

// Publish marshals args into the wire envelope and publishes it on the
// source's channel. It mirrors the Run loop for tests and demos; any
// publisher producing the same JSON shape interoperates.
func (s *Source[A]) Publish(ctx context.Context, origin string, args A) error {
	data, err := encodeEnvelope(origin, args)
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", s.channel, err)
	}
	return nil
}

func (s *Source[A]) dispatch(msg *backend.Message) {
	if s.metrics != nil {
		s.metrics.MessageReceived()
	}

	origin, args, err := decodeEnvelope[A]([]byte(msg.Payload))
	if err != nil {
		if s.metrics != nil {
			s.metrics.DecodeError()
		}
		s.logger.Warn("skipping malformed message", "channel", s.channel, "error", err)
		return
	}

	s.logger.Debug("raising remote event", "channel", s.channel, "origin", origin)
	s.event.Raise(&Remote{Channel: s.channel, Origin: origin}, args)
}
