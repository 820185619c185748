package eventbus

import (
	"context"
	"log/slog"
)

// Publisher sends encoded envelopes to a bus.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
	Close() error
}

// NoopPublisher drops every message.
type NoopPublisher struct {
	logger *slog.Logger
}

func NewNoopPublisher(logger *slog.Logger) *NoopPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopPublisher{logger: logger}
}

func (p *NoopPublisher) Publish(_ context.Context, routingKey string, body []byte) error {
	p.logger.Debug("event dropped", "routing_key", routingKey, "size", len(body))
	return nil
}

func (p *NoopPublisher) Close() error { return nil }

// LocalBus delivers published envelopes synchronously to in-process
// subscribers. Subscriber failures are logged and never reach the publisher.
type LocalBus struct {
	*Router
	logger *slog.Logger
}

func NewLocalBus(logger *slog.Logger) *LocalBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalBus{Router: NewRouter(logger), logger: logger}
}

func (b *LocalBus) Publish(ctx context.Context, routingKey string, body []byte) error {
	env, err := DecodeEnvelope(body, routingKey)
	if err != nil {
		b.logger.Error("dropping undecodable event", "routing_key", routingKey, "error", err)
		return nil
	}
	_ = b.Dispatch(ctx, env)
	return nil
}

func (b *LocalBus) Close() error { return nil }
