// Package events publishes order lifecycle events to the message bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/quickbite/order-service/internal/domains/orders/domain"
	"github.com/quickbite/order-service/internal/domains/orders/ports"
	"github.com/quickbite/order-service/internal/platform/rabbitmq"
)

const publishTimeout = 5 * time.Second

var _ ports.EventPublisher = (*Publisher)(nil)

// Publisher emits envelopes to the order exchange and waits for broker
// confirmation.
type Publisher struct {
	client *rabbitmq.Client
	logger *slog.Logger
}

// NewPublisher declares the order exchange and returns the publisher.
func NewPublisher(client *rabbitmq.Client, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := client.DeclareExchange(domain.Topic); err != nil {
		return nil, fmt.Errorf("declare order exchange: %w", err)
	}
	return &Publisher{client: client, logger: logger}, nil
}

// Publish wraps the snapshot in an envelope and sends it with a bounded
// timeout.
func (p *Publisher) Publish(ctx context.Context, eventType domain.EventType, snapshot any) error {
	envelope, err := domain.NewEnvelope(eventType, snapshot)
	if err != nil {
		return fmt.Errorf("build envelope: %w", err)
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.client.Publish(ctx, domain.Topic, string(eventType), body); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	p.logger.DebugContext(ctx, "event published", slog.String("event_type", string(eventType)))
	return nil
}

var _ ports.EventPublisher = (*LogPublisher)(nil)

// LogPublisher stands in when the broker is unavailable: events are logged
// and dropped.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher returns the fallback publisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, eventType domain.EventType, snapshot any) error {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "event dropped, no broker configured",
		slog.String("event_type", string(eventType)),
		slog.String("payload", string(body)))
	return nil
}
