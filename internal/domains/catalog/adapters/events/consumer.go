// Package events consumes upstream catalog change messages and feeds them to
// the synchronizer.
package events

import (
	"context"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/quickbite/order-service/internal/domains/catalog/application"
	"github.com/quickbite/order-service/internal/platform/rabbitmq"
)

// Topics this service mirrors.
const (
	TopicProduct = "product"
	TopicTopping = "topping"
)

const queuePrefix = "order-service."

// Consumer runs one consume loop per catalog topic. Failed messages are
// logged and acked: the mirror is eventually repaired by the next upsert for
// the same entity.
type Consumer struct {
	client       *rabbitmq.Client
	synchronizer *application.Synchronizer
	logger       *slog.Logger
}

// NewConsumer wires the consumer. A nil logger falls back to slog.Default.
func NewConsumer(client *rabbitmq.Client, synchronizer *application.Synchronizer, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{client: client, synchronizer: synchronizer, logger: logger}
}

// Run subscribes to both topics and blocks until the context is cancelled or
// both delivery streams close.
func (c *Consumer) Run(ctx context.Context) error {
	products, err := c.client.Subscribe(TopicProduct, queuePrefix+TopicProduct)
	if err != nil {
		return err
	}
	toppings, err := c.client.Subscribe(TopicTopping, queuePrefix+TopicTopping)
	if err != nil {
		return err
	}

	done := make(chan struct{}, 2)
	go func() {
		c.consume(ctx, TopicProduct, products, c.synchronizer.HandleProductMessage)
		done <- struct{}{}
	}()
	go func() {
		c.consume(ctx, TopicTopping, toppings, c.synchronizer.HandleToppingMessage)
		done <- struct{}{}
	}()

	<-done
	<-done
	return ctx.Err()
}

func (c *Consumer) consume(ctx context.Context, topic string, deliveries <-chan amqp.Delivery, handle func(context.Context, []byte) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				c.logger.WarnContext(ctx, "delivery stream closed", slog.String("topic", topic))
				return
			}
			if err := handle(ctx, delivery.Body); err != nil {
				c.logger.ErrorContext(ctx, "catalog message dropped",
					slog.String("topic", topic),
					slog.String("error", err.Error()))
			}
			if err := delivery.Ack(false); err != nil {
				c.logger.ErrorContext(ctx, "ack failed", slog.String("topic", topic), slog.String("error", err.Error()))
			}
		}
	}
}
