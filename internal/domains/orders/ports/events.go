package ports

import (
	"context"

	"github.com/quickbite/order-service/internal/domains/orders/domain"
)

// EventPublisher emits order lifecycle events to the message bus. Publishing
// happens after commit; failures are logged, never rolled back into the
// request.
type EventPublisher interface {
	Publish(ctx context.Context, eventType domain.EventType, snapshot any) error
}
