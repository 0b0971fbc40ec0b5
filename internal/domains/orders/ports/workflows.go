package ports

import "context"

// PaymentWatcher follows a checkout session until the gateway reports a
// terminal payment status, then records it on the order.
type PaymentWatcher interface {
	Watch(ctx context.Context, sessionID, orderID, tenantID string) error
}
