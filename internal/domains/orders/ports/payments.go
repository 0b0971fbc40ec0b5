package ports

import (
	"context"

	"github.com/quickbite/order-service/internal/domains/orders/domain"
	"github.com/quickbite/order-service/internal/shared/money"
)

// SessionOptions carries everything the gateway needs to open a checkout
// session for an order.
type SessionOptions struct {
	OrderID       string
	TenantID      string
	CustomerEmail string
	Amount        money.Amount
	Currency      string
	// IdempotencyKey lets the gateway dedupe session creation on retries.
	IdempotencyKey string
}

// PaymentSession is a freshly created checkout session.
type PaymentSession struct {
	ID         string
	PaymentURL string
}

// VerifiedSession is the gateway's view of an existing session.
type VerifiedSession struct {
	ID            string
	OrderID       string
	TenantID      string
	PaymentStatus domain.PaymentStatus
}

// PaymentGateway is the narrow contract used against the external payment
// provider.
type PaymentGateway interface {
	CreateSession(ctx context.Context, opts SessionOptions) (*PaymentSession, error)
	GetSession(ctx context.Context, sessionID string) (*VerifiedSession, error)
}
