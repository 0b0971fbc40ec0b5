// Package ports declares the order context's driven interfaces.
package ports

import (
	"context"
	"errors"

	"github.com/quickbite/order-service/internal/domains/orders/domain"
)

var (
	// ErrNotFound signals the requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrStatusConflict signals a concurrent update won the optimistic check.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// ListFilter narrows and paginates order listings. Zero values mean "no
// filter"; Page is 1-based.
type ListFilter struct {
	TenantID      string
	PaymentStatus domain.PaymentStatus
	OrderStatus   domain.Status
	ProductName   string
	Page          int
	Limit         int
}

// Page is one page of a listing plus the unfiltered total.
type Page struct {
	Orders []*domain.Order
	Total  int64
}

// Repository reads and mutates persisted orders outside the creation
// transaction.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, filter ListFilter) (*Page, error)
	ListByCustomer(ctx context.Context, customerID string, filter ListFilter) (*Page, error)
	// UpdateStatus applies an optimistic compare-and-set on orderStatus and
	// returns ErrStatusConflict when the stored status no longer matches from.
	UpdateStatus(ctx context.Context, id string, from, to domain.Status) (*domain.Order, error)
	UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) (*domain.Order, error)
}

// TxRepository is the write surface available inside the creation
// transaction.
type TxRepository interface {
	InsertOrder(ctx context.Context, order *domain.Order) error
	InsertIdempotencyRecord(ctx context.Context, record IdempotencyRecord) error
}

// TransactionManager runs fn atomically: either both inserts land or
// neither does.
type TransactionManager interface {
	InTransaction(ctx context.Context, fn func(tx TxRepository) error) error
}
