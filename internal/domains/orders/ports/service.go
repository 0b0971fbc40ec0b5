package ports

import (
	"context"

	"github.com/quickbite/order-service/internal/domains/orders/application/types"
	"github.com/quickbite/order-service/internal/domains/orders/domain"
)

// Service defines the order use cases exposed to adapters (inbound port).
type Service interface {
	CreateOrder(ctx context.Context, input types.CreateOrderInput) (*types.CreateOrderResult, error)
	UpdateOrderStatus(ctx context.Context, input types.StatusUpdateInput) (*domain.Order, error)
	GetOrder(ctx context.Context, caller types.Caller, orderID string) (*domain.Order, error)
	ListOrders(ctx context.Context, input types.ListOrdersInput) (*Page, error)
	ListMyOrders(ctx context.Context, input types.ListOrdersInput) (*Page, error)
	RecordPayment(ctx context.Context, orderID string, status domain.PaymentStatus) (*domain.Order, error)
	HandlePaymentWebhook(ctx context.Context, sessionID string) (*domain.Order, error)
}
