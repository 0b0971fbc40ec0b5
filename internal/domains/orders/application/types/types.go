// Package types carries the use-case inputs and results exchanged between
// adapters and the order application service.
package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/quickbite/order-service/internal/domains/orders/domain"
	"github.com/quickbite/order-service/internal/shared/authz"
	"github.com/quickbite/order-service/internal/shared/money"
)

// ErrInvalidInput indicates a request that fails validation before any
// side effect.
var ErrInvalidInput = errors.New("invalid order request")

// Caller identifies who is performing the operation.
type Caller struct {
	ID       string
	Email    string
	Role     authz.Role
	TenantID string
}

// RequestedBase names the chosen base option. Client-submitted prices are
// deliberately absent.
type RequestedBase struct {
	Name string `json:"name"`
}

// RequestedTopping references a topping by id only.
type RequestedTopping struct {
	ID string `json:"id"`
}

// OrderItemInput is one requested order line.
type OrderItemInput struct {
	ProductID   string             `json:"productId"`
	ProductName string             `json:"productName"`
	Quantity    int                `json:"quantity"`
	Base        RequestedBase      `json:"base"`
	Toppings    []RequestedTopping `json:"toppings"`
}

// CreateOrderInput is everything needed to materialize an order.
type CreateOrderInput struct {
	IdempotencyKey string
	Caller         Caller
	TenantID       string
	Address        string
	Phone          string
	Comment        string
	CouponCode     string
	Discount       money.Amount
	PaymentMode    domain.PaymentMode
	Items          []OrderItemInput
}

// Validate rejects requests that can never produce a valid order.
func (in CreateOrderInput) Validate() error {
	if strings.TrimSpace(in.IdempotencyKey) == "" {
		return fmt.Errorf("%w: missing idempotency key", ErrInvalidInput)
	}
	if in.TenantID == "" {
		return fmt.Errorf("%w: missing tenant id", ErrInvalidInput)
	}
	if in.Address == "" {
		return fmt.Errorf("%w: missing address", ErrInvalidInput)
	}
	if in.PaymentMode != domain.PaymentModeCash && in.PaymentMode != domain.PaymentModeCard {
		return fmt.Errorf("%w: unknown payment mode %q", ErrInvalidInput, string(in.PaymentMode))
	}
	if in.Discount < 0 {
		return fmt.Errorf("%w: negative discount", ErrInvalidInput)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalidInput)
	}
	for i, item := range in.Items {
		if item.ProductID == "" {
			return fmt.Errorf("%w: item %d missing product id", ErrInvalidInput, i)
		}
		if item.Base.Name == "" {
			return fmt.Errorf("%w: item %d missing base name", ErrInvalidInput, i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d has non-positive quantity", ErrInvalidInput, i)
		}
		for j, topping := range item.Toppings {
			if topping.ID == "" {
				return fmt.Errorf("%w: item %d topping %d missing id", ErrInvalidInput, i, j)
			}
		}
	}
	return nil
}

// CreateOrderResult is the creation outcome. PaymentURL is empty for cash
// orders. Replayed marks an idempotent hit.
type CreateOrderResult struct {
	Order      *domain.Order
	PaymentURL string
	Replayed   bool
}

// StatusUpdateInput requests a lifecycle transition on an existing order.
type StatusUpdateInput struct {
	Caller     Caller
	OrderID    string
	NextStatus domain.Status
}

// Paging bounds applied to listings.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// ListOrdersInput filters and paginates a listing.
type ListOrdersInput struct {
	Caller        Caller
	TenantID      string
	PaymentStatus domain.PaymentStatus
	OrderStatus   domain.Status
	ProductName   string
	Page          int
	Limit         int
}

// Normalize clamps the paging fields to the supported bounds.
func (in *ListOrdersInput) Normalize() {
	if in.Page < 1 {
		in.Page = 1
	}
	if in.Limit <= 0 {
		in.Limit = DefaultPageLimit
	}
	if in.Limit > MaxPageLimit {
		in.Limit = MaxPageLimit
	}
}
