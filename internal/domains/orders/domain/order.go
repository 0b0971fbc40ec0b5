// Package domain defines the order aggregate and its lifecycle rules.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/quickbite/order-service/internal/shared/money"
)

// PaymentMode selects how the order is paid.
type PaymentMode string

const (
	PaymentModeCash PaymentMode = "CASH"
	PaymentModeCard PaymentMode = "CARD"
)

// PaymentStatus tracks the external payment lifecycle.
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "PENDING"
	PaymentStatusUnpaid            PaymentStatus = "UNPAID"
	PaymentStatusPaid              PaymentStatus = "PAID"
	PaymentStatusNoPaymentRequired PaymentStatus = "NO_PAYMENT_REQUIRED"
)

var (
	ErrInvalidOrder      = errors.New("invalid order")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Topping is a priced add-on captured on an order line.
type Topping struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Price money.Amount `json:"price"`
}

// Base is the chosen base option with its resolved price.
type Base struct {
	Name  string       `json:"name"`
	Price money.Amount `json:"price"`
}

// Item is one order line. Prices are resolved server-side at creation and
// never change afterwards.
type Item struct {
	ProductID   string       `json:"productId"`
	ProductName string       `json:"productName"`
	Base        Base         `json:"base"`
	Quantity    int          `json:"quantity"`
	Toppings    []Topping    `json:"toppings"`
	ItemTotal   money.Amount `json:"itemTotal"`
}

// Amount is the order's derived money breakdown.
type Amount struct {
	SubTotal       money.Amount `json:"subTotal"`
	Tax            money.Amount `json:"tax"`
	DeliveryCharge money.Amount `json:"deliveryCharge"`
	Discount       money.Amount `json:"discount"`
	GrandTotal     money.Amount `json:"grandTotal"`
}

// Order is the aggregate root. Items and amounts are immutable after
// creation; only OrderStatus and PaymentStatus mutate, through the status
// machine and the payment recording path.
type Order struct {
	ID               string        `json:"id"`
	CustomerID       string        `json:"customerId"`
	TenantID         string        `json:"tenantId"`
	Address          string        `json:"address"`
	Phone            string        `json:"phone"`
	Comment          string        `json:"comment,omitempty"`
	CouponCode       string        `json:"couponCode,omitempty"`
	PaymentMode      PaymentMode   `json:"paymentMode"`
	PaymentStatus    PaymentStatus `json:"paymentStatus"`
	PaymentSessionID string        `json:"paymentSessionId,omitempty"`
	OrderStatus      Status        `json:"orderStatus"`
	Items            []Item        `json:"items"`
	Amounts          Amount        `json:"amounts"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// ProductNames returns the distinct product names across all items.
func (o *Order) ProductNames() []string {
	seen := make(map[string]struct{}, len(o.Items))
	names := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		if _, ok := seen[item.ProductName]; ok {
			continue
		}
		seen[item.ProductName] = struct{}{}
		names = append(names, item.ProductName)
	}
	return names
}

// Validate checks the aggregate invariants.
func (o *Order) Validate() error {
	if o.CustomerID == "" {
		return fmt.Errorf("%w: missing customer id", ErrInvalidOrder)
	}
	if o.TenantID == "" {
		return fmt.Errorf("%w: missing tenant id", ErrInvalidOrder)
	}
	if o.PaymentMode != PaymentModeCash && o.PaymentMode != PaymentModeCard {
		return fmt.Errorf("%w: unknown payment mode %q", ErrInvalidOrder, string(o.PaymentMode))
	}
	if len(o.Items) == 0 {
		return fmt.Errorf("%w: order has no items", ErrInvalidOrder)
	}
	var subTotal money.Amount
	for i, item := range o.Items {
		if item.ProductID == "" {
			return fmt.Errorf("%w: item %d missing product id", ErrInvalidOrder, i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d has non-positive quantity", ErrInvalidOrder, i)
		}
		var toppingSum money.Amount
		for _, topping := range item.Toppings {
			toppingSum += topping.Price
		}
		expected := (item.Base.Price + toppingSum).MulQty(item.Quantity)
		if item.ItemTotal != expected {
			return fmt.Errorf("%w: item %d total %d != %d", ErrInvalidOrder, i, item.ItemTotal, expected)
		}
		subTotal += item.ItemTotal
	}
	if o.Amounts.SubTotal != subTotal {
		return fmt.Errorf("%w: subTotal %d != %d", ErrInvalidOrder, o.Amounts.SubTotal, subTotal)
	}
	expectedGrand := o.Amounts.SubTotal + o.Amounts.Tax + o.Amounts.DeliveryCharge - o.Amounts.Discount
	if o.Amounts.GrandTotal != expectedGrand {
		return fmt.Errorf("%w: grandTotal %d != %d", ErrInvalidOrder, o.Amounts.GrandTotal, expectedGrand)
	}
	return nil
}

// InitialPaymentStatus is the payment status a fresh order starts in for the
// given mode.
func InitialPaymentStatus(mode PaymentMode) PaymentStatus {
	if mode == PaymentModeCard {
		return PaymentStatusPending
	}
	return PaymentStatusNoPaymentRequired
}
