package domain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quickbite/order-service/internal/shared/money"
)

func validOrder() *Order {
	return &Order{
		ID:            "ord-1",
		CustomerID:    "cust-1",
		TenantID:      "tenant-1",
		Address:       "12 Baker Street",
		Phone:         "555-0100",
		PaymentMode:   PaymentModeCash,
		PaymentStatus: PaymentStatusNoPaymentRequired,
		OrderStatus:   StatusPending,
		Items: []Item{{
			ProductID:   "prod-1",
			ProductName: "Pizza",
			Base:        Base{Name: "margherita", Price: 20000},
			Quantity:    2,
			Toppings:    []Topping{{ID: "top-1", Name: "olives", Price: 2000}},
			ItemTotal:   44000,
		}},
		Amounts: Amount{
			SubTotal:       44000,
			Tax:            3080,
			DeliveryCharge: 5000,
			Discount:       0,
			GrandTotal:     52080,
		},
	}
}

func TestValidate_AcceptsConsistentOrder(t *testing.T) {
	require.NoError(t, validOrder().Validate())
}

func TestValidate_RejectsItemTotalMismatch(t *testing.T) {
	order := validOrder()
	order.Items[0].ItemTotal = 40000
	require.ErrorIs(t, order.Validate(), ErrInvalidOrder)
}

func TestValidate_RejectsGrandTotalMismatch(t *testing.T) {
	order := validOrder()
	order.Amounts.GrandTotal = 50000
	require.ErrorIs(t, order.Validate(), ErrInvalidOrder)
}

func TestValidate_RejectsEmptyItems(t *testing.T) {
	order := validOrder()
	order.Items = nil
	require.ErrorIs(t, order.Validate(), ErrInvalidOrder)
}

func TestValidate_RejectsUnknownPaymentMode(t *testing.T) {
	order := validOrder()
	order.PaymentMode = PaymentMode("CRYPTO")
	require.ErrorIs(t, order.Validate(), ErrInvalidOrder)
}

func TestValidate_DiscountInGrandTotal(t *testing.T) {
	order := validOrder()
	order.Amounts.Discount = 2080
	order.Amounts.GrandTotal = 50000
	require.NoError(t, order.Validate())
}

func TestInitialPaymentStatus(t *testing.T) {
	require.Equal(t, PaymentStatusPending, InitialPaymentStatus(PaymentModeCard))
	require.Equal(t, PaymentStatusNoPaymentRequired, InitialPaymentStatus(PaymentModeCash))
}

func TestProductNames_Distinct(t *testing.T) {
	order := validOrder()
	order.Items = append(order.Items, order.Items[0], Item{
		ProductID:   "prod-2",
		ProductName: "Garlic Bread",
		Base:        Base{Name: "classic", Price: money.Amount(8000)},
		Quantity:    1,
		ItemTotal:   8000,
	})
	require.Equal(t, []string{"Pizza", "Garlic Bread"}, order.ProductNames())
}
