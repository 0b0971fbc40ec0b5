package application

import (
	catalog "github.com/quickbite/order-service/internal/domains/catalog/application"
	"github.com/quickbite/order-service/internal/domains/orders/domain"
	"github.com/quickbite/order-service/internal/shared/money"
)

// TaxRateBasisPoints is the flat tax applied to the item subtotal (7%).
const TaxRateBasisPoints = 700

// DeliveryCharge is the flat per-order delivery fee in minor units.
const DeliveryCharge = money.Amount(5000)

// CalculateAmounts derives the money breakdown from resolved items. Discount
// is taken as given from the request.
func CalculateAmounts(items []catalog.PricedItem, discount money.Amount) domain.Amount {
	var subTotal money.Amount
	for _, item := range items {
		subTotal += item.ItemTotal
	}
	tax := subTotal.Percent(TaxRateBasisPoints)
	return domain.Amount{
		SubTotal:       subTotal,
		Tax:            tax,
		DeliveryCharge: DeliveryCharge,
		Discount:       discount,
		GrandTotal:     subTotal + tax + DeliveryCharge - discount,
	}
}
