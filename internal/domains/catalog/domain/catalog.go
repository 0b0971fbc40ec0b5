// Package domain holds the read-optimized catalog mirrors kept in sync from
// upstream product and topping change events.
package domain

import "github.com/quickbite/order-service/internal/shared/money"

// PriceType partitions a product's price configuration.
type PriceType string

const (
	PriceTypeBase       PriceType = "base"
	PriceTypeAdditional PriceType = "additional"
)

// PriceConfiguration lists the purchasable options under one price type.
// Keys of AvailableOptions are option names (e.g. "margherita").
type PriceConfiguration struct {
	PriceType        PriceType               `json:"priceType"`
	AvailableOptions map[string]money.Amount `json:"availableOptions"`
}

// Product mirrors upstream product pricing. The outer PriceConfiguration map
// is keyed by price type.
type Product struct {
	ProductID          string
	TenantID           string
	PriceConfiguration map[PriceType]PriceConfiguration
}

// BasePrice looks up the price for an option name under the base price type.
func (p Product) BasePrice(optionName string) (money.Amount, bool) {
	configuration, ok := p.PriceConfiguration[PriceTypeBase]
	if !ok {
		return 0, false
	}
	price, ok := configuration.AvailableOptions[optionName]
	return price, ok
}

// Topping mirrors upstream topping pricing.
type Topping struct {
	ToppingID string
	Name      string
	Price     money.Amount
	TenantID  string
}
