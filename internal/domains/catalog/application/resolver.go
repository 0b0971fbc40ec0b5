package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/quickbite/order-service/internal/domains/catalog/domain"
	"github.com/quickbite/order-service/internal/domains/catalog/ports"
	"github.com/quickbite/order-service/internal/shared/money"
)

var (
	// ErrProductNotCached signals the product mirror has not seen this id yet.
	ErrProductNotCached = errors.New("product not found in catalog cache")
	// ErrBasePriceNotConfigured signals the chosen base has no price under the
	// product's base price type.
	ErrBasePriceNotConfigured = errors.New("base price not configured")
	// ErrToppingNotCached signals the topping mirror has not seen this id yet.
	ErrToppingNotCached = errors.New("topping not found in catalog cache")
)

// RequestedItem is an order line as submitted by the client. Any
// client-submitted prices have already been discarded.
type RequestedItem struct {
	ProductID   string
	ProductName string
	BaseName    string
	Quantity    int
	ToppingIDs  []string
}

// PricedTopping is a topping with its authoritative cached price.
type PricedTopping struct {
	ID    string
	Name  string
	Price money.Amount
}

// PricedItem is an order line with all prices resolved from the cache.
type PricedItem struct {
	ProductID   string
	ProductName string
	BaseName    string
	Quantity    int
	BasePrice   money.Amount
	Toppings    []PricedTopping
	ItemTotal   money.Amount
}

// Resolver prices order lines strictly from the catalog mirrors. It is a pure
// function of the store snapshot and the request.
type Resolver struct {
	store ports.Reader
}

// NewResolver wires the resolver with its read port.
func NewResolver(store ports.Reader) *Resolver {
	return &Resolver{store: store}
}

// Price resolves every item in two batch lookups (one per mirror), then
// computes itemTotal = (basePrice + Σ toppingPrices) × quantity.
func (r *Resolver) Price(ctx context.Context, tenantID string, items []RequestedItem) ([]PricedItem, error) {
	products, err := r.store.ProductsByIDs(ctx, distinctProductIDs(items))
	if err != nil {
		return nil, fmt.Errorf("fetch product cache: %w", err)
	}
	toppings, err := r.store.ToppingsByIDs(ctx, distinctToppingIDs(items))
	if err != nil {
		return nil, fmt.Errorf("fetch topping cache: %w", err)
	}

	productsByID := make(map[string]domain.Product, len(products))
	for _, product := range products {
		if tenantID == "" || product.TenantID == tenantID {
			productsByID[product.ProductID] = product
		}
	}
	toppingsByID := make(map[string]domain.Topping, len(toppings))
	for _, topping := range toppings {
		if tenantID == "" || topping.TenantID == tenantID {
			toppingsByID[topping.ToppingID] = topping
		}
	}

	priced := make([]PricedItem, 0, len(items))
	for _, item := range items {
		resolved, err := priceItem(item, productsByID, toppingsByID)
		if err != nil {
			return nil, err
		}
		priced = append(priced, resolved)
	}
	return priced, nil
}

func priceItem(item RequestedItem, products map[string]domain.Product, toppings map[string]domain.Topping) (PricedItem, error) {
	product, ok := products[item.ProductID]
	if !ok {
		return PricedItem{}, fmt.Errorf("%w: product %q", ErrProductNotCached, item.ProductID)
	}
	basePrice, ok := product.BasePrice(item.BaseName)
	if !ok {
		return PricedItem{}, fmt.Errorf("%w: base %q for product %q", ErrBasePriceNotConfigured, item.BaseName, item.ProductID)
	}

	pricedToppings := make([]PricedTopping, 0, len(item.ToppingIDs))
	var toppingSum money.Amount
	for _, toppingID := range item.ToppingIDs {
		topping, ok := toppings[toppingID]
		if !ok {
			return PricedItem{}, fmt.Errorf("%w: topping %q", ErrToppingNotCached, toppingID)
		}
		pricedToppings = append(pricedToppings, PricedTopping{ID: topping.ToppingID, Name: topping.Name, Price: topping.Price})
		toppingSum += topping.Price
	}

	return PricedItem{
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		BaseName:    item.BaseName,
		Quantity:    item.Quantity,
		BasePrice:   basePrice,
		Toppings:    pricedToppings,
		ItemTotal:   (basePrice + toppingSum).MulQty(item.Quantity),
	}, nil
}

func distinctProductIDs(items []RequestedItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

func distinctToppingIDs(items []RequestedItem) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, item := range items {
		for _, toppingID := range item.ToppingIDs {
			if _, ok := seen[toppingID]; ok {
				continue
			}
			seen[toppingID] = struct{}{}
			ids = append(ids, toppingID)
		}
	}
	return ids
}
