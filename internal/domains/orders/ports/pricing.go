package ports

import (
	"context"

	catalog "github.com/quickbite/order-service/internal/domains/catalog/application"
)

// PriceResolver prices requested items from the catalog mirrors.
type PriceResolver interface {
	Price(ctx context.Context, tenantID string, items []catalog.RequestedItem) ([]catalog.PricedItem, error)
}
