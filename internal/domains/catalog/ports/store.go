package ports

import (
	"context"

	"github.com/quickbite/order-service/internal/domains/catalog/domain"
)

// Reader serves batch lookups for price resolution.
type Reader interface {
	ProductsByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
	ToppingsByIDs(ctx context.Context, ids []string) ([]domain.Topping, error)
}

// Writer applies last-write-wins upserts. Only the synchronizer writes.
type Writer interface {
	UpsertProduct(ctx context.Context, product domain.Product) error
	UpsertTopping(ctx context.Context, topping domain.Topping) error
}

// Store combines both sides for adapters that implement the full mirror.
type Store interface {
	Reader
	Writer
}
