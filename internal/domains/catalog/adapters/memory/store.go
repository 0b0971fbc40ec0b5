// Package memory provides an in-memory catalog mirror used in tests and as a
// degraded-mode fallback when Postgres is unavailable.
package memory

import (
	"context"
	"sync"

	"github.com/quickbite/order-service/internal/domains/catalog/domain"
)

// Store keeps the product and topping mirrors in process memory.
type Store struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	toppings map[string]domain.Topping
}

// NewStore returns an empty mirror.
func NewStore() *Store {
	return &Store{
		products: make(map[string]domain.Product),
		toppings: make(map[string]domain.Topping),
	}
}

func (s *Store) ProductsByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if product, ok := s.products[id]; ok {
			products = append(products, product)
		}
	}
	return products, nil
}

func (s *Store) ToppingsByIDs(_ context.Context, ids []string) ([]domain.Topping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	toppings := make([]domain.Topping, 0, len(ids))
	for _, id := range ids {
		if topping, ok := s.toppings[id]; ok {
			toppings = append(toppings, topping)
		}
	}
	return toppings, nil
}

func (s *Store) UpsertProduct(_ context.Context, product domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[product.ProductID] = product
	return nil
}

func (s *Store) UpsertTopping(_ context.Context, topping domain.Topping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toppings[topping.ToppingID] = topping
	return nil
}
