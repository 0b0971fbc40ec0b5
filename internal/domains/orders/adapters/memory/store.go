// Package memory implements the order persistence ports in process memory.
// Used by tests and as a degraded-mode fallback when Postgres is unavailable.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quickbite/order-service/internal/domains/orders/domain"
	"github.com/quickbite/order-service/internal/domains/orders/ports"
)

var (
	_ ports.Repository         = (*Store)(nil)
	_ ports.IdempotencyStore   = (*Store)(nil)
	_ ports.TransactionManager = (*Store)(nil)
)

// Store keeps orders and the idempotency ledger in memory. The single mutex
// also serializes transactions, which emulates the storage-layer uniqueness
// guarantee on the idempotency key.
type Store struct {
	mu      sync.Mutex
	orders  map[string]*domain.Order
	records map[string]ports.IdempotencyRecord
	now     func() time.Time
}

// Option customizes the store.
type Option func(*Store)

// WithClock overrides the time source used for TTL checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		orders:  make(map[string]*domain.Order),
		records: make(map[string]ports.IdempotencyRecord),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) GetByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return cloneOrder(order), nil
}

func (s *Store) List(_ context.Context, filter ports.ListFilter) (*ports.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page(filter, ""), nil
}

func (s *Store) ListByCustomer(_ context.Context, customerID string, filter ports.ListFilter) (*ports.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page(filter, customerID), nil
}

func (s *Store) UpdateStatus(_ context.Context, id string, from, to domain.Status) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if order.OrderStatus != from {
		return nil, ports.ErrStatusConflict
	}
	order.OrderStatus = to
	order.UpdatedAt = s.now().UTC()
	return cloneOrder(order), nil
}

func (s *Store) UpdatePaymentStatus(_ context.Context, id string, status domain.PaymentStatus) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	order.PaymentStatus = status
	order.UpdatedAt = s.now().UTC()
	return cloneOrder(order), nil
}

// Get returns the live record for key; expired records count as misses.
func (s *Store) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[key]
	if !ok || record.Expired(s.now()) {
		return nil, nil
	}
	clone := record
	clone.Order = cloneOrder(record.Order)
	return &clone, nil
}

// DeleteExpired purges records past their TTL.
func (s *Store) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var removed int64
	for key, record := range s.records {
		if record.Expired(now) {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}

// InTransaction stages writes and applies them atomically. The store mutex
// is held for the whole transaction, so duplicate-key checks observe every
// earlier commit.
func (s *Store) InTransaction(_ context.Context, fn func(tx ports.TxRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stage := &txStage{store: s}
	if err := fn(stage); err != nil {
		return err
	}
	for _, order := range stage.orders {
		s.orders[order.ID] = order
	}
	for _, record := range stage.records {
		s.records[record.Key] = record
	}
	return nil
}

type txStage struct {
	store   *Store
	orders  []*domain.Order
	records []ports.IdempotencyRecord
}

// InsertOrder snapshots the order at call time, matching the SQL adapter
// where the row is materialized on insert.
func (t *txStage) InsertOrder(_ context.Context, order *domain.Order) error {
	t.orders = append(t.orders, cloneOrder(order))
	return nil
}

func (t *txStage) InsertIdempotencyRecord(_ context.Context, record ports.IdempotencyRecord) error {
	if existing, ok := t.store.records[record.Key]; ok && !existing.Expired(t.store.now()) {
		return ports.ErrDuplicateKey
	}
	record.Order = cloneOrder(record.Order)
	t.records = append(t.records, record)
	return nil
}

func (s *Store) page(filter ports.ListFilter, customerID string) *ports.Page {
	var matched []*domain.Order
	for _, order := range s.orders {
		if customerID != "" && order.CustomerID != customerID {
			continue
		}
		if filter.TenantID != "" && order.TenantID != filter.TenantID {
			continue
		}
		if filter.PaymentStatus != "" && order.PaymentStatus != filter.PaymentStatus {
			continue
		}
		if filter.OrderStatus != "" && order.OrderStatus != filter.OrderStatus {
			continue
		}
		if filter.ProductName != "" && !hasProduct(order, filter.ProductName) {
			continue
		}
		matched = append(matched, cloneOrder(order))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	limit := filter.Limit
	if limit <= 0 {
		limit = len(matched)
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}
	if offset >= len(matched) {
		return &ports.Page{Orders: nil, Total: total}
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return &ports.Page{Orders: matched[offset:end], Total: total}
}

func hasProduct(order *domain.Order, name string) bool {
	for _, item := range order.Items {
		if strings.EqualFold(item.ProductName, name) {
			return true
		}
	}
	return false
}

func cloneOrder(order *domain.Order) *domain.Order {
	if order == nil {
		return nil
	}
	clone := *order
	clone.Items = make([]domain.Item, len(order.Items))
	copy(clone.Items, order.Items)
	for i, item := range clone.Items {
		toppings := make([]domain.Topping, len(item.Toppings))
		copy(toppings, item.Toppings)
		clone.Items[i].Toppings = toppings
	}
	return &clone
}
