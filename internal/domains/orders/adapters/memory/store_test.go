package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quickbite/order-service/internal/domains/orders/domain"
	"github.com/quickbite/order-service/internal/domains/orders/ports"
)

func insertOrder(t *testing.T, store *Store, order *domain.Order) {
	t.Helper()
	require.NoError(t, store.InTransaction(context.Background(), func(tx ports.TxRepository) error {
		return tx.InsertOrder(context.Background(), order)
	}))
}

func TestUpdateStatus_OptimisticConflict(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	insertOrder(t, store, &domain.Order{ID: "ord-1", OrderStatus: domain.StatusPending})

	_, err := store.UpdateStatus(ctx, "ord-1", domain.StatusPending, domain.StatusVerified)
	require.NoError(t, err)

	// Stale expectation loses the compare-and-set.
	_, err = store.UpdateStatus(ctx, "ord-1", domain.StatusPending, domain.StatusCancelled)
	require.ErrorIs(t, err, ports.ErrStatusConflict)

	current, err := store.GetByID(ctx, "ord-1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusVerified, current.OrderStatus)
}

func TestDeleteExpired_PurgesOnlyStaleRecords(t *testing.T) {
	now := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	store := NewStore(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, store.InTransaction(ctx, func(tx ports.TxRepository) error {
		if err := tx.InsertIdempotencyRecord(ctx, ports.IdempotencyRecord{Key: "fresh", CreatedAt: now.Add(-30 * time.Minute)}); err != nil {
			return err
		}
		return tx.InsertIdempotencyRecord(ctx, ports.IdempotencyRecord{Key: "stale", CreatedAt: now.Add(-2 * time.Hour)})
	}))

	removed, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	fresh, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	require.NotNil(t, fresh)

	stale, err := store.Get(ctx, "stale")
	require.NoError(t, err)
	require.Nil(t, stale)
}

func TestInTransaction_DiscardsStagedWritesOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.InTransaction(ctx, func(tx ports.TxRepository) error {
		if err := tx.InsertOrder(ctx, &domain.Order{ID: "ord-1"}); err != nil {
			return err
		}
		return context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)

	_, err = store.GetByID(ctx, "ord-1")
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestInsertOrder_SnapshotsAtInsertTime(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	order := &domain.Order{ID: "ord-1", OrderStatus: domain.StatusPending}
	require.NoError(t, store.InTransaction(ctx, func(tx ports.TxRepository) error {
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		// Mutations after the insert must not reach the stored row.
		order.PaymentSessionID = "sess-late"
		return nil
	}))

	stored, err := store.GetByID(ctx, "ord-1")
	require.NoError(t, err)
	require.Empty(t, stored.PaymentSessionID)
}

func TestInsertIdempotencyRecord_DuplicateKey(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	write := func() error {
		return store.InTransaction(ctx, func(tx ports.TxRepository) error {
			return tx.InsertIdempotencyRecord(ctx, ports.IdempotencyRecord{Key: "k", CreatedAt: time.Now()})
		})
	}
	require.NoError(t, write())
	require.ErrorIs(t, write(), ports.ErrDuplicateKey)
}
