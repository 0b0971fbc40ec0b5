//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/quickbite/order-service/internal/domains/orders/domain"
	"github.com/quickbite/order-service/internal/domains/orders/ports"
	"github.com/quickbite/order-service/internal/platform/migrations"
)

func setupOrdersPostgresContainer(t *testing.T) (*gorm.DB, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("orders_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = migrations.Run(db)
	require.NoError(t, err)

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		pgContainer.Terminate(ctx)
	}

	return db, cleanup
}

func sampleOrder(id string) *domain.Order {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Order{
		ID:            id,
		CustomerID:    "cust-1",
		TenantID:      "tenant-1",
		Address:       "12 Baker Street",
		Phone:         "555-0100",
		PaymentMode:   domain.PaymentModeCash,
		PaymentStatus: domain.PaymentStatusNoPaymentRequired,
		OrderStatus:   domain.StatusPending,
		Items: []domain.Item{{
			ProductID:   "prod-1",
			ProductName: "Pizza",
			Base:        domain.Base{Name: "margherita", Price: 20000},
			Quantity:    2,
			Toppings:    []domain.Topping{{ID: "top-1", Name: "olives", Price: 2000}},
			ItemTotal:   44000,
		}},
		Amounts: domain.Amount{
			SubTotal:       44000,
			Tax:            3080,
			DeliveryCharge: 5000,
			GrandTotal:     52080,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestTxManager_InsertAndGetByID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupOrdersPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)
	tx := NewTxManager(db)
	ctx := context.Background()

	order := sampleOrder("ord-1")
	err := tx.InTransaction(ctx, func(txRepo ports.TxRepository) error {
		if err := txRepo.InsertOrder(ctx, order); err != nil {
			return err
		}
		return txRepo.InsertIdempotencyRecord(ctx, ports.IdempotencyRecord{
			Key:       "key-1",
			Order:     order,
			CreatedAt: time.Now(),
		})
	})
	require.NoError(t, err)

	fetched, err := repo.GetByID(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, fetched.ID)
	assert.Equal(t, order.Amounts.GrandTotal, fetched.Amounts.GrandTotal)
	assert.Equal(t, order.Items[0].Toppings[0].Name, fetched.Items[0].Toppings[0].Name)
}

func TestTxManager_DuplicateKeyRollsBackOrder(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupOrdersPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)
	tx := NewTxManager(db)
	ctx := context.Background()

	insert := func(orderID string) error {
		order := sampleOrder(orderID)
		return tx.InTransaction(ctx, func(txRepo ports.TxRepository) error {
			if err := txRepo.InsertOrder(ctx, order); err != nil {
				return err
			}
			return txRepo.InsertIdempotencyRecord(ctx, ports.IdempotencyRecord{
				Key:       "shared-key",
				Order:     order,
				CreatedAt: time.Now(),
			})
		})
	}

	require.NoError(t, insert("ord-1"))
	assert.ErrorIs(t, insert("ord-2"), ports.ErrDuplicateKey)

	_, err := repo.GetByID(ctx, "ord-2")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestIdempotencyStore_GetAndPurge(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupOrdersPostgresContainer(t)
	defer cleanup()

	store := NewIdempotencyStore(db)
	tx := NewTxManager(db)
	ctx := context.Background()

	order := sampleOrder("ord-1")
	require.NoError(t, tx.InTransaction(ctx, func(txRepo ports.TxRepository) error {
		if err := txRepo.InsertIdempotencyRecord(ctx, ports.IdempotencyRecord{
			Key: "fresh", Order: order, PaymentURL: "https://pay.example.com/s1", CreatedAt: time.Now(),
		}); err != nil {
			return err
		}
		return txRepo.InsertIdempotencyRecord(ctx, ports.IdempotencyRecord{
			Key: "stale", Order: order, CreatedAt: time.Now().Add(-2 * time.Hour),
		})
	}))

	fresh, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	require.NotNil(t, fresh)
	assert.Equal(t, "https://pay.example.com/s1", fresh.PaymentURL)
	assert.Equal(t, order.ID, fresh.Order.ID)

	// Expired records read as misses before the purge runs.
	stale, err := store.Get(ctx, "stale")
	require.NoError(t, err)
	assert.Nil(t, stale)

	removed, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
}

func TestRepository_UpdateStatusOptimisticCheck(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupOrdersPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)
	tx := NewTxManager(db)
	ctx := context.Background()

	order := sampleOrder("ord-1")
	require.NoError(t, tx.InTransaction(ctx, func(txRepo ports.TxRepository) error {
		return txRepo.InsertOrder(ctx, order)
	}))

	updated, err := repo.UpdateStatus(ctx, "ord-1", domain.StatusPending, domain.StatusVerified)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusVerified, updated.OrderStatus)

	_, err = repo.UpdateStatus(ctx, "ord-1", domain.StatusPending, domain.StatusCancelled)
	assert.ErrorIs(t, err, ports.ErrStatusConflict)
}

func TestRepository_ListFilters(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupOrdersPostgresContainer(t)
	defer cleanup()

	repo := NewRepository(db)
	tx := NewTxManager(db)
	ctx := context.Background()

	first := sampleOrder("ord-1")
	second := sampleOrder("ord-2")
	second.TenantID = "tenant-2"
	second.Items[0].ProductName = "Garlic Bread"
	require.NoError(t, tx.InTransaction(ctx, func(txRepo ports.TxRepository) error {
		if err := txRepo.InsertOrder(ctx, first); err != nil {
			return err
		}
		return txRepo.InsertOrder(ctx, second)
	}))

	byTenant, err := repo.List(ctx, ports.ListFilter{TenantID: "tenant-1"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, byTenant.Total)

	byProduct, err := repo.List(ctx, ports.ListFilter{ProductName: "Garlic Bread"})
	require.NoError(t, err)
	require.Len(t, byProduct.Orders, 1)
	assert.Equal(t, "ord-2", byProduct.Orders[0].ID)

	byCustomer, err := repo.ListByCustomer(ctx, "cust-1", ports.ListFilter{Limit: 1, Page: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 2, byCustomer.Total)
	assert.Len(t, byCustomer.Orders, 1)
}
