package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	catalogmemory "github.com/quickbite/order-service/internal/domains/catalog/adapters/memory"
	catalogapp "github.com/quickbite/order-service/internal/domains/catalog/application"
	catalogdomain "github.com/quickbite/order-service/internal/domains/catalog/domain"
	"github.com/quickbite/order-service/internal/domains/orders/adapters/memory"
	types "github.com/quickbite/order-service/internal/domains/orders/application/types"
	"github.com/quickbite/order-service/internal/domains/orders/domain"
	"github.com/quickbite/order-service/internal/domains/orders/ports"
	"github.com/quickbite/order-service/internal/shared/authz"
	"github.com/quickbite/order-service/internal/shared/money"
)

type fakeGateway struct {
	mu       sync.Mutex
	sessions int
	fail     bool
	created  []ports.SessionOptions
	verified map[string]ports.VerifiedSession
}

func (g *fakeGateway) CreateSession(_ context.Context, opts ports.SessionOptions) (*ports.PaymentSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return nil, errors.New("gateway unreachable")
	}
	g.sessions++
	g.created = append(g.created, opts)
	id := fmt.Sprintf("sess-%d", g.sessions)
	return &ports.PaymentSession{ID: id, PaymentURL: "https://pay.example.com/" + id}, nil
}

func (g *fakeGateway) GetSession(_ context.Context, sessionID string) (*ports.VerifiedSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	session, ok := g.verified[sessionID]
	if !ok {
		return nil, errors.New("unknown session")
	}
	return &session, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.EventType
	fail   bool
}

func (p *fakePublisher) Publish(_ context.Context, eventType domain.EventType, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.events = append(p.events, eventType)
	return nil
}

func (p *fakePublisher) published() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.EventType(nil), p.events...)
}

type fakeWatcher struct {
	mu       sync.Mutex
	sessions []string
}

func (w *fakeWatcher) Watch(_ context.Context, sessionID, _, _ string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sessions = append(w.sessions, sessionID)
	return nil
}

type fixture struct {
	service   *Service
	store     *memory.Store
	catalog   *catalogmemory.Store
	gateway   *fakeGateway
	publisher *fakePublisher
	watcher   *fakeWatcher
	clock     *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)}
	store := memory.NewStore(memory.WithClock(clock.Now))
	catalogStore := catalogmemory.NewStore()
	gateway := &fakeGateway{verified: make(map[string]ports.VerifiedSession)}
	publisher := &fakePublisher{}
	watcher := &fakeWatcher{}

	ctx := context.Background()
	require.NoError(t, catalogStore.UpsertProduct(ctx, catalogdomain.Product{
		ProductID: "prod-1",
		TenantID:  "tenant-1",
		PriceConfiguration: map[catalogdomain.PriceType]catalogdomain.PriceConfiguration{
			catalogdomain.PriceTypeBase: {
				PriceType:        catalogdomain.PriceTypeBase,
				AvailableOptions: map[string]money.Amount{"margherita": 20000},
			},
		},
	}))
	require.NoError(t, catalogStore.UpsertTopping(ctx, catalogdomain.Topping{
		ToppingID: "top-1", Name: "olives", Price: 2000, TenantID: "tenant-1",
	}))

	service := NewService(
		store, store, store,
		catalogapp.NewResolver(catalogStore),
		gateway, publisher, watcher,
		WithClock(clock.Now),
	)
	return &fixture{
		service:   service,
		store:     store,
		catalog:   catalogStore,
		gateway:   gateway,
		publisher: publisher,
		watcher:   watcher,
		clock:     clock,
	}
}

func cashInput(key string) types.CreateOrderInput {
	return types.CreateOrderInput{
		IdempotencyKey: key,
		Caller:         types.Caller{ID: "cust-1", Role: authz.RoleCustomer},
		TenantID:       "tenant-1",
		Address:        "12 Baker Street",
		Phone:          "555-0100",
		PaymentMode:    domain.PaymentModeCash,
		Items: []types.OrderItemInput{{
			ProductID:   "prod-1",
			ProductName: "Pizza",
			Quantity:    2,
			Base:        types.RequestedBase{Name: "margherita"},
			Toppings:    []types.RequestedTopping{{ID: "top-1"}},
		}},
	}
}

func cardInput(key string) types.CreateOrderInput {
	input := cashInput(key)
	input.PaymentMode = domain.PaymentModeCard
	return input
}

func TestCreateOrder_CashHappyPath(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.CreateOrder(context.Background(), cashInput("key-1"))
	require.NoError(t, err)
	require.False(t, result.Replayed)
	require.Empty(t, result.PaymentURL)

	order := result.Order
	require.Equal(t, domain.StatusPending, order.OrderStatus)
	require.Equal(t, domain.PaymentStatusNoPaymentRequired, order.PaymentStatus)
	require.Equal(t, money.Amount(44000), order.Amounts.SubTotal)
	require.Equal(t, money.Amount(3080), order.Amounts.Tax)
	require.Equal(t, money.Amount(5000), order.Amounts.DeliveryCharge)
	require.Equal(t, money.Amount(52080), order.Amounts.GrandTotal)
	require.Equal(t, money.Amount(20000), order.Items[0].Base.Price)
	require.Equal(t, money.Amount(44000), order.Items[0].ItemTotal)

	require.Zero(t, f.gateway.sessions)
	require.Equal(t, []domain.EventType{domain.EventOrderCreate}, f.publisher.published())

	persisted, err := f.store.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, order.ID, persisted.ID)
}

func TestCreateOrder_CardCreatesSessionAndWatcher(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.CreateOrder(context.Background(), cardInput("key-1"))
	require.NoError(t, err)
	require.Equal(t, "https://pay.example.com/sess-1", result.PaymentURL)
	require.Equal(t, domain.PaymentStatusPending, result.Order.PaymentStatus)
	require.Equal(t, "sess-1", result.Order.PaymentSessionID)

	require.Len(t, f.gateway.created, 1)
	require.Equal(t, result.Order.ID, f.gateway.created[0].OrderID)
	require.Equal(t, money.Amount(52080), f.gateway.created[0].Amount)
	require.Equal(t, "inr", f.gateway.created[0].Currency)
	require.Equal(t, "key-1", f.gateway.created[0].IdempotencyKey)
	require.Equal(t, []string{"sess-1"}, f.watcher.sessions)
}

func TestCreateOrder_CardPersistsSessionID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.service.CreateOrder(ctx, cardInput("key-1"))
	require.NoError(t, err)

	persisted, err := f.store.GetByID(ctx, result.Order.ID)
	require.NoError(t, err)
	require.Equal(t, "sess-1", persisted.PaymentSessionID)

	record, err := f.store.Get(ctx, "key-1")
	require.NoError(t, err)
	require.Equal(t, "sess-1", record.Order.PaymentSessionID)
}

func TestCreateOrder_ManagerForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	input := cashInput("key-1")
	input.Caller = types.Caller{ID: "mgr-2", Role: authz.RoleManager, TenantID: "tenant-2"}
	_, err := f.service.CreateOrder(ctx, input)
	require.ErrorIs(t, err, authz.ErrForbidden)

	page, err := f.store.List(ctx, ports.ListFilter{})
	require.NoError(t, err)
	require.Zero(t, page.Total)

	admin := cashInput("key-2")
	admin.Caller = types.Caller{ID: "adm-1", Role: authz.RoleAdmin}
	_, err = f.service.CreateOrder(ctx, admin)
	require.NoError(t, err)
}

func TestCreateOrder_ReplaysOnSameKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.CreateOrder(ctx, cardInput("key-1"))
	require.NoError(t, err)

	second, err := f.service.CreateOrder(ctx, cardInput("key-1"))
	require.NoError(t, err)
	require.True(t, second.Replayed)
	require.Equal(t, first.Order.ID, second.Order.ID)
	require.Equal(t, first.PaymentURL, second.PaymentURL)

	require.Equal(t, 1, f.gateway.sessions)
	require.Equal(t, []domain.EventType{domain.EventOrderCreate}, f.publisher.published())
}

func TestCreateOrder_ExpiredKeyIsReusable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.CreateOrder(ctx, cashInput("key-1"))
	require.NoError(t, err)

	f.clock.Advance(ports.RecordTTL + time.Minute)

	second, err := f.service.CreateOrder(ctx, cashInput("key-1"))
	require.NoError(t, err)
	require.False(t, second.Replayed)
	require.NotEqual(t, first.Order.ID, second.Order.ID)
}

func TestCreateOrder_ConcurrentDuplicatesShareOneOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const callers = 8
	results := make([]*types.CreateOrderResult, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.service.CreateOrder(ctx, cardInput("shared-key"))
		}(i)
	}
	wg.Wait()
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
	}

	winner := results[0]
	for _, result := range results[1:] {
		require.Equal(t, winner.Order.ID, result.Order.ID)
		require.Equal(t, winner.PaymentURL, result.PaymentURL)
	}

	page, err := f.store.List(ctx, ports.ListFilter{})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
}

func TestCreateOrder_GatewayFailureLeavesNoState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gateway.fail = true

	_, err := f.service.CreateOrder(ctx, cardInput("key-1"))
	require.ErrorIs(t, err, ErrPaymentGateway)

	page, err := f.store.List(ctx, ports.ListFilter{})
	require.NoError(t, err)
	require.Zero(t, page.Total)
	require.Empty(t, f.publisher.published())

	// Same key succeeds once the gateway recovers.
	f.gateway.fail = false
	result, err := f.service.CreateOrder(ctx, cardInput("key-1"))
	require.NoError(t, err)
	require.False(t, result.Replayed)
}

func TestCreateOrder_UncachedProductRejected(t *testing.T) {
	f := newFixture(t)
	input := cashInput("key-1")
	input.Items[0].ProductID = "prod-unknown"

	_, err := f.service.CreateOrder(context.Background(), input)
	require.ErrorIs(t, err, catalogapp.ErrProductNotCached)
}

func TestCreateOrder_ValidationFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	missingKey := cashInput("")
	_, err := f.service.CreateOrder(ctx, missingKey)
	require.ErrorIs(t, err, types.ErrInvalidInput)

	noItems := cashInput("key-1")
	noItems.Items = nil
	_, err = f.service.CreateOrder(ctx, noItems)
	require.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestCreateOrder_PriceChangeAffectsOnlyNewOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.CreateOrder(ctx, cashInput("key-1"))
	require.NoError(t, err)

	require.NoError(t, f.catalog.UpsertProduct(ctx, catalogdomain.Product{
		ProductID: "prod-1",
		TenantID:  "tenant-1",
		PriceConfiguration: map[catalogdomain.PriceType]catalogdomain.PriceConfiguration{
			catalogdomain.PriceTypeBase: {
				PriceType:        catalogdomain.PriceTypeBase,
				AvailableOptions: map[string]money.Amount{"margherita": 30000},
			},
		},
	}))

	second, err := f.service.CreateOrder(ctx, cashInput("key-2"))
	require.NoError(t, err)
	require.Equal(t, money.Amount(64000), second.Order.Amounts.SubTotal)

	unchanged, err := f.store.GetByID(ctx, first.Order.ID)
	require.NoError(t, err)
	require.Equal(t, money.Amount(44000), unchanged.Amounts.SubTotal)
}

func TestUpdateOrderStatus_ManagerHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.service.CreateOrder(ctx, cashInput("key-1"))
	require.NoError(t, err)

	updated, err := f.service.UpdateOrderStatus(ctx, types.StatusUpdateInput{
		Caller:     types.Caller{ID: "mgr-1", Role: authz.RoleManager, TenantID: "tenant-1"},
		OrderID:    created.Order.ID,
		NextStatus: domain.StatusVerified,
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusVerified, updated.OrderStatus)
	require.Contains(t, f.publisher.published(), domain.EventOrderStatusUpdate)
}

func TestUpdateOrderStatus_InvalidTransitionLeavesStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.service.CreateOrder(ctx, cashInput("key-1"))
	require.NoError(t, err)

	_, err = f.service.UpdateOrderStatus(ctx, types.StatusUpdateInput{
		Caller:     types.Caller{ID: "mgr-1", Role: authz.RoleManager, TenantID: "tenant-1"},
		OrderID:    created.Order.ID,
		NextStatus: domain.StatusDelivered,
	})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	current, err := f.store.GetByID(ctx, created.Order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, current.OrderStatus)
}

func TestUpdateOrderStatus_ManagerTenantMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.service.CreateOrder(ctx, cashInput("key-1"))
	require.NoError(t, err)

	_, err = f.service.UpdateOrderStatus(ctx, types.StatusUpdateInput{
		Caller:     types.Caller{ID: "mgr-2", Role: authz.RoleManager, TenantID: "tenant-2"},
		OrderID:    created.Order.ID,
		NextStatus: domain.StatusVerified,
	})
	require.ErrorIs(t, err, authz.ErrForbidden)
}

func TestUpdateOrderStatus_AdminForcesButCannotResurrect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.service.CreateOrder(ctx, cashInput("key-1"))
	require.NoError(t, err)
	admin := types.Caller{ID: "adm-1", Role: authz.RoleAdmin}

	forced, err := f.service.UpdateOrderStatus(ctx, types.StatusUpdateInput{
		Caller: admin, OrderID: created.Order.ID, NextStatus: domain.StatusDelivered,
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusDelivered, forced.OrderStatus)

	_, err = f.service.UpdateOrderStatus(ctx, types.StatusUpdateInput{
		Caller: admin, OrderID: created.Order.ID, NextStatus: domain.StatusPending,
	})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	// Re-asserting the terminal state is a no-op.
	same, err := f.service.UpdateOrderStatus(ctx, types.StatusUpdateInput{
		Caller: admin, OrderID: created.Order.ID, NextStatus: domain.StatusDelivered,
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusDelivered, same.OrderStatus)
}

func TestUpdateOrderStatus_CustomerForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.service.CreateOrder(ctx, cashInput("key-1"))
	require.NoError(t, err)

	_, err = f.service.UpdateOrderStatus(ctx, types.StatusUpdateInput{
		Caller:     types.Caller{ID: "cust-1", Role: authz.RoleCustomer},
		OrderID:    created.Order.ID,
		NextStatus: domain.StatusCancelled,
	})
	require.ErrorIs(t, err, authz.ErrForbidden)
}

func TestUpdateOrderStatus_UnknownOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.UpdateOrderStatus(context.Background(), types.StatusUpdateInput{
		Caller:     types.Caller{ID: "adm-1", Role: authz.RoleAdmin},
		OrderID:    "missing",
		NextStatus: domain.StatusVerified,
	})
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestRecordPayment_IdempotentOnRepeatedStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.service.CreateOrder(ctx, cardInput("key-1"))
	require.NoError(t, err)

	updated, err := f.service.RecordPayment(ctx, created.Order.ID, domain.PaymentStatusPaid)
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStatusPaid, updated.PaymentStatus)

	eventsBefore := len(f.publisher.published())
	again, err := f.service.RecordPayment(ctx, created.Order.ID, domain.PaymentStatusPaid)
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStatusPaid, again.PaymentStatus)
	require.Len(t, f.publisher.published(), eventsBefore)
}

func TestHandlePaymentWebhook_RecordsVerifiedStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.service.CreateOrder(ctx, cardInput("key-1"))
	require.NoError(t, err)
	f.gateway.verified["sess-1"] = ports.VerifiedSession{
		ID:            "sess-1",
		OrderID:       created.Order.ID,
		TenantID:      "tenant-1",
		PaymentStatus: domain.PaymentStatusPaid,
	}

	updated, err := f.service.HandlePaymentWebhook(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStatusPaid, updated.PaymentStatus)
	require.Contains(t, f.publisher.published(), domain.EventOrderPaymentStatusUpdate)
}

func TestHandlePaymentWebhook_UnknownSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.HandlePaymentWebhook(context.Background(), "sess-missing")
	require.ErrorIs(t, err, ErrPaymentGateway)
}

func TestGetOrder_OwnershipAndTenantScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.service.CreateOrder(ctx, cashInput("key-1"))
	require.NoError(t, err)

	_, err = f.service.GetOrder(ctx, types.Caller{ID: "cust-1", Role: authz.RoleCustomer}, created.Order.ID)
	require.NoError(t, err)

	_, err = f.service.GetOrder(ctx, types.Caller{ID: "cust-2", Role: authz.RoleCustomer}, created.Order.ID)
	require.ErrorIs(t, err, authz.ErrForbidden)

	_, err = f.service.GetOrder(ctx, types.Caller{ID: "mgr-1", Role: authz.RoleManager, TenantID: "tenant-1"}, created.Order.ID)
	require.NoError(t, err)

	_, err = f.service.GetOrder(ctx, types.Caller{ID: "mgr-2", Role: authz.RoleManager, TenantID: "tenant-2"}, created.Order.ID)
	require.ErrorIs(t, err, authz.ErrForbidden)
}

func TestListOrders_ManagerPinnedToOwnTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.service.CreateOrder(ctx, cashInput("key-1"))
	require.NoError(t, err)

	page, err := f.service.ListOrders(ctx, types.ListOrdersInput{
		Caller:   types.Caller{ID: "mgr-1", Role: authz.RoleManager, TenantID: "tenant-1"},
		TenantID: "tenant-other",
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)

	other, err := f.service.ListOrders(ctx, types.ListOrdersInput{
		Caller: types.Caller{ID: "mgr-9", Role: authz.RoleManager, TenantID: "tenant-9"},
	})
	require.NoError(t, err)
	require.Zero(t, other.Total)
}

func TestListOrders_CustomerForbidden(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ListOrders(context.Background(), types.ListOrdersInput{
		Caller: types.Caller{ID: "cust-1", Role: authz.RoleCustomer},
	})
	require.ErrorIs(t, err, authz.ErrForbidden)
}

func TestListMyOrders_FiltersByCaller(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.service.CreateOrder(ctx, cashInput("key-1"))
	require.NoError(t, err)

	other := cashInput("key-2")
	other.Caller.ID = "cust-2"
	_, err = f.service.CreateOrder(ctx, other)
	require.NoError(t, err)

	mine, err := f.service.ListMyOrders(ctx, types.ListOrdersInput{
		Caller: types.Caller{ID: "cust-1", Role: authz.RoleCustomer},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, mine.Total)
	require.Equal(t, "cust-1", mine.Orders[0].CustomerID)
}

func TestCreateOrder_PublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.publisher.fail = true

	result, err := f.service.CreateOrder(context.Background(), cashInput("key-1"))
	require.NoError(t, err)
	require.NotNil(t, result.Order)
}
