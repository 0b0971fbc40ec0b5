// Package application orchestrates the order use cases: idempotent creation,
// role-gated status transitions, payment recording and queries.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	catalog "github.com/quickbite/order-service/internal/domains/catalog/application"
	types "github.com/quickbite/order-service/internal/domains/orders/application/types"
	"github.com/quickbite/order-service/internal/domains/orders/domain"
	"github.com/quickbite/order-service/internal/domains/orders/ports"
	"github.com/quickbite/order-service/internal/shared/authz"
)

const (
	defaultCurrency = "inr"

	// createTxTimeout bounds the creation transaction including the in-tx
	// gateway call.
	createTxTimeout = 10 * time.Second
)

var _ ports.Service = (*Service)(nil)

// Service implements the order use cases.
type Service struct {
	repo      ports.Repository
	tx        ports.TransactionManager
	ledger    ports.IdempotencyStore
	resolver  ports.PriceResolver
	gateway   ports.PaymentGateway
	publisher ports.EventPublisher
	watcher   ports.PaymentWatcher
	currency  string
	logger    *slog.Logger
	now       func() time.Time
}

// Option customizes the service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithCurrency sets the currency passed to the payment gateway.
func WithCurrency(currency string) Option {
	return func(s *Service) {
		if currency != "" {
			s.currency = currency
		}
	}
}

// NewService wires the order service with its driven ports.
func NewService(
	repo ports.Repository,
	tx ports.TransactionManager,
	ledger ports.IdempotencyStore,
	resolver ports.PriceResolver,
	gateway ports.PaymentGateway,
	publisher ports.EventPublisher,
	watcher ports.PaymentWatcher,
	opts ...Option,
) *Service {
	s := &Service{
		repo:      repo,
		tx:        tx,
		ledger:    ledger,
		resolver:  resolver,
		gateway:   gateway,
		publisher: publisher,
		watcher:   watcher,
		currency:  defaultCurrency,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder materializes at most one order per idempotency key. The card
// payment-session call, the order insert and the ledger insert share one
// transaction; the lifecycle event is published after commit.
func (s *Service) CreateOrder(ctx context.Context, input types.CreateOrderInput) (*types.CreateOrderResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := authz.Decide(input.Caller.Role, input.Caller.TenantID, authz.ActionOrderCreate, input.TenantID); err != nil {
		return nil, err
	}

	if replay, err := s.replay(ctx, input.IdempotencyKey); err != nil || replay != nil {
		return replay, err
	}

	priced, err := s.resolver.Price(ctx, input.TenantID, toRequestedItems(input.Items))
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	order := &domain.Order{
		ID:            uuid.NewString(),
		CustomerID:    input.Caller.ID,
		TenantID:      input.TenantID,
		Address:       input.Address,
		Phone:         input.Phone,
		Comment:       input.Comment,
		CouponCode:    input.CouponCode,
		PaymentMode:   input.PaymentMode,
		PaymentStatus: domain.InitialPaymentStatus(input.PaymentMode),
		OrderStatus:   domain.StatusPending,
		Items:         toDomainItems(priced),
		Amounts:       CalculateAmounts(priced, input.Discount),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, createTxTimeout)
	defer cancel()
	var session *ports.PaymentSession
	txErr := s.tx.InTransaction(txCtx, func(tx ports.TxRepository) error {
		// The card session is created before the insert so the stored order
		// row carries its session id.
		if input.PaymentMode == domain.PaymentModeCard {
			if s.gateway == nil {
				return fmt.Errorf("%w: no gateway configured", ErrPaymentGateway)
			}
			created, err := s.gateway.CreateSession(txCtx, ports.SessionOptions{
				OrderID:        order.ID,
				TenantID:       order.TenantID,
				CustomerEmail:  input.Caller.Email,
				Amount:         order.Amounts.GrandTotal,
				Currency:       s.currency,
				IdempotencyKey: input.IdempotencyKey,
			})
			if err != nil {
				return fmt.Errorf("%w: create session: %w", ErrPaymentGateway, err)
			}
			session = created
			order.PaymentSessionID = created.ID
		}
		if err := tx.InsertOrder(txCtx, order); err != nil {
			return err
		}
		return tx.InsertIdempotencyRecord(txCtx, ports.IdempotencyRecord{
			Key:        input.IdempotencyKey,
			Order:      order,
			PaymentURL: paymentURL(session),
			CreatedAt:  now,
		})
	})
	if txErr != nil {
		if errors.Is(txErr, ports.ErrDuplicateKey) {
			return s.replayAfterRace(ctx, input.IdempotencyKey, session)
		}
		return nil, txErr
	}

	s.publish(ctx, domain.EventOrderCreate, order)

	if session != nil && s.watcher != nil {
		if err := s.watcher.Watch(ctx, session.ID, order.ID, order.TenantID); err != nil {
			s.logger.ErrorContext(ctx, "payment watcher not started",
				slog.String("order_id", order.ID),
				slog.String("session_id", session.ID),
				slog.String("error", err.Error()))
		}
	}

	return &types.CreateOrderResult{Order: order, PaymentURL: paymentURL(session)}, nil
}

// replay returns the prior result for key, or nil on a miss.
func (s *Service) replay(ctx context.Context, key string) (*types.CreateOrderResult, error) {
	record, err := s.ledger.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	if record == nil {
		return nil, nil
	}
	return &types.CreateOrderResult{Order: record.Order, PaymentURL: record.PaymentURL, Replayed: true}, nil
}

// replayAfterRace resolves a lost duplicate-key race by replaying the
// winner's record. A session created by the losing transaction is orphaned
// on the gateway side and logged for manual reconciliation.
func (s *Service) replayAfterRace(ctx context.Context, key string, session *ports.PaymentSession) (*types.CreateOrderResult, error) {
	if session != nil {
		s.logger.WarnContext(ctx, "payment session orphaned by idempotency race",
			slog.String("session_id", session.ID),
			slog.String("idempotency_key", key))
	}
	replay, err := s.replay(ctx, key)
	if err != nil {
		return nil, err
	}
	if replay == nil {
		return nil, fmt.Errorf("idempotency record vanished for key %q", key)
	}
	return replay, nil
}

// UpdateOrderStatus applies a role-gated lifecycle transition with an
// optimistic check against concurrent updates.
func (s *Service) UpdateOrderStatus(ctx context.Context, input types.StatusUpdateInput) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(input.Caller.Role, input.Caller.TenantID, authz.ActionOrderUpdateStatus, order.TenantID); err != nil {
		return nil, err
	}
	privileged := input.Caller.Role == authz.RoleAdmin
	if err := domain.ValidateTransition(order.OrderStatus, input.NextStatus, privileged); err != nil {
		return nil, err
	}
	if order.OrderStatus == input.NextStatus {
		return order, nil
	}
	updated, err := s.repo.UpdateStatus(ctx, order.ID, order.OrderStatus, input.NextStatus)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.EventOrderStatusUpdate, updated)
	return updated, nil
}

// GetOrder loads one order, enforcing ownership for customers and tenant
// scope for managers.
func (s *Service) GetOrder(ctx context.Context, caller types.Caller, orderID string) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(caller.Role, caller.TenantID, authz.ActionOrderRead, order.TenantID); err != nil {
		return nil, err
	}
	if caller.Role == authz.RoleCustomer && order.CustomerID != caller.ID {
		return nil, fmt.Errorf("%w: order belongs to another customer", authz.ErrForbidden)
	}
	return order, nil
}

// ListOrders pages through orders for back-office callers. Managers are
// pinned to their own tenant regardless of the requested filter.
func (s *Service) ListOrders(ctx context.Context, input types.ListOrdersInput) (*ports.Page, error) {
	tenantID := input.TenantID
	if input.Caller.Role == authz.RoleManager {
		tenantID = input.Caller.TenantID
	}
	if err := authz.Decide(input.Caller.Role, input.Caller.TenantID, authz.ActionOrderList, tenantID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, toListFilter(input, tenantID))
}

// ListMyOrders pages through the caller's own orders.
func (s *Service) ListMyOrders(ctx context.Context, input types.ListOrdersInput) (*ports.Page, error) {
	return s.repo.ListByCustomer(ctx, input.Caller.ID, toListFilter(input, ""))
}

// RecordPayment updates only paymentStatus. Re-delivering the same status is
// a no-op, which makes webhook retries safe.
func (s *Service) RecordPayment(ctx context.Context, orderID string, status domain.PaymentStatus) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == status {
		return order, nil
	}
	updated, err := s.repo.UpdatePaymentStatus(ctx, orderID, status)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.EventOrderPaymentStatusUpdate, updated)
	return updated, nil
}

// HandlePaymentWebhook verifies the session with the gateway and records the
// resulting payment status.
func (s *Service) HandlePaymentWebhook(ctx context.Context, sessionID string) (*domain.Order, error) {
	if s.gateway == nil {
		return nil, fmt.Errorf("%w: no gateway configured", ErrPaymentGateway)
	}
	verified, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: verify session: %w", ErrPaymentGateway, err)
	}
	return s.RecordPayment(ctx, verified.OrderID, verified.PaymentStatus)
}

// publish emits a lifecycle event. Failures are logged, never surfaced: the
// local state is already committed.
func (s *Service) publish(ctx context.Context, eventType domain.EventType, order *domain.Order) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, order); err != nil {
		s.logger.ErrorContext(ctx, "event publish failed",
			slog.String("event_type", string(eventType)),
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()))
	}
}

func paymentURL(session *ports.PaymentSession) string {
	if session == nil {
		return ""
	}
	return session.PaymentURL
}

func toRequestedItems(items []types.OrderItemInput) []catalog.RequestedItem {
	requested := make([]catalog.RequestedItem, 0, len(items))
	for _, item := range items {
		toppingIDs := make([]string, 0, len(item.Toppings))
		for _, topping := range item.Toppings {
			toppingIDs = append(toppingIDs, topping.ID)
		}
		requested = append(requested, catalog.RequestedItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			BaseName:    item.Base.Name,
			Quantity:    item.Quantity,
			ToppingIDs:  toppingIDs,
		})
	}
	return requested
}

func toDomainItems(priced []catalog.PricedItem) []domain.Item {
	items := make([]domain.Item, 0, len(priced))
	for _, p := range priced {
		toppings := make([]domain.Topping, 0, len(p.Toppings))
		for _, topping := range p.Toppings {
			toppings = append(toppings, domain.Topping{ID: topping.ID, Name: topping.Name, Price: topping.Price})
		}
		items = append(items, domain.Item{
			ProductID:   p.ProductID,
			ProductName: p.ProductName,
			Base:        domain.Base{Name: p.BaseName, Price: p.BasePrice},
			Quantity:    p.Quantity,
			Toppings:    toppings,
			ItemTotal:   p.ItemTotal,
		})
	}
	return items
}

func toListFilter(input types.ListOrdersInput, tenantID string) ports.ListFilter {
	input.Normalize()
	return ports.ListFilter{
		TenantID:      tenantID,
		PaymentStatus: input.PaymentStatus,
		OrderStatus:   input.OrderStatus,
		ProductName:   input.ProductName,
		Page:          input.Page,
		Limit:         input.Limit,
	}
}
