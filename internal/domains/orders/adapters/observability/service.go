// Package observability decorates the order service with tracing, logging
// and metrics.
package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	types "github.com/quickbite/order-service/internal/domains/orders/application/types"
	"github.com/quickbite/order-service/internal/domains/orders/domain"
	"github.com/quickbite/order-service/internal/domains/orders/ports"
)

const tracerName = "github.com/quickbite/order-service/internal/domains/orders/adapters/observability/service"

var _ ports.Service = (*Service)(nil)

// Service decorates an order application port with instrumentation.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer injects a tracer implementation.
func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

// WithMeter injects the meter used to create service metrics instruments.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wires a decorator around the core service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

// CreateOrder instruments the creation flow.
func (s *Service) CreateOrder(ctx context.Context, input types.CreateOrderInput) (*types.CreateOrderResult, error) {
	ctx, span := s.startSpan(ctx, "Service.CreateOrder",
		attribute.String("order.tenant_id", input.TenantID),
		attribute.String("order.payment_mode", string(input.PaymentMode)),
		attribute.Int("order.item_count", len(input.Items)),
	)
	defer span.End()

	s.logInfo(ctx, "creating order",
		slog.String("tenant_id", input.TenantID),
		slog.String("payment_mode", string(input.PaymentMode)))
	result, err := s.inner.CreateOrder(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "order creation failed", slog.String("tenant_id", input.TenantID))
	}
	span.SetAttributes(attribute.Bool("order.replayed", result.Replayed))
	if result.Replayed {
		s.metrics.recordReplayed(ctx)
		s.logInfo(ctx, "order creation replayed", slog.String("order_id", result.Order.ID))
		return result, nil
	}
	s.metrics.recordCreated(ctx, result.Order.PaymentMode)
	s.logInfo(ctx, "order created",
		slog.String("order_id", result.Order.ID),
		slog.Int64("grand_total", int64(result.Order.Amounts.GrandTotal)))
	return result, nil
}

// UpdateOrderStatus instruments lifecycle transitions.
func (s *Service) UpdateOrderStatus(ctx context.Context, input types.StatusUpdateInput) (*domain.Order, error) {
	ctx, span := s.startSpan(ctx, "Service.UpdateOrderStatus",
		attribute.String("order.id", input.OrderID),
		attribute.String("order.next_status", string(input.NextStatus)),
	)
	defer span.End()

	s.logInfo(ctx, "updating order status",
		slog.String("order_id", input.OrderID),
		slog.String("next_status", string(input.NextStatus)))
	order, err := s.inner.UpdateOrderStatus(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "status update failed", slog.String("order_id", input.OrderID))
	}
	s.metrics.recordStatusChanged(ctx, order.OrderStatus)
	s.logInfo(ctx, "order status updated",
		slog.String("order_id", order.ID),
		slog.String("status", string(order.OrderStatus)))
	return order, nil
}

// GetOrder instruments single-order reads.
func (s *Service) GetOrder(ctx context.Context, caller types.Caller, orderID string) (*domain.Order, error) {
	ctx, span := s.startSpan(ctx, "Service.GetOrder", attribute.String("order.id", orderID))
	defer span.End()

	order, err := s.inner.GetOrder(ctx, caller, orderID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "order lookup failed", slog.String("order_id", orderID))
	}
	return order, nil
}

// ListOrders instruments back-office listings.
func (s *Service) ListOrders(ctx context.Context, input types.ListOrdersInput) (*ports.Page, error) {
	ctx, span := s.startSpan(ctx, "Service.ListOrders", attribute.String("order.tenant_id", input.TenantID))
	defer span.End()

	page, err := s.inner.ListOrders(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "order listing failed")
	}
	span.SetAttributes(attribute.Int("order.result.count", len(page.Orders)))
	return page, nil
}

// ListMyOrders instruments customer listings.
func (s *Service) ListMyOrders(ctx context.Context, input types.ListOrdersInput) (*ports.Page, error) {
	ctx, span := s.startSpan(ctx, "Service.ListMyOrders")
	defer span.End()

	page, err := s.inner.ListMyOrders(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "own-order listing failed")
	}
	span.SetAttributes(attribute.Int("order.result.count", len(page.Orders)))
	return page, nil
}

// RecordPayment instruments payment recording.
func (s *Service) RecordPayment(ctx context.Context, orderID string, status domain.PaymentStatus) (*domain.Order, error) {
	ctx, span := s.startSpan(ctx, "Service.RecordPayment",
		attribute.String("order.id", orderID),
		attribute.String("order.payment_status", string(status)),
	)
	defer span.End()

	order, err := s.inner.RecordPayment(ctx, orderID, status)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "payment recording failed", slog.String("order_id", orderID))
	}
	s.metrics.recordPayment(ctx, order.PaymentStatus)
	s.logInfo(ctx, "payment status recorded",
		slog.String("order_id", order.ID),
		slog.String("payment_status", string(order.PaymentStatus)))
	return order, nil
}

// HandlePaymentWebhook instruments webhook processing.
func (s *Service) HandlePaymentWebhook(ctx context.Context, sessionID string) (*domain.Order, error) {
	ctx, span := s.startSpan(ctx, "Service.HandlePaymentWebhook", attribute.String("payment.session_id", sessionID))
	defer span.End()

	order, err := s.inner.HandlePaymentWebhook(ctx, sessionID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "webhook handling failed", slog.String("session_id", sessionID))
	}
	return order, nil
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := s.tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type serviceMetrics struct {
	ordersCreated  metric.Int64Counter
	ordersReplayed metric.Int64Counter
	statusChanges  metric.Int64Counter
	payments       metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	ordersCreated, _ := m.Int64Counter("orders.service.created", metric.WithDescription("Number of orders created"))
	ordersReplayed, _ := m.Int64Counter("orders.service.replayed", metric.WithDescription("Number of idempotent creation replays"))
	statusChanges, _ := m.Int64Counter("orders.service.status_changes", metric.WithDescription("Number of order status transitions"))
	payments, _ := m.Int64Counter("orders.service.payments_recorded", metric.WithDescription("Number of payment status updates"))
	return serviceMetrics{
		ordersCreated:  ordersCreated,
		ordersReplayed: ordersReplayed,
		statusChanges:  statusChanges,
		payments:       payments,
	}
}

func (m serviceMetrics) recordCreated(ctx context.Context, mode domain.PaymentMode) {
	addCounter(ctx, m.ordersCreated, 1, attribute.String("order.payment_mode", string(mode)))
}

func (m serviceMetrics) recordReplayed(ctx context.Context) {
	addCounter(ctx, m.ordersReplayed, 1)
}

func (m serviceMetrics) recordStatusChanged(ctx context.Context, status domain.Status) {
	addCounter(ctx, m.statusChanges, 1, attribute.String("order.status", string(status)))
}

func (m serviceMetrics) recordPayment(ctx context.Context, status domain.PaymentStatus) {
	addCounter(ctx, m.payments, 1, attribute.String("order.payment_status", string(status)))
}

func addCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}
