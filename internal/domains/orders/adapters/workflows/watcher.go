// Package workflows starts the durable payment verification for card orders.
package workflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/quickbite/order-service/internal/domains/orders/domain"
	"github.com/quickbite/order-service/internal/domains/orders/ports"
	paymentworkflows "github.com/quickbite/order-service/internal/durable/temporal/workflows/payments"
)

var (
	_ ports.PaymentWatcher = (*TemporalPaymentWatcher)(nil)
	_ ports.PaymentWatcher = (*InlinePaymentWatcher)(nil)
)

// TemporalPaymentWatcher starts the verification workflow on a Temporal
// cluster. The workflow ID is derived from the session, so watching the same
// session twice is a no-op.
type TemporalPaymentWatcher struct {
	client    client.Client
	taskQueue string
}

// NewTemporalPaymentWatcher wires a Temporal client into the watcher.
func NewTemporalPaymentWatcher(c client.Client) *TemporalPaymentWatcher {
	return &TemporalPaymentWatcher{client: c, taskQueue: paymentworkflows.PaymentVerificationTaskQueue}
}

// Watch starts the workflow and returns without waiting for the session to
// settle.
func (w *TemporalPaymentWatcher) Watch(ctx context.Context, sessionID, orderID, tenantID string) error {
	if w == nil || w.client == nil {
		return errors.New("temporal payment watcher not configured")
	}
	options := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("payment-verification-%s", sessionID),
		TaskQueue: w.taskQueue,
	}
	_, err := w.client.ExecuteWorkflow(
		ctx,
		options,
		paymentworkflows.PaymentVerificationWorkflow,
		paymentworkflows.PaymentVerificationWorkflowInput{
			SessionID: sessionID,
			OrderID:   orderID,
			TenantID:  tenantID,
			TraceID:   watcherTraceID(ctx),
		},
	)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			return nil
		}
		return err
	}
	return nil
}

// InlinePaymentWatcher checks the session once, synchronously, without
// durable orchestration. Used when no Temporal cluster is configured; the
// webhook remains the reliable path in that mode.
type InlinePaymentWatcher struct {
	gateway ports.PaymentGateway
	service ports.Service
	logger  *slog.Logger
}

// NewInlinePaymentWatcher wraps the gateway and service for synchronous checks.
func NewInlinePaymentWatcher(gateway ports.PaymentGateway, service ports.Service, logger *slog.Logger) *InlinePaymentWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &InlinePaymentWatcher{gateway: gateway, service: service, logger: logger}
}

// Watch performs one immediate verification and records the status only when
// the session already settled.
func (w *InlinePaymentWatcher) Watch(ctx context.Context, sessionID, orderID, tenantID string) error {
	if w == nil || w.gateway == nil || w.service == nil {
		return errors.New("inline payment watcher not configured")
	}
	session, err := w.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.PaymentStatus != domain.PaymentStatusPaid {
		w.logger.DebugContext(ctx, "session not settled yet, deferring to webhook",
			slog.String("session_id", sessionID),
			slog.String("order_id", orderID))
		return nil
	}
	_, err = w.service.RecordPayment(ctx, orderID, session.PaymentStatus)
	return err
}

func watcherTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() || !spanCtx.TraceID().IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
