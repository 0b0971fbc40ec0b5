package payments

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"

	"github.com/quickbite/order-service/internal/domains/orders/domain"
	"github.com/quickbite/order-service/internal/domains/orders/ports"
)

const (
	// VerifySessionActivityName asks the payment gateway for the current session state.
	VerifySessionActivityName = "payments.activities.VerifySession"
	// RecordPaymentStatusActivityName stores a verified payment status on the order.
	RecordPaymentStatusActivityName = "payments.activities.RecordPaymentStatus"
)

// VerifySessionInput identifies the checkout session to inspect.
type VerifySessionInput struct {
	SessionID string
	OrderID   string
	TenantID  string
}

// VerifySessionResult is the gateway's view of the session.
type VerifySessionResult struct {
	PaymentStatus domain.PaymentStatus
	Paid          bool
}

// RecordPaymentStatusInput carries the status to persist.
type RecordPaymentStatusInput struct {
	OrderID       string
	PaymentStatus domain.PaymentStatus
}

// Activities groups activities that verify checkout payments.
type Activities struct {
	gateway ports.PaymentGateway
	service ports.Service
}

// NewActivities wires the payment collaborators into the Temporal activities bundle.
func NewActivities(gateway ports.PaymentGateway, service ports.Service) *Activities {
	return &Activities{gateway: gateway, service: service}
}

// VerifySession fetches the checkout session and reports whether it settled.
func (a *Activities) VerifySession(ctx context.Context, input VerifySessionInput) (*VerifySessionResult, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.gateway == nil {
		logger.Error("verify session activity not initialized", "sessionId", input.SessionID)
		return nil, errors.New("verify session activity not initialized")
	}
	logger.Info("VerifySession activity started", "sessionId", input.SessionID, "orderId", input.OrderID)
	session, err := a.gateway.GetSession(ctx, input.SessionID)
	if err != nil {
		logger.Error("VerifySession activity failed", "sessionId", input.SessionID, "error", err)
		return nil, err
	}
	result := &VerifySessionResult{
		PaymentStatus: session.PaymentStatus,
		Paid:          session.PaymentStatus == domain.PaymentStatusPaid,
	}
	logger.Info("VerifySession activity completed",
		"sessionId", input.SessionID, "paymentStatus", string(result.PaymentStatus))
	return result, nil
}

// RecordPaymentStatus writes the verified status onto the order and emits the
// payment-status event. The underlying service call is a no-op when the order
// already carries the status, so activity retries are safe.
func (a *Activities) RecordPaymentStatus(ctx context.Context, input RecordPaymentStatusInput) error {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		logger.Error("record payment activity not initialized", "orderId", input.OrderID)
		return errors.New("record payment activity not initialized")
	}
	logger.Info("RecordPaymentStatus activity started",
		"orderId", input.OrderID, "paymentStatus", string(input.PaymentStatus))
	if _, err := a.service.RecordPayment(ctx, input.OrderID, input.PaymentStatus); err != nil {
		logger.Error("RecordPaymentStatus activity failed", "orderId", input.OrderID, "error", err)
		return err
	}
	logger.Info("RecordPaymentStatus activity completed", "orderId", input.OrderID)
	return nil
}
