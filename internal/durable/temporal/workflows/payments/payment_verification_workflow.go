package payments

import (
	"go.temporal.io/sdk/workflow"

	"github.com/quickbite/order-service/internal/domains/orders/domain"
	"github.com/quickbite/order-service/internal/durable/temporal/sequences"
	paymentactivities "github.com/quickbite/order-service/internal/platform/temporal/activities/payments"
)

const (
	// PaymentVerificationWorkflowName is the public identifier for registering the workflow.
	PaymentVerificationWorkflowName = "payments.workflows.Verification"
	// PaymentVerificationTaskQueue is the queue consumed by the worker processing payment workflows.
	PaymentVerificationTaskQueue = "PAYMENT_VERIFICATION"
)

// PaymentVerificationWorkflowInput captures the session a card order is waiting on.
type PaymentVerificationWorkflowInput struct {
	SessionID string
	OrderID   string
	TenantID  string
	TraceID   string
}

// PaymentVerificationWorkflow follows a checkout session to a settled state
// and records it on the order.
func PaymentVerificationWorkflow(ctx workflow.Context, input PaymentVerificationWorkflowInput) (domain.PaymentStatus, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("PaymentVerificationWorkflow started",
		withTraceID(input.TraceID, "sessionId", input.SessionID, "orderId", input.OrderID)...)
	status, err := sequences.RunPaymentVerificationSequence(ctx, paymentactivities.VerifySessionInput{
		SessionID: input.SessionID,
		OrderID:   input.OrderID,
		TenantID:  input.TenantID,
	})
	if err != nil {
		logger.Error("PaymentVerificationWorkflow failed",
			withTraceID(input.TraceID, "sessionId", input.SessionID, "error", err)...)
		return "", err
	}
	logger.Info("PaymentVerificationWorkflow completed",
		withTraceID(input.TraceID, "orderId", input.OrderID, "paymentStatus", string(status))...)
	return status, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
