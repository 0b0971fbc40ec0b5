package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/quickbite/order-service/internal/domains/orders/domain"
	paymentactivities "github.com/quickbite/order-service/internal/platform/temporal/activities/payments"
)

const (
	pollInterval = 15 * time.Second
	maxPolls     = 20
)

// RunPaymentVerificationSequence polls the payment gateway until the checkout
// session settles, then records the outcome on the order. Sessions still
// unpaid after the polling window are recorded as UNPAID.
func RunPaymentVerificationSequence(ctx workflow.Context, input paymentactivities.VerifySessionInput) (domain.PaymentStatus, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("payment verification sequence started", "sessionId", input.SessionID, "orderId", input.OrderID)
	options := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, options)

	status := domain.PaymentStatusUnpaid
	for attempt := 0; attempt < maxPolls; attempt++ {
		var result paymentactivities.VerifySessionResult
		err := workflow.ExecuteActivity(ctx, paymentactivities.VerifySessionActivityName, input).Get(ctx, &result)
		if err != nil {
			logger.Error("payment verification sequence failed", "sessionId", input.SessionID, "error", err)
			return "", err
		}
		if result.Paid {
			status = result.PaymentStatus
			break
		}
		if err := workflow.Sleep(ctx, pollInterval); err != nil {
			return "", err
		}
	}

	record := paymentactivities.RecordPaymentStatusInput{OrderID: input.OrderID, PaymentStatus: status}
	if err := workflow.ExecuteActivity(ctx, paymentactivities.RecordPaymentStatusActivityName, record).Get(ctx, nil); err != nil {
		logger.Error("payment verification sequence failed to record status",
			"orderId", input.OrderID, "error", err)
		return "", err
	}
	logger.Info("payment verification sequence completed",
		"orderId", input.OrderID, "paymentStatus", string(status))
	return status, nil
}
