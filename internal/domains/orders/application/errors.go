package application

import "errors"

// ErrPaymentGateway wraps failures talking to the external payment provider.
// The local transaction is aborted; the client may retry with the same
// idempotency key.
var ErrPaymentGateway = errors.New("payment gateway failure")
