package ports

import (
	"context"
	"errors"
	"time"

	"github.com/quickbite/order-service/internal/domains/orders/domain"
)

// ErrDuplicateKey signals an idempotency record already exists for the key.
var ErrDuplicateKey = errors.New("idempotency key already recorded")

// RecordTTL bounds how long a key replays the original response. After
// expiry the key may be reused.
const RecordTTL = time.Hour

// IdempotencyRecord snapshots the outcome of one creation request.
type IdempotencyRecord struct {
	Key        string
	Order      *domain.Order
	PaymentURL string
	CreatedAt  time.Time
}

// Expired reports whether the record is past its TTL at the given instant.
func (r IdempotencyRecord) Expired(now time.Time) bool {
	return now.Sub(r.CreatedAt) >= RecordTTL
}

// IdempotencyStore reads the ledger. Writes happen through TxRepository so
// they share the creation transaction.
type IdempotencyStore interface {
	// Get returns the live record for key, or (nil, nil) on a miss. Expired
	// records count as misses.
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	// DeleteExpired removes records past their TTL and reports how many.
	DeleteExpired(ctx context.Context) (int64, error)
}
