package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/quickbite/order-service/internal/domains/orders/domain"
	"github.com/quickbite/order-service/internal/domains/orders/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore reads and purges the creation ledger. Inserts go through
// the transaction manager so they share the creation transaction.
type IdempotencyStore struct {
	db *gorm.DB
}

// NewIdempotencyStore wires a PostgreSQL-backed ledger.
func NewIdempotencyStore(db *gorm.DB) *IdempotencyStore {
	store := &IdempotencyStore{db: db}
	if db != nil {
		_ = db.AutoMigrate(&ledgerRecord{})
	}
	return store
}

type ledgerRecord struct {
	Key        string        `gorm:"primaryKey;column:key;size:255"`
	Order      *domain.Order `gorm:"column:order_snapshot;type:jsonb;serializer:json"`
	PaymentURL string        `gorm:"column:payment_url"`
	CreatedAt  time.Time     `gorm:"column:created_at;index"`
}

func (ledgerRecord) TableName() string { return "order_idempotency_keys" }

// Get loads the record for key. Absent or expired records return (nil, nil).
func (s *IdempotencyStore) Get(ctx context.Context, key string) (*ports.IdempotencyRecord, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var record ledgerRecord
	if err := s.db.WithContext(ctx).First(&record, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	port := toPortRecord(&record)
	if port.Expired(time.Now()) {
		return nil, nil
	}
	return port, nil
}

// DeleteExpired removes records past their TTL and reports how many.
func (s *IdempotencyStore) DeleteExpired(ctx context.Context) (int64, error) {
	if err := s.ensureDB(); err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-ports.RecordTTL)
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&ledgerRecord{})
	return result.RowsAffected, result.Error
}

func (s *IdempotencyStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres idempotency store not configured")
	}
	return nil
}

func toLedgerRecord(record ports.IdempotencyRecord) ledgerRecord {
	return ledgerRecord{
		Key:        record.Key,
		Order:      record.Order,
		PaymentURL: record.PaymentURL,
		CreatedAt:  record.CreatedAt,
	}
}

func toPortRecord(record *ledgerRecord) *ports.IdempotencyRecord {
	if record == nil {
		return nil
	}
	return &ports.IdempotencyRecord{
		Key:        record.Key,
		Order:      record.Order,
		PaymentURL: record.PaymentURL,
		CreatedAt:  record.CreatedAt,
	}
}
