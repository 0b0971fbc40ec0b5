package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quickbite/order-service/internal/domains/orders/domain"
	"github.com/quickbite/order-service/internal/domains/orders/ports"
)

var _ ports.TransactionManager = (*TxManager)(nil)

// TxManager runs the creation writes in one database transaction.
type TxManager struct {
	db *gorm.DB
}

// NewTxManager wires a PostgreSQL-backed transaction manager.
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// InTransaction runs fn atomically; any returned error rolls everything back.
func (m *TxManager) InTransaction(ctx context.Context, fn func(tx ports.TxRepository) error) error {
	if m == nil || m.db == nil {
		return errors.New("postgres transaction manager not configured")
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepository{db: tx})
	})
}

type txRepository struct {
	db *gorm.DB
}

func (t *txRepository) InsertOrder(ctx context.Context, order *domain.Order) error {
	record := toRecord(order)
	return t.db.WithContext(ctx).Create(&record).Error
}

// InsertIdempotencyRecord relies on the primary-key constraint to detect
// racing duplicates. The insert uses ON CONFLICT DO NOTHING so a duplicate
// never aborts the enclosing transaction; an expired leftover for the same
// key is swept and the insert retried.
func (t *txRepository) InsertIdempotencyRecord(ctx context.Context, record ports.IdempotencyRecord) error {
	dbRecord := toLedgerRecord(record)
	result := t.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&dbRecord)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var existing ledgerRecord
	if lookupErr := t.db.WithContext(ctx).First(&existing, "key = ?", record.Key).Error; lookupErr != nil {
		return fmt.Errorf("lookup duplicate key %q: %w", record.Key, lookupErr)
	}
	if !toPortRecord(&existing).Expired(record.CreatedAt) {
		return ports.ErrDuplicateKey
	}
	if deleteErr := t.db.WithContext(ctx).Delete(&ledgerRecord{}, "key = ?", record.Key).Error; deleteErr != nil {
		return deleteErr
	}
	retry := t.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&dbRecord)
	if retry.Error != nil {
		return retry.Error
	}
	if retry.RowsAffected == 0 {
		return ports.ErrDuplicateKey
	}
	return nil
}
