// Package postgres persists the catalog mirrors in PostgreSQL using GORM.
package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quickbite/order-service/internal/domains/catalog/domain"
	"github.com/quickbite/order-service/internal/domains/catalog/ports"
	"github.com/quickbite/order-service/internal/shared/money"
)

var _ ports.Store = (*Store)(nil)

// Store keeps the product and topping mirrors in relational tables.
type Store struct {
	db *gorm.DB
}

// NewStore wires a PostgreSQL-backed mirror. Caller manages DB lifecycle.
func NewStore(db *gorm.DB) *Store {
	store := &Store{db: db}
	if db != nil {
		_ = db.AutoMigrate(&productRecord{}, &toppingRecord{})
	}
	return store
}

type productRecord struct {
	ProductID          string                                         `gorm:"primaryKey;column:product_id;type:varchar(64)"`
	TenantID           string                                         `gorm:"column:tenant_id;type:varchar(64);index"`
	PriceConfiguration map[domain.PriceType]domain.PriceConfiguration `gorm:"column:price_configuration;type:jsonb;serializer:json"`
	UpdatedAt          time.Time                                      `gorm:"column:updated_at"`
}

func (productRecord) TableName() string { return "product_price_cache" }

type toppingRecord struct {
	ToppingID string       `gorm:"primaryKey;column:topping_id;type:varchar(64)"`
	Name      string       `gorm:"column:name;type:varchar(128)"`
	Price     money.Amount `gorm:"column:price"`
	TenantID  string       `gorm:"column:tenant_id;type:varchar(64);index"`
	UpdatedAt time.Time    `gorm:"column:updated_at"`
}

func (toppingRecord) TableName() string { return "topping_cache" }

func (s *Store) ProductsByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var records []productRecord
	if err := s.db.WithContext(ctx).Where("product_id IN ?", ids).Find(&records).Error; err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(records))
	for i := range records {
		products = append(products, records[i].toDomain())
	}
	return products, nil
}

func (s *Store) ToppingsByIDs(ctx context.Context, ids []string) ([]domain.Topping, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var records []toppingRecord
	if err := s.db.WithContext(ctx).Where("topping_id IN ?", ids).Find(&records).Error; err != nil {
		return nil, err
	}
	toppings := make([]domain.Topping, 0, len(records))
	for i := range records {
		toppings = append(toppings, records[i].toDomain())
	}
	return toppings, nil
}

// UpsertProduct applies a last-write-wins upsert keyed by product id.
func (s *Store) UpsertProduct(ctx context.Context, product domain.Product) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	record := productRecord{
		ProductID:          product.ProductID,
		TenantID:           product.TenantID,
		PriceConfiguration: product.PriceConfiguration,
		UpdatedAt:          time.Now().UTC(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"tenant_id", "price_configuration", "updated_at"}),
		}).Create(&record).Error
}

// UpsertTopping applies a last-write-wins upsert keyed by topping id.
func (s *Store) UpsertTopping(ctx context.Context, topping domain.Topping) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	record := toppingRecord{
		ToppingID: topping.ToppingID,
		Name:      topping.Name,
		Price:     topping.Price,
		TenantID:  topping.TenantID,
		UpdatedAt: time.Now().UTC(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "topping_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "price", "tenant_id", "updated_at"}),
		}).Create(&record).Error
}

func (s *Store) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres catalog store not configured")
	}
	return nil
}

func (r productRecord) toDomain() domain.Product {
	return domain.Product{
		ProductID:          r.ProductID,
		TenantID:           r.TenantID,
		PriceConfiguration: r.PriceConfiguration,
	}
}

func (r toppingRecord) toDomain() domain.Topping {
	return domain.Topping{
		ToppingID: r.ToppingID,
		Name:      r.Name,
		Price:     r.Price,
		TenantID:  r.TenantID,
	}
}
