// Package postgres persists orders and the idempotency ledger in PostgreSQL
// using GORM.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/quickbite/order-service/internal/domains/orders/domain"
	"github.com/quickbite/order-service/internal/domains/orders/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository reads and mutates persisted orders.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB
// lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	repo := &Repository{db: db}
	if db != nil {
		_ = db.AutoMigrate(&orderRecord{})
	}
	return repo
}

type orderRecord struct {
	ID               string         `gorm:"primaryKey;column:id;type:varchar(64)"`
	CustomerID       string         `gorm:"column:customer_id;type:varchar(64);index"`
	TenantID         string         `gorm:"column:tenant_id;type:varchar(64);index"`
	Address          string         `gorm:"column:address"`
	Phone            string         `gorm:"column:phone;type:varchar(32)"`
	Comment          string         `gorm:"column:comment"`
	CouponCode       string         `gorm:"column:coupon_code;type:varchar(64)"`
	PaymentMode      string         `gorm:"column:payment_mode;type:varchar(16)"`
	PaymentStatus    string         `gorm:"column:payment_status;type:varchar(32);index"`
	PaymentSessionID string         `gorm:"column:payment_session_id;type:varchar(128);index"`
	OrderStatus      string         `gorm:"column:order_status;type:varchar(32);index"`
	Items            []domain.Item  `gorm:"column:items;type:jsonb;serializer:json"`
	Amounts          domain.Amount  `gorm:"column:amounts;type:jsonb;serializer:json"`
	ProductNames     pq.StringArray `gorm:"column:product_names;type:text[]"`
	CreatedAt        time.Time      `gorm:"column:created_at;index"`
	UpdatedAt        time.Time      `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "orders" }

// GetByID fetches an order by identifier.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record orderRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// List pages through orders matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ports.ListFilter) (*ports.Page, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	return r.list(ctx, "", filter)
}

// ListByCustomer pages through one customer's orders.
func (r *Repository) ListByCustomer(ctx context.Context, customerID string, filter ports.ListFilter) (*ports.Page, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	return r.list(ctx, customerID, filter)
}

func (r *Repository) list(ctx context.Context, customerID string, filter ports.ListFilter) (*ports.Page, error) {
	query := r.db.WithContext(ctx).Model(&orderRecord{})
	if customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}
	if filter.TenantID != "" {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", string(filter.PaymentStatus))
	}
	if filter.OrderStatus != "" {
		query = query.Where("order_status = ?", string(filter.OrderStatus))
	}
	if filter.ProductName != "" {
		query = query.Where("? = ANY(product_names)", filter.ProductName)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
		if filter.Page > 1 {
			query = query.Offset((filter.Page - 1) * filter.Limit)
		}
	}

	var records []orderRecord
	if err := query.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(records))
	for i := range records {
		orders = append(orders, records[i].toDomain())
	}
	return &ports.Page{Orders: orders, Total: total}, nil
}

// UpdateStatus applies an optimistic compare-and-set on order_status.
func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to domain.Status) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	result := r.db.WithContext(ctx).
		Model(&orderRecord{}).
		Where("id = ? AND order_status = ?", id, string(from)).
		Updates(map[string]any{
			"order_status": string(to),
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ports.ErrStatusConflict
	}
	return r.GetByID(ctx, id)
}

// UpdatePaymentStatus sets payment_status only.
func (r *Repository) UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	result := r.db.WithContext(ctx).
		Model(&orderRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"payment_status": string(status),
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ports.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres order repository not configured")
	}
	return nil
}

func toRecord(order *domain.Order) orderRecord {
	return orderRecord{
		ID:               order.ID,
		CustomerID:       order.CustomerID,
		TenantID:         order.TenantID,
		Address:          order.Address,
		Phone:            order.Phone,
		Comment:          order.Comment,
		CouponCode:       order.CouponCode,
		PaymentMode:      string(order.PaymentMode),
		PaymentStatus:    string(order.PaymentStatus),
		PaymentSessionID: order.PaymentSessionID,
		OrderStatus:      string(order.OrderStatus),
		Items:            order.Items,
		Amounts:          order.Amounts,
		ProductNames:     pq.StringArray(order.ProductNames()),
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
}

func (r orderRecord) toDomain() *domain.Order {
	return &domain.Order{
		ID:               r.ID,
		CustomerID:       r.CustomerID,
		TenantID:         r.TenantID,
		Address:          r.Address,
		Phone:            r.Phone,
		Comment:          r.Comment,
		CouponCode:       r.CouponCode,
		PaymentMode:      domain.PaymentMode(r.PaymentMode),
		PaymentStatus:    domain.PaymentStatus(r.PaymentStatus),
		PaymentSessionID: r.PaymentSessionID,
		OrderStatus:      domain.Status(r.OrderStatus),
		Items:            r.Items,
		Amounts:          r.Amounts,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}
