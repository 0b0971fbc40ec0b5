// Package migrations applies the full relational schema up front, replacing
// adapter-level automigrate in deployments that separate schema management
// from serving.
package migrations

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Run applies the schema for the order and catalog contexts.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&orderRecord{},
		&ledgerRecord{},
		&productRecord{},
		&toppingRecord{},
	)
}

// Order schema mirrors the orders Postgres adapter.
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
	Items            string         `gorm:"column:items;type:jsonb"`
	Amounts          string         `gorm:"column:amounts;type:jsonb"`
	ProductNames     pq.StringArray `gorm:"column:product_names;type:text[]"`
	CreatedAt        time.Time      `gorm:"column:created_at;index"`
	UpdatedAt        time.Time      `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "orders" }

// Idempotency ledger schema. The primary key doubles as the uniqueness
// constraint the creation protocol depends on.
type ledgerRecord struct {
	Key        string    `gorm:"primaryKey;column:key;size:255"`
	Order      string    `gorm:"column:order_snapshot;type:jsonb"`
	PaymentURL string    `gorm:"column:payment_url"`
	CreatedAt  time.Time `gorm:"column:created_at;index"`
}

func (ledgerRecord) TableName() string { return "order_idempotency_keys" }

// Catalog mirror schemas.
type productRecord struct {
	ProductID          string    `gorm:"primaryKey;column:product_id;type:varchar(64)"`
	TenantID           string    `gorm:"column:tenant_id;type:varchar(64);index"`
	PriceConfiguration string    `gorm:"column:price_configuration;type:jsonb"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (productRecord) TableName() string { return "product_price_cache" }

type toppingRecord struct {
	ToppingID string    `gorm:"primaryKey;column:topping_id;type:varchar(64)"`
	Name      string    `gorm:"column:name;type:varchar(128)"`
	Price     int64     `gorm:"column:price"`
	TenantID  string    `gorm:"column:tenant_id;type:varchar(64);index"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (toppingRecord) TableName() string { return "topping_cache" }
