package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem snapshots one ordered variant. UnitPriceAtOrder and LineTotal are
// immutable once written; later price changes never rewrite history. VariantID
// is a weak reference: the variant may be deactivated afterwards while the
// item remains for audit.
type OrderItem struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	VariantID        uuid.UUID       `gorm:"column:variant_id;type:uuid;not null"`
	SKU              string          `gorm:"column:sku;not null"`
	Quantity         int             `gorm:"column:quantity;not null"`
	UnitPriceAtOrder decimal.Decimal `gorm:"column:unit_price_at_order;type:numeric(12,2);not null"`
	LineTotal        decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}
