package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductVariant is the purchasable unit: one product/color/size combination
// with its own SKU, price and the authoritative stock counter.
//
// StockQuantity is mutated only through the inventory repository's
// single-statement conditional updates; it never goes negative.
type ProductVariant struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID     uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ColorID       uuid.UUID       `gorm:"column:color_id;type:uuid;not null"`
	SizeID        uuid.UUID       `gorm:"column:size_id;type:uuid;not null"`
	SKU           string          `gorm:"column:sku;not null;uniqueIndex"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	StockQuantity int             `gorm:"column:stock_quantity;not null;default:0"`
	Active        bool            `gorm:"column:active;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
