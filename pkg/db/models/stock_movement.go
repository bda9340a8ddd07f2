package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/modaro-shop/modaro-backend/pkg/enums"
)

// StockMovement is one append-only audit entry per stock mutation. The
// balance lives on the variant row; this trail explains how it got there.
type StockMovement struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VariantID     uuid.UUID               `gorm:"column:variant_id;type:uuid;not null"`
	QuantityDelta int                     `gorm:"column:quantity_delta;not null"`
	MovementType  enums.StockMovementType `gorm:"column:movement_type;type:stock_movement_type;not null"`
	OrderID       *uuid.UUID              `gorm:"column:order_id;type:uuid"`
	ActorID       *uuid.UUID              `gorm:"column:actor_id;type:uuid"`
	Note          *string                 `gorm:"column:note"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
}
