package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/modaro-shop/modaro-backend/pkg/enums"
)

// OrderCreatedEvent signals a confirmed checkout with all stock decremented.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	UserID      uuid.UUID       `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int             `json:"item_count"`
}

// ReleasedItem reports one variant restored during cancellation.
type ReleasedItem struct {
	VariantID uuid.UUID `json:"variant_id"`
	Quantity  int       `json:"quantity"`
}

// OrderCancelledEvent is emitted whenever an order leaves the flow before
// fulfillment, whether by user action or the pending-order sweep.
type OrderCancelledEvent struct {
	OrderID       uuid.UUID      `json:"order_id"`
	UserID        uuid.UUID      `json:"user_id"`
	Reason        string         `json:"reason,omitempty"`
	CancelledAt   time.Time      `json:"cancelled_at"`
	ReleasedItems []ReleasedItem `json:"released_items"`
}

// OrderStatusChangedEvent mirrors every admin or payment driven transition.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	UserID     uuid.UUID         `json:"user_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
}

// LowStockEvent warns that a variant dropped to or below its alert threshold.
type LowStockEvent struct {
	VariantID         uuid.UUID `json:"variant_id"`
	ProductID         uuid.UUID `json:"product_id"`
	SKU               string    `json:"sku"`
	RemainingQuantity int       `json:"remaining_quantity"`
	Threshold         int       `json:"threshold"`
}
