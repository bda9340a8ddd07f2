package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// OrderEventRow mirrors the order_events BigQuery schema. One row per order
// lifecycle event; downstream queries deduplicate on event_id.
type OrderEventRow struct {
	EventID       string             `bigquery:"event_id"`
	EventType     string             `bigquery:"event_type"`
	OrderID       string             `bigquery:"order_id"`
	UserID        *string            `bigquery:"user_id"`
	TotalAmount   *float64           `bigquery:"total_amount"`
	ItemCount     *int64             `bigquery:"item_count"`
	FromStatus    *string            `bigquery:"from_status"`
	ToStatus      *string            `bigquery:"to_status"`
	CancelReason  *string            `bigquery:"cancel_reason"`
	ReleasedItems cbigquery.NullJSON `bigquery:"released_items"`
	Payload       cbigquery.NullJSON `bigquery:"payload"`
	OccurredAt    time.Time          `bigquery:"occurred_at"`
}

// StockEventRow mirrors the stock_events BigQuery schema.
type StockEventRow struct {
	EventID           string             `bigquery:"event_id"`
	EventType         string             `bigquery:"event_type"`
	VariantID         string             `bigquery:"variant_id"`
	ProductID         *string            `bigquery:"product_id"`
	SKU               *string            `bigquery:"sku"`
	RemainingQuantity *int64             `bigquery:"remaining_quantity"`
	Threshold         *int64             `bigquery:"threshold"`
	Payload           cbigquery.NullJSON `bigquery:"payload"`
	OccurredAt        time.Time          `bigquery:"occurred_at"`
}
