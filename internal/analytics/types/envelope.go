package types

import (
	"encoding/json"
	"time"

	"github.com/modaro-shop/modaro-backend/pkg/enums"
)

// Envelope is the canonical analytics view of one published domain event.
// The worker builds it from the Pub/Sub message attributes plus the stored
// payload envelope.
type Envelope struct {
	EventID       string                    `json:"event_id"`
	EventType     enums.OutboxEventType     `json:"event_type"`
	AggregateType enums.OutboxAggregateType `json:"aggregate_type"`
	AggregateID   string                    `json:"aggregate_id"`
	OccurredAt    time.Time                 `json:"occurred_at"`
	Payload       json.RawMessage           `json:"payload"`
}
