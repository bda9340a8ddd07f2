package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/modaro-shop/modaro-backend/pkg/db/models"
	"github.com/modaro-shop/modaro-backend/pkg/enums"
	"github.com/modaro-shop/modaro-backend/pkg/outbox/payloads"
)

func TestServiceEmit_wrapsEnvelope(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	orderID := uuid.New()
	actor := &ActorRef{UserID: uuid.New(), Role: "admin"}
	event := DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Actor:         actor,
		Version:       1,
		Data: payloads.OrderCreatedEvent{
			OrderID:   orderID,
			UserID:    actor.UserID,
			ItemCount: 2,
		},
	}

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, event)
	}))

	var rows []models.OutboxEvent
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventOrderCreated, rows[0].EventType)
	assert.Equal(t, enums.AggregateOrder, rows[0].AggregateType)
	assert.Equal(t, orderID, rows[0].AggregateID)
	assert.Nil(t, rows[0].PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	assert.False(t, envelope.OccurredAt.IsZero())
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, actor.UserID, envelope.Actor.UserID)

	var payload payloads.OrderCreatedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &payload))
	assert.Equal(t, orderID, payload.OrderID)
	assert.Equal(t, 2, payload.ItemCount)
}

func TestServiceEmit_requiresTransaction(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	err := svc.Emit(context.Background(), nil, DomainEvent{})
	require.Error(t, err)
}

func TestServiceEmitIfNotExists_skipsPendingDuplicate(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	variantID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventLowStock,
		AggregateType: enums.AggregateVariant,
		AggregateID:   variantID,
		Version:       1,
		Data:          payloads.LowStockEvent{VariantID: variantID, RemainingQuantity: 4, Threshold: 10},
	}

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.EmitIfNotExists(context.Background(), tx, event)
	}))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.EmitIfNotExists(context.Background(), tx, event)
	}))

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestServiceEmitIfNotExists_reemitsAfterPublish(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	variantID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventLowStock,
		AggregateType: enums.AggregateVariant,
		AggregateID:   variantID,
		Version:       1,
		Data:          payloads.LowStockEvent{VariantID: variantID, RemainingQuantity: 4, Threshold: 10},
	}

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.EmitIfNotExists(context.Background(), tx, event)
	}))

	now := time.Now().UTC()
	require.NoError(t, db.Model(&models.OutboxEvent{}).
		Where("aggregate_id = ?", variantID).
		Update("published_at", now).Error)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.EmitIfNotExists(context.Background(), tx, event)
	}))

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}
