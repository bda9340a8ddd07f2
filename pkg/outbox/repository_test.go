package outbox

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/modaro-shop/modaro-backend/pkg/db/models"
	"github.com/modaro-shop/modaro-backend/pkg/enums"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	outboxEvents := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	outboxDLQ := `
CREATE TABLE IF NOT EXISTS outbox_dlq (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(outboxEvents).Error)
	require.NoError(t, db.Exec(outboxDLQ).Error)
	return db
}

func insertOutboxRow(t *testing.T, db *gorm.DB, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, created time.Time, attempts int, published *time.Time) models.OutboxEvent {
	t.Helper()

	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1,"eventId":"x","data":{}}`),
		CreatedAt:     created,
		AttemptCount:  attempts,
		PublishedAt:   published,
	}
	require.NoError(t, db.Create(&row).Error)
	return row
}

func TestRepositoryFetchUnpublishedForPublish_window(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	published := now.Add(-time.Minute)
	oldest := insertOutboxRow(t, db, enums.EventOrderCreated, enums.AggregateOrder, now.Add(-3*time.Hour), 0, nil)
	insertOutboxRow(t, db, enums.EventLowStock, enums.AggregateVariant, now.Add(-2*time.Hour), 10, nil)
	insertOutboxRow(t, db, enums.EventOrderCancelled, enums.AggregateOrder, now.Add(-time.Hour), 0, &published)
	newest := insertOutboxRow(t, db, enums.EventOrderStatusChanged, enums.AggregateOrder, now, 3, nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 10)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, oldest.ID, rows[0].ID)
		assert.Equal(t, newest.ID, rows[1].ID)
		return nil
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 1, 10)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, oldest.ID, rows[0].ID)
		return nil
	})
	require.NoError(t, err)
}

func TestRepositoryMarkPublishedTx(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	row := insertOutboxRow(t, db, enums.EventOrderCreated, enums.AggregateOrder, time.Now().UTC(), 0, nil)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.MarkPublishedTx(tx, row.ID)
	}))

	var updated models.OutboxEvent
	require.NoError(t, db.First(&updated, "id = ?", row.ID).Error)
	require.NotNil(t, updated.PublishedAt)

	err := db.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 10)
		require.NoError(t, err)
		assert.Empty(t, rows)
		return nil
	})
	require.NoError(t, err)
}

func TestRepositoryMarkFailedTx_incrementsAttempts(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	row := insertOutboxRow(t, db, enums.EventOrderCreated, enums.AggregateOrder, time.Now().UTC(), 0, nil)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.MarkFailedTx(tx, row.ID, errors.New("publish timeout"))
	}))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.MarkFailedTx(tx, row.ID, errors.New("publish timeout again"))
	}))

	var updated models.OutboxEvent
	require.NoError(t, db.First(&updated, "id = ?", row.ID).Error)
	assert.Equal(t, 2, updated.AttemptCount)
	require.NotNil(t, updated.LastError)
	assert.Equal(t, "publish timeout again", *updated.LastError)
}

func TestRepositoryMarkTerminalTx_leavesPublishWindow(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	row := insertOutboxRow(t, db, enums.EventOrderCreated, enums.AggregateOrder, time.Now().UTC(), 2, nil)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.MarkTerminalTx(tx, row.ID, errors.New("unsupported event"), 10)
	}))

	var updated models.OutboxEvent
	require.NoError(t, db.First(&updated, "id = ?", row.ID).Error)
	assert.Equal(t, 10, updated.AttemptCount)

	err := db.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 10)
		require.NoError(t, err)
		assert.Empty(t, rows)
		return nil
	})
	require.NoError(t, err)
}

func TestRepositoryExistsTx_pendingOnly(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	pending := insertOutboxRow(t, db, enums.EventLowStock, enums.AggregateVariant, now, 0, nil)
	published := insertOutboxRow(t, db, enums.EventLowStock, enums.AggregateVariant, now, 0, &now)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		exists, err := repo.ExistsTx(tx, enums.EventLowStock, enums.AggregateVariant, pending.AggregateID)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsTx(tx, enums.EventLowStock, enums.AggregateVariant, published.AggregateID)
		require.NoError(t, err)
		assert.False(t, exists)

		exists, err = repo.ExistsTx(tx, enums.EventOrderCreated, enums.AggregateOrder, pending.AggregateID)
		require.NoError(t, err)
		assert.False(t, exists)
		return nil
	}))
}

func TestDLQRepositoryInsertTx_truncatesError(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewDLQRepository(db)

	long := make([]byte, maxDLQErrorLen+100)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)
	entry := models.OutboxDLQ{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
		AttemptCount:  10,
		FailedAt:      time.Now().UTC(),
	}

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.InsertTx(tx, entry)
	}))

	stored, err := repo.FindByEventID(nil, entry.EventID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.NotNil(t, stored.ErrorMessage)
	assert.Len(t, *stored.ErrorMessage, maxDLQErrorLen)
}
