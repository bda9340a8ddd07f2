package inventory

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/modaro-shop/modaro-backend/pkg/db/models"
	"github.com/modaro-shop/modaro-backend/pkg/enums"
	pkgerrors "github.com/modaro-shop/modaro-backend/pkg/errors"
	"github.com/modaro-shop/modaro-backend/pkg/logger"
	"github.com/modaro-shop/modaro-backend/pkg/outbox"
	"github.com/modaro-shop/modaro-backend/pkg/outbox/payloads"
	"github.com/modaro-shop/modaro-backend/pkg/pagination"
)

type recordingOutbox struct {
	events []outbox.DomainEvent
	err    error
}

func (r *recordingOutbox) EmitIfNotExists(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T, db *gorm.DB, sink *recordingOutbox, threshold int) *Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Repo:              NewRepository(db),
		TxRunner:          gormTxRunner{db: db},
		Outbox:            sink,
		Logger:            logger.New(logger.Options{ServiceName: "inventory-test", Output: io.Discard}),
		LowStockThreshold: threshold,
	})
	require.NoError(t, err)
	return svc
}

func movementsFor(t *testing.T, db *gorm.DB, variantID uuid.UUID) []models.StockMovement {
	t.Helper()

	var rows []models.StockMovement
	require.NoError(t, db.Where("variant_id = ?", variantID).Order("created_at ASC").Find(&rows).Error)
	return rows
}

func TestReserveRecordsMovement(t *testing.T) {
	db := setupInventoryTestDB(t)
	sink := &recordingOutbox{}
	svc := newTestService(t, db, sink, 1)
	variant := seedVariant(t, db, 10, true)
	orderID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		newQty, err := svc.Reserve(context.Background(), tx, variant.ID, 3, orderID)
		require.NoError(t, err)
		assert.Equal(t, 7, newQty)
		return nil
	})
	require.NoError(t, err)

	rows := movementsFor(t, db, variant.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, -3, rows[0].QuantityDelta)
	assert.Equal(t, enums.StockMovementReserve, rows[0].MovementType)
	require.NotNil(t, rows[0].OrderID)
	assert.Equal(t, orderID, *rows[0].OrderID)

	assert.Empty(t, sink.events, "stock above threshold must not alert")
}

func TestReserveInsufficientStockDetails(t *testing.T) {
	db := setupInventoryTestDB(t)
	sink := &recordingOutbox{}
	svc := newTestService(t, db, sink, 1)
	variant := seedVariant(t, db, 2, true)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Reserve(context.Background(), tx, variant.ID, 5, uuid.New())
		return err
	})
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))

	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	details, ok := coded.Details().(InsufficientStockDetails)
	require.True(t, ok)
	assert.Equal(t, variant.ID, details.VariantID)
	assert.Equal(t, 2, details.Available)
	assert.Equal(t, 5, details.Requested)
	assert.Equal(t, 3, details.Shortfall)

	assert.Empty(t, movementsFor(t, db, variant.ID), "a rejected reserve leaves no audit row")
}

func TestReserveEmitsLowStockAlert(t *testing.T) {
	db := setupInventoryTestDB(t)
	sink := &recordingOutbox{}
	svc := newTestService(t, db, sink, 5)
	variant := seedVariant(t, db, 6, true)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Reserve(context.Background(), tx, variant.ID, 2, uuid.New())
		return err
	})
	require.NoError(t, err)

	require.Len(t, sink.events, 1)
	event := sink.events[0]
	assert.Equal(t, enums.EventLowStock, event.EventType)
	assert.Equal(t, enums.AggregateVariant, event.AggregateType)
	assert.Equal(t, variant.ID, event.AggregateID)

	payload, ok := event.Data.(payloads.LowStockEvent)
	require.True(t, ok)
	assert.Equal(t, variant.ID, payload.VariantID)
	assert.Equal(t, variant.ProductID, payload.ProductID)
	assert.Equal(t, variant.SKU, payload.SKU)
	assert.Equal(t, 4, payload.RemainingQuantity)
	assert.Equal(t, 5, payload.Threshold)
}

func TestReleaseRestoresStock(t *testing.T) {
	db := setupInventoryTestDB(t)
	sink := &recordingOutbox{}
	svc := newTestService(t, db, sink, 1)
	variant := seedVariant(t, db, 10, true)
	orderID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := svc.Reserve(context.Background(), tx, variant.ID, 4, orderID); err != nil {
			return err
		}
		return nil
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		newQty, err := svc.Release(context.Background(), tx, variant.ID, 4, orderID)
		require.NoError(t, err)
		assert.Equal(t, 10, newQty)
		return nil
	})
	require.NoError(t, err)

	rows := movementsFor(t, db, variant.ID)
	require.Len(t, rows, 2)
	assert.Equal(t, enums.StockMovementRelease, rows[1].MovementType)
	assert.Equal(t, 4, rows[1].QuantityDelta)
}

func TestRestock(t *testing.T) {
	db := setupInventoryTestDB(t)
	sink := &recordingOutbox{}
	svc := newTestService(t, db, sink, 1)
	variant := seedVariant(t, db, 3, true)
	actorID := uuid.New()
	note := "inbound delivery"

	newQty, err := svc.Restock(context.Background(), variant.ID, 20, &actorID, &note)
	require.NoError(t, err)
	assert.Equal(t, 23, newQty)

	rows := movementsFor(t, db, variant.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.StockMovementRestock, rows[0].MovementType)
	assert.Equal(t, 20, rows[0].QuantityDelta)
	require.NotNil(t, rows[0].ActorID)
	assert.Equal(t, actorID, *rows[0].ActorID)
	require.NotNil(t, rows[0].Note)
	assert.Equal(t, note, *rows[0].Note)
}

func TestSetAbsoluteRecordsCorrectionDelta(t *testing.T) {
	db := setupInventoryTestDB(t)
	sink := &recordingOutbox{}
	svc := newTestService(t, db, sink, 1)
	variant := seedVariant(t, db, 12, true)

	newQty, err := svc.SetAbsolute(context.Background(), variant.ID, 7, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, newQty)

	rows := movementsFor(t, db, variant.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.StockMovementCorrection, rows[0].MovementType)
	assert.Equal(t, -5, rows[0].QuantityDelta)
}

func TestTwoReservesAgainstSameStock(t *testing.T) {
	db := setupInventoryTestDB(t)
	sink := &recordingOutbox{}
	svc := newTestService(t, db, sink, 1)
	variant := seedVariant(t, db, 5, true)

	err := db.Transaction(func(tx *gorm.DB) error {
		newQty, err := svc.Reserve(context.Background(), tx, variant.ID, 3, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, 2, newQty)
		return nil
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Reserve(context.Background(), tx, variant.ID, 3, uuid.New())
		return err
	})
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))

	coded := pkgerrors.As(err)
	details, ok := coded.Details().(InsufficientStockDetails)
	require.True(t, ok)
	assert.Equal(t, 2, details.Available)

	remaining, err := svc.Read(context.Background(), variant.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
}

func TestListMovementsPage(t *testing.T) {
	db := setupInventoryTestDB(t)
	sink := &recordingOutbox{}
	svc := newTestService(t, db, sink, 1)
	variant := seedVariant(t, db, 50, true)

	for i := 0; i < 4; i++ {
		_, err := svc.Restock(context.Background(), variant.ID, 1, nil, nil)
		require.NoError(t, err)
	}

	page, err := svc.ListMovements(context.Background(), variant.ID, pagination.Params{Page: 1, PageSize: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 4, page.Total)
	assert.Len(t, page.Movements, 3)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 3, page.PageSize)
}
