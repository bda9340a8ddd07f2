package orders

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/modaro-shop/modaro-backend/internal/inventory"
	"github.com/modaro-shop/modaro-backend/pkg/db/models"
	"github.com/modaro-shop/modaro-backend/pkg/logger"
	"github.com/modaro-shop/modaro-backend/pkg/outbox"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  shipping_address_ref TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  total_amount NUMERIC NOT NULL DEFAULT 0,
  cancel_reason TEXT,
  delivered_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_at_order NUMERIC NOT NULL,
  line_total NUMERIC NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  color_id TEXT NOT NULL,
  size_id TEXT NOT NULL,
  sku TEXT NOT NULL UNIQUE,
  unit_price NUMERIC NOT NULL DEFAULT 0,
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  active BOOLEAN NOT NULL DEFAULT true,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS stock_movements (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  variant_id TEXT NOT NULL,
  quantity_delta INTEGER NOT NULL,
  movement_type TEXT NOT NULL,
  order_id TEXT,
  actor_id TEXT,
  note TEXT,
  created_at DATETIME
);`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type recordingOutbox struct {
	events []outbox.DomainEvent
	err    error
}

func (r *recordingOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingOutbox) EmitIfNotExists(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	return r.Emit(nil, nil, event)
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type ordersFixture struct {
	db   *gorm.DB
	svc  *Service
	sink *recordingOutbox
}

func newOrdersFixture(t *testing.T) *ordersFixture {
	t.Helper()

	db := setupOrdersTestDB(t)
	sink := &recordingOutbox{}
	logg := logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})

	stock, err := inventory.NewService(inventory.ServiceParams{
		Repo:              inventory.NewRepository(db),
		TxRunner:          gormTxRunner{db: db},
		Outbox:            sink,
		Logger:            logg,
		LowStockThreshold: 1,
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:             NewRepository(db),
		TxRunner:         gormTxRunner{db: db},
		Stock:            stock,
		Outbox:           sink,
		Logger:           logg,
		MaxItemsPerOrder: 10,
	})
	require.NoError(t, err)

	return &ordersFixture{db: db, svc: svc, sink: sink}
}

func (f *ordersFixture) seedVariant(t *testing.T, price string, stock int) models.ProductVariant {
	t.Helper()

	variant := models.ProductVariant{
		ID:            uuid.New(),
		ProductID:     uuid.New(),
		ColorID:       uuid.New(),
		SizeID:        uuid.New(),
		SKU:           "SKU-" + uuid.NewString(),
		UnitPrice:     decimal.RequireFromString(price),
		StockQuantity: stock,
		Active:        true,
	}
	require.NoError(t, f.db.Create(&variant).Error)
	return variant
}

func (f *ordersFixture) variantStock(t *testing.T, variantID uuid.UUID) int {
	t.Helper()

	var variant models.ProductVariant
	require.NoError(t, f.db.First(&variant, "id = ?", variantID).Error)
	return variant.StockQuantity
}

func (f *ordersFixture) orderCount(t *testing.T) int64 {
	t.Helper()

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	return count
}
