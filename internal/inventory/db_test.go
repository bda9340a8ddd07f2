package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/modaro-shop/modaro-backend/pkg/db/models"
)

func setupInventoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	// Single connection: concurrent statements serialize instead of
	// tripping SQLITE_BUSY.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	variants := `
CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  product_id TEXT NOT NULL,
  color_id TEXT NOT NULL,
  size_id TEXT NOT NULL,
  sku TEXT NOT NULL UNIQUE,
  unit_price NUMERIC NOT NULL DEFAULT 0,
  stock_quantity INTEGER NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
  active BOOLEAN NOT NULL DEFAULT true,
  created_at DATETIME,
  updated_at DATETIME
);`
	movements := `
CREATE TABLE IF NOT EXISTS stock_movements (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  variant_id TEXT NOT NULL,
  quantity_delta INTEGER NOT NULL,
  movement_type TEXT NOT NULL,
  order_id TEXT,
  actor_id TEXT,
  note TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(variants).Error)
	require.NoError(t, db.Exec(movements).Error)
	return db
}

func seedVariant(t *testing.T, db *gorm.DB, stock int, active bool) models.ProductVariant {
	t.Helper()

	variant := models.ProductVariant{
		ID:            uuid.New(),
		ProductID:     uuid.New(),
		ColorID:       uuid.New(),
		SizeID:        uuid.New(),
		SKU:           "SKU-" + uuid.NewString(),
		UnitPrice:     decimal.NewFromFloat(19.99),
		StockQuantity: stock,
		Active:        active,
	}
	require.NoError(t, db.Create(&variant).Error)
	return variant
}
