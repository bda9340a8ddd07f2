package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/modaro-shop/modaro-backend/pkg/db/models"
	pkgerrors "github.com/modaro-shop/modaro-backend/pkg/errors"
	"github.com/modaro-shop/modaro-backend/pkg/pagination"
)

// Repository owns product_variants.stock_quantity. Every mutation is a single
// conditional UPDATE so the row lock taken by the store is the only
// synchronization; no caller may read-then-write the counter.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

type quantityRow struct {
	StockQuantity int
}

// ConditionalDecrement subtracts amount only when the variant is active and
// holds at least that much stock. ok=false means the guard rejected the
// decrement and nothing changed; newQty is only meaningful when ok is true.
func (r *Repository) ConditionalDecrement(ctx context.Context, variantID uuid.UUID, amount int) (bool, int, error) {
	if amount <= 0 {
		return false, 0, pkgerrors.New(pkgerrors.CodeValidation, "decrement amount must be positive")
	}

	var row quantityRow
	result := r.db.WithContext(ctx).Raw(`
UPDATE product_variants
SET stock_quantity = stock_quantity - ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND active = ? AND stock_quantity >= ?
RETURNING stock_quantity`, amount, variantID, true, amount).Scan(&row)
	if result.Error != nil {
		return false, 0, result.Error
	}
	if result.RowsAffected == 0 {
		if err := r.ensureVariantExists(ctx, variantID); err != nil {
			return false, 0, err
		}
		return false, 0, nil
	}
	return true, row.StockQuantity, nil
}

// Increment adds amount unconditionally. Used by release and restock paths.
func (r *Repository) Increment(ctx context.Context, variantID uuid.UUID, amount int) (int, error) {
	if amount <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "increment amount must be positive")
	}

	var row quantityRow
	result := r.db.WithContext(ctx).Raw(`
UPDATE product_variants
SET stock_quantity = stock_quantity + ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND active = ?
RETURNING stock_quantity`, amount, variantID, true).Scan(&row)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, variantNotFound(variantID)
	}
	return row.StockQuantity, nil
}

// SetAbsolute overwrites the counter. Administrative corrections only; the
// order path never calls this.
func (r *Repository) SetAbsolute(ctx context.Context, variantID uuid.UUID, amount int) (int, error) {
	if amount < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
	}

	var row quantityRow
	result := r.db.WithContext(ctx).Raw(`
UPDATE product_variants
SET stock_quantity = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND active = ?
RETURNING stock_quantity`, amount, variantID, true).Scan(&row)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, variantNotFound(variantID)
	}
	return row.StockQuantity, nil
}

// ReadQuantity returns a point-in-time view of the counter. Advisory only:
// the value may be stale by the time the caller acts on it.
func (r *Repository) ReadQuantity(ctx context.Context, variantID uuid.UUID) (int, error) {
	var row quantityRow
	result := r.db.WithContext(ctx).Raw(`
SELECT stock_quantity FROM product_variants WHERE id = ? AND active = ?`, variantID, true).Scan(&row)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, variantNotFound(variantID)
	}
	return row.StockQuantity, nil
}

// FindVariant loads the active variant row.
func (r *Repository) FindVariant(ctx context.Context, variantID uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).
		First(&variant, "id = ? AND active = ?", variantID, true).
		Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, variantNotFound(variantID)
		}
		return nil, err
	}
	return &variant, nil
}

// InsertMovement appends one audit row. Movements are never updated.
func (r *Repository) InsertMovement(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// ListMovements returns the newest-first audit trail page for a variant.
func (r *Repository) ListMovements(ctx context.Context, variantID uuid.UUID, params pagination.Params) ([]models.StockMovement, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.StockMovement{}).
		Where("variant_id = ?", variantID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.StockMovement
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset(params.Offset()).
		Limit(params.Limit()).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *Repository) ensureVariantExists(ctx context.Context, variantID uuid.UUID) error {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ? AND active = ?", variantID, true).
		Count(&count).
		Error
	if err != nil {
		return err
	}
	if count == 0 {
		return variantNotFound(variantID)
	}
	return nil
}

func variantNotFound(variantID uuid.UUID) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found").
		WithDetails(map[string]any{"variant_id": variantID.String()})
}
