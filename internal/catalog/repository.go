package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// joinedRow is one products × product_variants × colors × sizes row. The
// service groups these by product id; nothing outside the package sees them.
type joinedRow struct {
	ProductID        uuid.UUID
	ProductName      string
	Description      *string
	BasePrice        decimal.Decimal
	CategoryID       uuid.UUID
	ProductCreatedAt time.Time
	VariantID        uuid.UUID
	SKU              string
	UnitPrice        decimal.Decimal
	StockQuantity    int
	ColorID          uuid.UUID
	ColorName        string
	SizeID           uuid.UUID
	SizeName         string
	SizeRank         int
}

const joinedColumns = `
p.id AS product_id,
p.name AS product_name,
p.description,
p.base_price,
p.category_id,
p.created_at AS product_created_at,
v.id AS variant_id,
v.sku,
v.unit_price,
v.stock_quantity,
c.id AS color_id,
c.name AS color_name,
s.id AS size_id,
s.name AS size_name,
s.sort_rank AS size_rank`

// Repository serves the read-only catalog queries. It never locks rows and
// never mutates anything.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("products p").
		Select(joinedColumns).
		Joins("JOIN product_variants v ON v.product_id = p.id").
		Joins("JOIN colors c ON c.id = v.color_id").
		Joins("JOIN sizes s ON s.id = v.size_id").
		Where("p.active = ?", true).
		Where("v.active = ?", true)
}

// ListJoinedRows returns every purchasable variant row matching the filters,
// ordered by product id so grouping in the service is stable.
func (r *Repository) ListJoinedRows(ctx context.Context, filters ListFilters) ([]joinedRow, error) {
	query := r.baseQuery(ctx).Where("v.stock_quantity > 0")

	if filters.CategoryID != nil {
		query = query.Where("p.category_id = ?", *filters.CategoryID)
	}
	if filters.MinPrice != nil {
		query = query.Where("p.base_price >= ?", *filters.MinPrice)
	}
	if filters.MaxPrice != nil {
		query = query.Where("p.base_price <= ?", *filters.MaxPrice)
	}
	if filters.SearchText != nil {
		needle := "%" + strings.ToLower(strings.TrimSpace(*filters.SearchText)) + "%"
		query = query.Where(
			"LOWER(p.name) LIKE ? OR LOWER(COALESCE(p.description, '')) LIKE ?",
			needle, needle,
		)
	}
	if len(filters.ColorIDs) > 0 {
		query = query.Where("v.color_id IN ?", filters.ColorIDs)
	}
	if len(filters.SizeIDs) > 0 {
		query = query.Where("v.size_id IN ?", filters.SizeIDs)
	}

	var rows []joinedRow
	if err := query.Order("p.id").Order("v.created_at").Order("v.id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindProductRows returns every active variant row for one active product,
// zero-stock variants included. An empty slice means there is no active
// variant; a nil product id match means the product itself is missing.
func (r *Repository) FindProductRows(ctx context.Context, productID uuid.UUID) ([]joinedRow, error) {
	var rows []joinedRow
	err := r.baseQuery(ctx).
		Where("p.id = ?", productID).
		Order("v.created_at").
		Order("v.id").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindProduct loads the bare product row. Used to tell a missing product
// apart from one with no active variants, and to serve variantless details.
func (r *Repository) FindProduct(ctx context.Context, productID uuid.UUID) (*joinedRow, error) {
	var row struct {
		ProductID        uuid.UUID
		ProductName      string
		Description      *string
		BasePrice        decimal.Decimal
		CategoryID       uuid.UUID
		ProductCreatedAt time.Time
	}
	result := r.db.WithContext(ctx).
		Table("products p").
		Select("p.id AS product_id, p.name AS product_name, p.description, p.base_price, p.category_id, p.created_at AS product_created_at").
		Where("p.id = ? AND p.active = ?", productID, true).
		Scan(&row)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &joinedRow{
		ProductID:        row.ProductID,
		ProductName:      row.ProductName,
		Description:      row.Description,
		BasePrice:        row.BasePrice,
		CategoryID:       row.CategoryID,
		ProductCreatedAt: row.ProductCreatedAt,
	}, nil
}
