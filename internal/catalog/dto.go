package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SortField selects the product-level attribute a listing is ordered by.
// SortByMinPrice sorts on the computed rollup, not a stored column.
type SortField string

const (
	SortByName      SortField = "name"
	SortByBasePrice SortField = "base_price"
	SortByCreatedAt SortField = "created_at"
	SortByMinPrice  SortField = "min_price"
)

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortSpec pairs a field with a direction.
type SortSpec struct {
	Field     SortField
	Direction SortDirection
}

// Normalize fills in the default ordering: newest products first.
func (s SortSpec) Normalize() SortSpec {
	switch s.Field {
	case SortByName, SortByBasePrice, SortByCreatedAt, SortByMinPrice:
	default:
		s.Field = SortByCreatedAt
	}
	switch s.Direction {
	case SortAsc, SortDesc:
	default:
		if s.Field == SortByCreatedAt {
			s.Direction = SortDesc
		} else {
			s.Direction = SortAsc
		}
	}
	return s
}

// ListFilters narrows the catalog listing. Scalar filters apply at the
// product level, the id sets at the variant level.
type ListFilters struct {
	CategoryID *uuid.UUID
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	SearchText *string
	ColorIDs   []uuid.UUID
	SizeIDs    []uuid.UUID
}

// FacetValue is one color or size option surfaced on a summary.
type FacetValue struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// PriceRange spans the unit prices of the variants backing a summary.
type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// ProductSummary is one deduplicated listing entry with its rollups.
type ProductSummary struct {
	ProductID       uuid.UUID       `json:"product_id"`
	Name            string          `json:"name"`
	Description     *string         `json:"description,omitempty"`
	BasePrice       decimal.Decimal `json:"base_price"`
	CategoryID      uuid.UUID       `json:"category_id"`
	CreatedAt       time.Time       `json:"created_at"`
	TotalStock      int             `json:"total_stock"`
	AvailableColors []FacetValue    `json:"available_colors"`
	AvailableSizes  []FacetValue    `json:"available_sizes"`
	PriceRange      PriceRange      `json:"price_range"`
}

// VariantView is one variant row on a product detail.
type VariantView struct {
	VariantID     uuid.UUID       `json:"variant_id"`
	SKU           string          `json:"sku"`
	Color         FacetValue      `json:"color"`
	Size          FacetValue      `json:"size"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	StockQuantity int             `json:"stock_quantity"`
	InStock       bool            `json:"in_stock"`
}

// ProductDetail is a summary plus every active variant, zero-stock included.
type ProductDetail struct {
	ProductSummary
	Variants []VariantView `json:"variants"`
}

// ListResult is one page of summaries. Total counts products after
// deduplication, never join rows.
type ListResult struct {
	Items    []ProductSummary `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}
