package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/modaro-shop/modaro-backend/pkg/errors"
	"github.com/modaro-shop/modaro-backend/pkg/logger"
	"github.com/modaro-shop/modaro-backend/pkg/pagination"
)

// ServiceParams configure the catalog aggregator.
type ServiceParams struct {
	Repo   *Repository
	Logger *logger.Logger
}

// Service turns flat join rows into deduplicated product listings. Filtering
// happens in SQL; grouping, rollups, sorting and pagination happen here so a
// page boundary always counts products, never join rows.
type Service struct {
	repo *Repository
	logg *logger.Logger
}

// NewService builds the catalog aggregator.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: params.Repo, logg: params.Logger}, nil
}

// productGroup accumulates the variant rows of one product while grouping.
type productGroup struct {
	summary    ProductSummary
	variants   []VariantView
	minPrice   decimal.Decimal
	seenColors map[uuid.UUID]bool
	seenSizes  map[uuid.UUID]bool
	sizeRank   map[uuid.UUID]int
}

// ListProducts returns one page of product summaries matching the filters.
func (s *Service) ListProducts(ctx context.Context, filters ListFilters, params pagination.Params, sortSpec SortSpec) (*ListResult, error) {
	rows, err := s.repo.ListJoinedRows(ctx, filters)
	if err != nil {
		return nil, err
	}

	groups := groupRows(rows)
	summaries := make([]ProductSummary, 0, len(groups))
	minPrices := make(map[uuid.UUID]decimal.Decimal, len(groups))
	for _, group := range groups {
		summaries = append(summaries, group.summary)
		minPrices[group.summary.ProductID] = group.minPrice
	}

	sortSummaries(summaries, minPrices, sortSpec.Normalize())

	normalized := params.Normalize()
	start, end := normalized.Bounds(len(summaries))
	return &ListResult{
		Items:    summaries[start:end],
		Total:    len(summaries),
		Page:     normalized.Page,
		PageSize: normalized.PageSize,
	}, nil
}

// GetProductDetail returns the product with every active variant, including
// zero-stock ones flagged as out of stock.
func (s *Service) GetProductDetail(ctx context.Context, productID uuid.UUID) (*ProductDetail, error) {
	rows, err := s.repo.FindProductRows(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		bare, err := s.repo.FindProduct(ctx, productID)
		if err != nil {
			return nil, err
		}
		if bare == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": productID.String()})
		}
		group := newGroup(*bare)
		return &ProductDetail{ProductSummary: group.summary, Variants: []VariantView{}}, nil
	}

	groups := groupRows(rows)
	group := groups[0]
	return &ProductDetail{
		ProductSummary: group.summary,
		Variants:       group.variants,
	}, nil
}

func newGroup(row joinedRow) *productGroup {
	return &productGroup{
		summary: ProductSummary{
			ProductID:       row.ProductID,
			Name:            row.ProductName,
			Description:     row.Description,
			BasePrice:       row.BasePrice,
			CategoryID:      row.CategoryID,
			CreatedAt:       row.ProductCreatedAt,
			AvailableColors: []FacetValue{},
			AvailableSizes:  []FacetValue{},
		},
		variants:   []VariantView{},
		seenColors: make(map[uuid.UUID]bool),
		seenSizes:  make(map[uuid.UUID]bool),
		sizeRank:   make(map[uuid.UUID]int),
	}
}

func (g *productGroup) add(row joinedRow) {
	g.summary.TotalStock += row.StockQuantity

	if len(g.variants) == 0 {
		g.minPrice = row.UnitPrice
		g.summary.PriceRange = PriceRange{Min: row.UnitPrice, Max: row.UnitPrice}
	} else {
		if row.UnitPrice.LessThan(g.minPrice) {
			g.minPrice = row.UnitPrice
			g.summary.PriceRange.Min = row.UnitPrice
		}
		if row.UnitPrice.GreaterThan(g.summary.PriceRange.Max) {
			g.summary.PriceRange.Max = row.UnitPrice
		}
	}

	// Colors and sizes dedupe independently; a color ID may legitimately
	// collide with a size ID.
	if !g.seenColors[row.ColorID] {
		g.seenColors[row.ColorID] = true
		g.summary.AvailableColors = append(g.summary.AvailableColors, FacetValue{ID: row.ColorID, Name: row.ColorName})
	}
	if !g.seenSizes[row.SizeID] {
		g.seenSizes[row.SizeID] = true
		g.sizeRank[row.SizeID] = row.SizeRank
		g.summary.AvailableSizes = append(g.summary.AvailableSizes, FacetValue{ID: row.SizeID, Name: row.SizeName})
	}

	g.variants = append(g.variants, VariantView{
		VariantID:     row.VariantID,
		SKU:           row.SKU,
		Color:         FacetValue{ID: row.ColorID, Name: row.ColorName},
		Size:          FacetValue{ID: row.SizeID, Name: row.SizeName},
		UnitPrice:     row.UnitPrice,
		StockQuantity: row.StockQuantity,
		InStock:       row.StockQuantity > 0,
	})
}

// groupRows folds join rows into per-product groups, preserving the first
// appearance order the query produced.
func groupRows(rows []joinedRow) []*productGroup {
	var groups []*productGroup
	byProduct := make(map[uuid.UUID]*productGroup)
	for _, row := range rows {
		group, ok := byProduct[row.ProductID]
		if !ok {
			group = newGroup(row)
			byProduct[row.ProductID] = group
			groups = append(groups, group)
		}
		group.add(row)
	}
	for _, group := range groups {
		ranks := group.sizeRank
		sort.SliceStable(group.summary.AvailableSizes, func(i, j int) bool {
			return ranks[group.summary.AvailableSizes[i].ID] < ranks[group.summary.AvailableSizes[j].ID]
		})
	}
	return groups
}

func sortSummaries(summaries []ProductSummary, minPrices map[uuid.UUID]decimal.Decimal, spec SortSpec) {
	less := func(a, b ProductSummary) int {
		switch spec.Field {
		case SortByName:
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case SortByBasePrice:
			return a.BasePrice.Cmp(b.BasePrice)
		case SortByMinPrice:
			return minPrices[a.ProductID].Cmp(minPrices[b.ProductID])
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		cmp := less(summaries[i], summaries[j])
		if cmp == 0 {
			// Deterministic tie-break regardless of direction.
			return summaries[i].ProductID.String() < summaries[j].ProductID.String()
		}
		if spec.Direction == SortDesc {
			return cmp > 0
		}
		return cmp < 0
	})
}
