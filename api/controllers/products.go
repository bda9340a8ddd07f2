package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/modaro-shop/modaro-backend/api/responses"
	"github.com/modaro-shop/modaro-backend/api/validators"
	"github.com/modaro-shop/modaro-backend/internal/catalog"
	pkgerrors "github.com/modaro-shop/modaro-backend/pkg/errors"
	"github.com/modaro-shop/modaro-backend/pkg/logger"
	"github.com/modaro-shop/modaro-backend/pkg/pagination"
)

// CatalogService is the slice of the catalog service the product
// handlers need.
type CatalogService interface {
	ListProducts(ctx context.Context, filters catalog.ListFilters, params pagination.Params, sortSpec catalog.SortSpec) (*catalog.ListResult, error)
	GetProductDetail(ctx context.Context, productID uuid.UUID) (*catalog.ProductDetail, error)
}

// ListProducts serves the public catalog listing with filters, sorting and
// page pagination.
func ListProducts(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		params, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := buildCatalogFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sortSpec := catalog.SortSpec{
			Field:     catalog.SortField(strings.TrimSpace(r.URL.Query().Get("sort"))),
			Direction: catalog.SortDirection(strings.TrimSpace(r.URL.Query().Get("order"))),
		}

		result, err := svc.ListProducts(r.Context(), filters, params, sortSpec)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetProduct serves one product detail including out-of-stock variants.
func GetProduct(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := parseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.GetProductDetail(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func buildCatalogFilters(r *http.Request) (catalog.ListFilters, error) {
	filters := catalog.ListFilters{}
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("category_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid category id").WithDetails(map[string]any{"field": "category_id"})
		}
		filters.CategoryID = &id
	}

	if raw := strings.TrimSpace(query.Get("min_price")); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil || price.IsNegative() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid minimum price").WithDetails(map[string]any{"field": "min_price"})
		}
		filters.MinPrice = &price
	}

	if raw := strings.TrimSpace(query.Get("max_price")); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil || price.IsNegative() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid maximum price").WithDetails(map[string]any{"field": "max_price"})
		}
		filters.MaxPrice = &price
	}

	if filters.MinPrice != nil && filters.MaxPrice != nil && filters.MinPrice.GreaterThan(*filters.MaxPrice) {
		return filters, pkgerrors.New(pkgerrors.CodeValidation, "minimum price exceeds maximum price")
	}

	if raw := validators.SanitizeString(query.Get("q"), 120); raw != "" {
		filters.SearchText = &raw
	}

	colorIDs, err := parseUUIDList(query["color_id"], "color_id")
	if err != nil {
		return filters, err
	}
	filters.ColorIDs = colorIDs

	sizeIDs, err := parseUUIDList(query["size_id"], "size_id")
	if err != nil {
		return filters, err
	}
	filters.SizeIDs = sizeIDs

	return filters, nil
}

func parseUUIDList(values []string, field string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, raw := range values {
		for _, piece := range strings.Split(raw, ",") {
			piece = strings.TrimSpace(piece)
			if piece == "" {
				continue
			}
			id, err := uuid.Parse(piece)
			if err != nil {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid uuid list").WithDetails(map[string]any{"field": field})
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func parsePageParams(r *http.Request) (pagination.Params, error) {
	page, err := validators.ParseQueryInt(r, "page", 1, 1, 1<<30)
	if err != nil {
		return pagination.Params{}, err
	}
	pageSize, err := validators.ParseQueryInt(r, "page_size", pagination.DefaultPageSize, 1, pagination.MaxPageSize)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Page: page, PageSize: pageSize}, nil
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").WithDetails(map[string]any{"field": name})
	}
	return id, nil
}
