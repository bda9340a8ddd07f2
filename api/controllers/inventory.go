package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/modaro-shop/modaro-backend/api/middleware"
	"github.com/modaro-shop/modaro-backend/api/responses"
	"github.com/modaro-shop/modaro-backend/api/validators"
	"github.com/modaro-shop/modaro-backend/internal/inventory"
	pkgerrors "github.com/modaro-shop/modaro-backend/pkg/errors"
	"github.com/modaro-shop/modaro-backend/pkg/logger"
	"github.com/modaro-shop/modaro-backend/pkg/pagination"
)

type restockRequest struct {
	Quantity int     `json:"quantity" validate:"required,min=1"`
	Note     *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

type setStockRequest struct {
	Quantity int     `json:"quantity" validate:"min=0"`
	Note     *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

type stockResponse struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// InventoryService is the slice of the inventory service the stock
// handlers need.
type InventoryService interface {
	Read(ctx context.Context, variantID uuid.UUID) (int, error)
	ListMovements(ctx context.Context, variantID uuid.UUID, params pagination.Params) (*inventory.MovementPage, error)
	Restock(ctx context.Context, variantID uuid.UUID, quantity int, actorID *uuid.UUID, note *string) (int, error)
	SetAbsolute(ctx context.Context, variantID uuid.UUID, quantity int, actorID *uuid.UUID, note *string) (int, error)
}

// ReadStock returns the current on-hand quantity for a variant.
func ReadStock(svc InventoryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		variantID, err := parseUUIDParam(r, "variantID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quantity, err := svc.Read(r.Context(), variantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stockResponse{VariantID: variantID.String(), Quantity: quantity})
	}
}

// ListStockMovements returns the audit trail for a variant, newest first.
func ListStockMovements(svc InventoryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		variantID, err := parseUUIDParam(r, "variantID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListMovements(r.Context(), variantID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// Restock adds stock to a variant.
func Restock(svc InventoryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		variantID, err := parseUUIDParam(r, "variantID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req restockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, err := actorIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quantity, err := svc.Restock(r.Context(), variantID, req.Quantity, actorID, req.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stockResponse{VariantID: variantID.String(), Quantity: quantity})
	}
}

// SetStock overwrites a variant's on-hand quantity, recording the
// delta as a correction movement.
func SetStock(svc InventoryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		variantID, err := parseUUIDParam(r, "variantID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req setStockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, err := actorIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quantity, err := svc.SetAbsolute(r.Context(), variantID, req.Quantity, actorID, req.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stockResponse{VariantID: variantID.String(), Quantity: quantity})
	}
}

func actorIDFromRequest(r *http.Request) (*uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	actorID, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	return &actorID, nil
}
