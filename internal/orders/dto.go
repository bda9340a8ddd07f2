package orders

import (
	"strings"

	"github.com/google/uuid"

	"github.com/modaro-shop/modaro-backend/pkg/db/models"
	"github.com/modaro-shop/modaro-backend/pkg/enums"
	pkgerrors "github.com/modaro-shop/modaro-backend/pkg/errors"
)

// CreateOrderItemInput is one requested line. Prices never come from the
// caller; the service snapshots them off the variant row.
type CreateOrderItemInput struct {
	VariantID uuid.UUID `json:"variant_id"`
	Quantity  int       `json:"quantity"`
}

// CreateOrderInput carries everything needed to place an order.
type CreateOrderInput struct {
	UserID             uuid.UUID
	ShippingAddressRef string
	Items              []CreateOrderItemInput
}

// Validate enforces the request-shape rules before any transaction opens.
func (in CreateOrderInput) Validate(maxItems int) error {
	if in.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if strings.TrimSpace(in.ShippingAddressRef) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}
	if len(in.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	if maxItems > 0 && len(in.Items) > maxItems {
		return pkgerrors.New(pkgerrors.CodeValidation, "too many items").
			WithDetails(map[string]any{"max_items": maxItems, "requested": len(in.Items)})
	}
	seen := make(map[uuid.UUID]bool, len(in.Items))
	for _, item := range in.Items {
		if item.VariantID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "variant id required on every item")
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive").
				WithDetails(map[string]any{"variant_id": item.VariantID.String()})
		}
		if seen[item.VariantID] {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate variant in order").
				WithDetails(map[string]any{"variant_id": item.VariantID.String()})
		}
		seen[item.VariantID] = true
	}
	return nil
}

// CancelOrderInput requests a cancellation. Reason is optional free text.
type CancelOrderInput struct {
	OrderID uuid.UUID
	Reason  *string
}

// UpdateStatusInput moves an order one step forward in its lifecycle.
type UpdateStatusInput struct {
	OrderID    uuid.UUID
	NextStatus enums.OrderStatus
}

// UpdatePaymentStatusInput is the payment webhook intake.
type UpdatePaymentStatusInput struct {
	OrderID     uuid.UUID
	Status      enums.PaymentStatus
	ProviderRef *string
}

// OrderPage is one page of a user's orders, newest first.
type OrderPage struct {
	Orders   []models.Order `json:"orders"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}
