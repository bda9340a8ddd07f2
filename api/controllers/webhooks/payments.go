package webhooks

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/modaro-shop/modaro-backend/api/responses"
	"github.com/modaro-shop/modaro-backend/api/validators"
	internalorders "github.com/modaro-shop/modaro-backend/internal/orders"
	"github.com/modaro-shop/modaro-backend/pkg/config"
	"github.com/modaro-shop/modaro-backend/pkg/enums"
	pkgerrors "github.com/modaro-shop/modaro-backend/pkg/errors"
	"github.com/modaro-shop/modaro-backend/pkg/logger"
	"github.com/modaro-shop/modaro-backend/pkg/security"
)

// ServiceKeyHeader carries the shared secret the payment provider
// presents on every webhook call.
const ServiceKeyHeader = "X-Modaro-Service-Key"

// OrderPaymentService applies provider payment updates to orders.
type OrderPaymentService interface {
	UpdatePaymentStatus(ctx context.Context, input internalorders.UpdatePaymentStatusInput) error
}

type paymentEventRequest struct {
	OrderID     string  `json:"order_id" validate:"required,uuid"`
	Status      string  `json:"status" validate:"required"`
	ProviderRef *string `json:"provider_ref,omitempty" validate:"omitempty,max=255"`
}

// PaymentEvent ingests payment status notifications from the payment
// provider. Delivery is at-least-once, so replays of an already-applied
// status return success without touching the order again.
func PaymentEvent(svc OrderPaymentService, cfg config.ServiceKeyConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		if err := verifyServiceKey(r, cfg); err != nil {
			if logg != nil {
				logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "payment webhook rejected")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req paymentEventRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		status, err := enums.ParsePaymentStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment status").WithDetails(map[string]any{"status": req.Status}))
			return
		}

		if err := svc.UpdatePaymentStatus(r.Context(), internalorders.UpdatePaymentStatusInput{
			OrderID:     orderID,
			Status:      status,
			ProviderRef: req.ProviderRef,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "accepted"})
	}
}

func verifyServiceKey(r *http.Request, cfg config.ServiceKeyConfig) error {
	presented := strings.TrimSpace(r.Header.Get(ServiceKeyHeader))
	if presented == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing service key")
	}
	if cfg.WebhookKeyHash == "" {
		return pkgerrors.New(pkgerrors.CodeInternal, "webhook key not configured")
	}
	ok, err := security.VerifyServiceKey(presented, cfg.WebhookKeyHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "service key verification failed")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid service key")
	}
	return nil
}
