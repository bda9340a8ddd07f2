package router

import (
	"context"
	"fmt"

	"github.com/modaro-shop/modaro-backend/internal/analytics/types"
	analyticswriter "github.com/modaro-shop/modaro-backend/internal/analytics/writer"
	"github.com/modaro-shop/modaro-backend/pkg/logger"
	"github.com/modaro-shop/modaro-backend/pkg/outbox/payloads"
)

type lowStockHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newLowStockHandler(writer Writer, logg *logger.Logger) Handler {
	return &lowStockHandler{writer: writer, logg: logg}
}

func (h *lowStockHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.LowStockEvent)
	if !ok {
		return fmt.Errorf("invalid payload for low_stock")
	}

	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type": envelope.EventType,
		"variant_id": event.VariantID,
		"remaining":  event.RemainingQuantity,
	})

	payloadJSON, err := analyticswriter.EncodeJSON(event)
	if err != nil {
		h.logg.Error(logCtx, "failed to encode payload json", err)
		return fmt.Errorf("encode payload json: %w", err)
	}

	row := types.StockEventRow{
		EventID:           envelope.EventID,
		EventType:         string(envelope.EventType),
		OccurredAt:        envelope.OccurredAt,
		VariantID:         event.VariantID.String(),
		ProductID:         stringPtr(event.ProductID.String()),
		SKU:               stringPtr(event.SKU),
		RemainingQuantity: int64Ptr(int64(event.RemainingQuantity)),
		Threshold:         int64Ptr(int64(event.Threshold)),
		Payload:           payloadJSON,
	}

	if err := h.writer.InsertStockEvent(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert stock event row", err)
		return err
	}

	h.logg.Info(logCtx, "low_stock handler inserted stock event row")
	return nil
}
