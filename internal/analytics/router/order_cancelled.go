package router

import (
	"context"
	"fmt"

	"github.com/modaro-shop/modaro-backend/internal/analytics/types"
	analyticswriter "github.com/modaro-shop/modaro-backend/internal/analytics/writer"
	"github.com/modaro-shop/modaro-backend/pkg/logger"
	"github.com/modaro-shop/modaro-backend/pkg/outbox/payloads"
)

type orderCancelledHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newOrderCancelledHandler(writer Writer, logg *logger.Logger) Handler {
	return &orderCancelledHandler{writer: writer, logg: logg}
}

func (h *orderCancelledHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.OrderCancelledEvent)
	if !ok {
		return fmt.Errorf("invalid payload for order_cancelled")
	}

	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type": envelope.EventType,
		"order_id":   event.OrderID,
		"user_id":    event.UserID,
	})

	row, err := buildOrderCancelledRow(envelope, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build order event row", err)
		return err
	}

	if err := h.writer.InsertOrderEvent(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert order event row", err)
		return err
	}

	h.logg.Info(logCtx, "order_cancelled handler inserted order event row")
	return nil
}

func buildOrderCancelledRow(envelope types.Envelope, event *payloads.OrderCancelledEvent) (types.OrderEventRow, error) {
	releasedJSON, err := analyticswriter.EncodeJSON(event.ReleasedItems)
	if err != nil {
		return types.OrderEventRow{}, fmt.Errorf("encode released items json: %w", err)
	}
	payloadJSON, err := analyticswriter.EncodeJSON(event)
	if err != nil {
		return types.OrderEventRow{}, fmt.Errorf("encode payload json: %w", err)
	}

	occurred := event.CancelledAt
	if occurred.IsZero() {
		occurred = envelope.OccurredAt
	}

	return types.OrderEventRow{
		EventID:       envelope.EventID,
		EventType:     string(envelope.EventType),
		OccurredAt:    occurred.UTC(),
		OrderID:       event.OrderID.String(),
		UserID:        stringPtr(event.UserID.String()),
		CancelReason:  stringPtr(event.Reason),
		ReleasedItems: releasedJSON,
		Payload:       payloadJSON,
	}, nil
}
