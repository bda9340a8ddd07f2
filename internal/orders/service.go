package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/modaro-shop/modaro-backend/pkg/db"
	"github.com/modaro-shop/modaro-backend/pkg/db/models"
	"github.com/modaro-shop/modaro-backend/pkg/enums"
	pkgerrors "github.com/modaro-shop/modaro-backend/pkg/errors"
	"github.com/modaro-shop/modaro-backend/pkg/logger"
	"github.com/modaro-shop/modaro-backend/pkg/metrics"
	"github.com/modaro-shop/modaro-backend/pkg/outbox"
	"github.com/modaro-shop/modaro-backend/pkg/outbox/payloads"
	"github.com/modaro-shop/modaro-backend/pkg/pagination"
)

const cancelReasonUnspecified = "unspecified"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// stockAdjuster is the slice of the inventory service the orchestrator
// needs: reserve and release inside its transaction, plus the price
// snapshot lookup.
type stockAdjuster interface {
	Reserve(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, quantity int, orderID uuid.UUID) (int, error)
	Release(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, quantity int, orderID uuid.UUID) (int, error)
	FindVariant(ctx context.Context, tx *gorm.DB, variantID uuid.UUID) (*models.ProductVariant, error)
}

// ServiceParams configure the order orchestrator.
type ServiceParams struct {
	Repo             *Repository
	TxRunner         txRunner
	Stock            stockAdjuster
	Outbox           outboxPublisher
	Logger           *logger.Logger
	Metrics          *metrics.OrderMetrics
	MaxItemsPerOrder int
}

// Service orchestrates the order lifecycle. Creation and cancellation each
// run in a single transaction shared with the stock adjuster, so an order is
// either fully placed with all stock reserved or not visible at all.
type Service struct {
	repo     *Repository
	tx       txRunner
	stock    stockAdjuster
	outbox   outboxPublisher
	logg     *logger.Logger
	metrics  *metrics.OrderMetrics
	maxItems int
}

// NewService builds the order orchestrator.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock adjuster required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		repo:     params.Repo,
		tx:       params.TxRunner,
		stock:    params.Stock,
		outbox:   params.Outbox,
		logg:     params.Logger,
		metrics:  params.Metrics,
		maxItems: params.MaxItemsPerOrder,
	}, nil
}

// Create places an order: price snapshots, stock reservations, order and
// item rows and the orders.created event all commit together or not at all.
// The first item that cannot be reserved aborts the whole order and its
// error names that variant.
func (s *Service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := input.Validate(s.maxItems); err != nil {
		return nil, err
	}

	start := time.Now()
	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order := &models.Order{
			ID:                 uuid.New(),
			UserID:             input.UserID,
			ShippingAddressRef: input.ShippingAddressRef,
			Status:             enums.OrderStatusPending,
			PaymentStatus:      enums.PaymentStatusPending,
			TotalAmount:        decimal.Zero,
		}

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(input.Items))
		for _, line := range input.Items {
			variant, err := s.stock.FindVariant(ctx, tx, line.VariantID)
			if err != nil {
				return err
			}
			lineTotal := variant.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			total = total.Add(lineTotal)
			items = append(items, models.OrderItem{
				ID:               uuid.New(),
				OrderID:          order.ID,
				VariantID:        variant.ID,
				SKU:              variant.SKU,
				Quantity:         line.Quantity,
				UnitPriceAtOrder: variant.UnitPrice,
				LineTotal:        lineTotal,
			})
		}
		order.TotalAmount = total

		// The order row goes in before the reservations so movement rows
		// can reference it. Rollback discards all of it together.
		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}
		for _, item := range items {
			if _, err := s.stock.Reserve(ctx, tx, item.VariantID, item.Quantity, order.ID); err != nil {
				return err
			}
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    time.Now().UTC(),
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				UserID:      order.UserID,
				TotalAmount: order.TotalAmount,
				ItemCount:   len(items),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		order.Items = items
		created = order
		return nil
	})
	if err != nil {
		return nil, translateStoreError(err)
	}

	s.metrics.IncCreated()
	s.metrics.ObserveCreateDuration(time.Since(start))

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":   created.ID.String(),
		"user_id":    created.UserID.String(),
		"item_count": len(created.Items),
	})
	s.logg.Info(logCtx, "order created")
	return created, nil
}

// Cancel voids an order and returns its reserved stock. The guarded status
// flip runs before any release, and both share one transaction, so two
// concurrent cancels cannot both release: the loser fails the guard and the
// whole transaction rolls back.
func (s *Service) Cancel(ctx context.Context, input CancelOrderInput) (*models.Order, error) {
	var cancelled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		flipped, err := repo.MarkCancelled(ctx, order.ID, input.Reason, now)
		if err != nil {
			return err
		}
		if !flipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be cancelled").
				WithDetails(map[string]any{
					"order_id": order.ID.String(),
					"status":   order.Status.String(),
				})
		}

		released := make([]payloads.ReleasedItem, 0, len(order.Items))
		var releaseErrs error
		for _, item := range order.Items {
			if _, err := s.stock.Release(ctx, tx, item.VariantID, item.Quantity, order.ID); err != nil {
				if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
					// The variant vanished after the order was placed.
					// Cancellation still commits; the skip is recorded.
					releaseErrs = multierr.Append(releaseErrs, err)
					continue
				}
				return err
			}
			released = append(released, payloads.ReleasedItem{
				VariantID: item.VariantID,
				Quantity:  item.Quantity,
			})
		}
		if releaseErrs != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"order_id": order.ID.String(),
				"skipped":  len(order.Items) - len(released),
				"error":    releaseErrs.Error(),
			})
			s.logg.Warn(logCtx, "some reservations could not be released")
		}

		reason := ""
		if input.Reason != nil {
			reason = *input.Reason
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.OrderCancelledEvent{
				OrderID:       order.ID,
				UserID:        order.UserID,
				Reason:        reason,
				CancelledAt:   now,
				ReleasedItems: released,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		order.Status = enums.OrderStatusCancelled
		order.CancelReason = input.Reason
		order.CancelledAt = &now
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, translateStoreError(err)
	}

	reasonLabel := cancelReasonUnspecified
	if input.Reason != nil && *input.Reason != "" {
		reasonLabel = *input.Reason
	}
	s.metrics.IncCancelled(reasonLabel)
	return cancelled, nil
}

// statusRank orders the forward-only lifecycle. Cancelled has no rank: it is
// only reachable through Cancel, which compensates stock.
var statusRank = map[enums.OrderStatus]int{
	enums.OrderStatusPending:    0,
	enums.OrderStatusProcessing: 1,
	enums.OrderStatusShipped:    2,
	enums.OrderStatusDelivered:  3,
}

// UpdateStatus moves an order forward along the lifecycle
// (pending→processing→shipped→delivered). Steps may be skipped, but any
// backward move, any transition out of a terminal state, and any use of
// cancelled is a state conflict.
func (s *Service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if !input.NextStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"status": input.NextStatus.String()})
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if err := validateTransition(order.Status, input.NextStatus); err != nil {
			return err
		}

		now := time.Now().UTC()
		moved, err := repo.UpdateStatusGuarded(ctx, order.ID, order.Status, input.NextStatus, now)
		if err != nil {
			return err
		}
		if !moved {
			// A concurrent writer beat us to the transition.
			return transitionConflict(order.ID, order.Status, input.NextStatus)
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:    order.ID,
				UserID:     order.UserID,
				FromStatus: order.Status,
				ToStatus:   input.NextStatus,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		order.Status = input.NextStatus
		if input.NextStatus == enums.OrderStatusDelivered {
			order.DeliveredAt = &now
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, translateStoreError(err)
	}
	return updated, nil
}

func validateTransition(from, to enums.OrderStatus) error {
	if from.IsTerminal() {
		return transitionConflict(uuid.Nil, from, to)
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return transitionConflict(uuid.Nil, from, to)
	}
	toRank, ok := statusRank[to]
	if !ok || toRank <= fromRank {
		return transitionConflict(uuid.Nil, from, to)
	}
	return nil
}

func transitionConflict(orderID uuid.UUID, from, to enums.OrderStatus) *pkgerrors.Error {
	details := map[string]any{
		"from": from.String(),
		"to":   to.String(),
	}
	if orderID != uuid.Nil {
		details["order_id"] = orderID.String()
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "invalid status transition").
		WithDetails(details)
}

// paymentTransitions lists the allowed payment_status moves. Replays of the
// current status are accepted as no-ops.
var paymentTransitions = map[enums.PaymentStatus][]enums.PaymentStatus{
	enums.PaymentStatusPending: {enums.PaymentStatusPaid, enums.PaymentStatusFailed},
	enums.PaymentStatusPaid:    {enums.PaymentStatusRefunded},
}

// UpdatePaymentStatus records what the payment collaborator reported. It
// never touches stock or the order status; order-side reactions (like the
// TTL sweep) key off payment_status separately.
func (s *Service) UpdatePaymentStatus(ctx context.Context, input UpdatePaymentStatusInput) error {
	if !input.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status").
			WithDetails(map[string]any{"status": input.Status.String()})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if order.PaymentStatus == input.Status {
			// Webhook replay; nothing to do.
			return nil
		}
		if !paymentTransitionAllowed(order.PaymentStatus, input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "invalid payment status transition").
				WithDetails(map[string]any{
					"order_id": order.ID.String(),
					"from":     order.PaymentStatus.String(),
					"to":       input.Status.String(),
				})
		}

		moved, err := repo.UpdatePaymentStatusGuarded(ctx, order.ID, order.PaymentStatus, input.Status)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment status changed concurrently").
				WithDetails(map[string]any{"order_id": order.ID.String()})
		}

		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id": order.ID.String(),
			"from":     order.PaymentStatus.String(),
			"to":       input.Status.String(),
		})
		s.logg.Info(logCtx, "payment status updated")
		return nil
	})
	return translateStoreError(err)
}

func paymentTransitionAllowed(from, to enums.PaymentStatus) bool {
	for _, allowed := range paymentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Get loads an order with its items.
func (s *Service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.repo.FindByID(ctx, orderID)
}

// ListByUser returns one page of the user's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderPage, error) {
	normalized := params.Normalize()
	rows, total, err := s.repo.ListByUser(ctx, userID, normalized)
	if err != nil {
		return nil, err
	}
	return &OrderPage{
		Orders:   rows,
		Total:    total,
		Page:     normalized.Page,
		PageSize: normalized.PageSize,
	}, nil
}

// ListStalePending returns pending orders past the payment window. The TTL
// sweep feeds these back through Cancel one by one.
func (s *Service) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	return s.repo.FindStalePending(ctx, cutoff, limit)
}

// translateStoreError maps store-level serialization failures onto the
// retryable concurrency code. Coded errors pass through untouched.
func translateStoreError(err error) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	if db.IsSerializationFailure(err) {
		return pkgerrors.Wrap(pkgerrors.CodeConcurrency, err, "storage conflict, retry the request")
	}
	return err
}
