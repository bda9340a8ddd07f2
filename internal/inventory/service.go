package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/modaro-shop/modaro-backend/pkg/db/models"
	"github.com/modaro-shop/modaro-backend/pkg/enums"
	pkgerrors "github.com/modaro-shop/modaro-backend/pkg/errors"
	"github.com/modaro-shop/modaro-backend/pkg/logger"
	"github.com/modaro-shop/modaro-backend/pkg/metrics"
	"github.com/modaro-shop/modaro-backend/pkg/outbox"
	"github.com/modaro-shop/modaro-backend/pkg/outbox/payloads"
	"github.com/modaro-shop/modaro-backend/pkg/pagination"
)

const defaultLowStockThreshold = 10

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// InsufficientStockDetails reports the shortfall so a client can adjust
// quantities without re-querying the catalog.
type InsufficientStockDetails struct {
	VariantID uuid.UUID `json:"variant_id"`
	Available int       `json:"available"`
	Requested int       `json:"requested"`
	Shortfall int       `json:"shortfall"`
}

// MovementPage is one page of the audit trail.
type MovementPage struct {
	Movements []models.StockMovement `json:"movements"`
	Total     int64                  `json:"total"`
	Page      int                    `json:"page"`
	PageSize  int                    `json:"page_size"`
}

// ServiceParams configure the stock adjuster.
type ServiceParams struct {
	Repo              *Repository
	TxRunner          txRunner
	Outbox            outboxPublisher
	Logger            *logger.Logger
	Metrics           *metrics.StockMetrics
	LowStockThreshold int
}

// Service layers named, audited operations over the stock repository.
// Reserve and Release run inside a caller-owned transaction so order
// placement and cancellation stay atomic; Restock and SetAbsolute open
// their own.
type Service struct {
	repo      *Repository
	tx        txRunner
	outbox    outboxPublisher
	logg      *logger.Logger
	metrics   *metrics.StockMetrics
	threshold int
}

// NewService builds the stock adjuster.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	threshold := params.LowStockThreshold
	if threshold <= 0 {
		threshold = defaultLowStockThreshold
	}
	return &Service{
		repo:      params.Repo,
		tx:        params.TxRunner,
		outbox:    params.Outbox,
		logg:      params.Logger,
		metrics:   params.Metrics,
		threshold: threshold,
	}, nil
}

// Reserve atomically decrements stock for an order item. On success it
// records a reserve movement and, when the remaining quantity is at or below
// the threshold, queues a low-stock alert in the same transaction. On
// insufficient stock it returns a coded error carrying the shortfall.
func (s *Service) Reserve(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, quantity int, orderID uuid.UUID) (int, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction required")
	}
	repo := s.repo.WithTx(tx)

	ok, newQty, err := repo.ConditionalDecrement(ctx, variantID, quantity)
	if err != nil {
		return 0, err
	}
	if !ok {
		available, readErr := repo.ReadQuantity(ctx, variantID)
		if readErr != nil {
			return 0, readErr
		}
		s.metrics.IncInsufficient()
		return 0, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(InsufficientStockDetails{
				VariantID: variantID,
				Available: available,
				Requested: quantity,
				Shortfall: quantity - available,
			})
	}

	movement := &models.StockMovement{
		VariantID:     variantID,
		QuantityDelta: -quantity,
		MovementType:  enums.StockMovementReserve,
		OrderID:       &orderID,
	}
	if err := repo.InsertMovement(ctx, movement); err != nil {
		return 0, err
	}
	s.metrics.IncMovement(enums.StockMovementReserve.String())

	if newQty <= s.threshold {
		if err := s.emitLowStock(ctx, tx, repo, variantID, newQty); err != nil {
			return 0, err
		}
	}
	return newQty, nil
}

// Release returns reserved stock during cancellation. The caller is
// responsible for invoking it exactly once per order item; no deduplication
// happens here.
func (s *Service) Release(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, quantity int, orderID uuid.UUID) (int, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction required")
	}
	repo := s.repo.WithTx(tx)

	newQty, err := repo.Increment(ctx, variantID, quantity)
	if err != nil {
		return 0, err
	}
	movement := &models.StockMovement{
		VariantID:     variantID,
		QuantityDelta: quantity,
		MovementType:  enums.StockMovementRelease,
		OrderID:       &orderID,
	}
	if err := repo.InsertMovement(ctx, movement); err != nil {
		return 0, err
	}
	s.metrics.IncMovement(enums.StockMovementRelease.String())
	return newQty, nil
}

// Restock adds inbound supply and records who booked it.
func (s *Service) Restock(ctx context.Context, variantID uuid.UUID, quantity int, actorID *uuid.UUID, note *string) (int, error) {
	var newQty int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		qty, err := repo.Increment(ctx, variantID, quantity)
		if err != nil {
			return err
		}
		newQty = qty
		movement := &models.StockMovement{
			VariantID:     variantID,
			QuantityDelta: quantity,
			MovementType:  enums.StockMovementRestock,
			ActorID:       actorID,
			Note:          note,
		}
		return repo.InsertMovement(ctx, movement)
	})
	if err != nil {
		return 0, err
	}
	s.metrics.IncMovement(enums.StockMovementRestock.String())
	return newQty, nil
}

// SetAbsolute overrides the counter and records the correction delta.
func (s *Service) SetAbsolute(ctx context.Context, variantID uuid.UUID, quantity int, actorID *uuid.UUID, note *string) (int, error) {
	var newQty int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.ReadQuantity(ctx, variantID)
		if err != nil {
			return err
		}
		qty, err := repo.SetAbsolute(ctx, variantID, quantity)
		if err != nil {
			return err
		}
		newQty = qty
		movement := &models.StockMovement{
			VariantID:     variantID,
			QuantityDelta: quantity - current,
			MovementType:  enums.StockMovementCorrection,
			ActorID:       actorID,
			Note:          note,
		}
		return repo.InsertMovement(ctx, movement)
	})
	if err != nil {
		return 0, err
	}
	s.metrics.IncMovement(enums.StockMovementCorrection.String())
	return newQty, nil
}

// Read returns the current counter. Callers must not treat it as a hold.
func (s *Service) Read(ctx context.Context, variantID uuid.UUID) (int, error) {
	return s.repo.ReadQuantity(ctx, variantID)
}

// FindVariant loads the active variant inside the caller's transaction.
func (s *Service) FindVariant(ctx context.Context, tx *gorm.DB, variantID uuid.UUID) (*models.ProductVariant, error) {
	if tx == nil {
		return s.repo.FindVariant(ctx, variantID)
	}
	return s.repo.WithTx(tx).FindVariant(ctx, variantID)
}

// ListMovements returns a page of the audit trail, newest first.
func (s *Service) ListMovements(ctx context.Context, variantID uuid.UUID, params pagination.Params) (*MovementPage, error) {
	normalized := params.Normalize()
	rows, total, err := s.repo.ListMovements(ctx, variantID, normalized)
	if err != nil {
		return nil, err
	}
	return &MovementPage{
		Movements: rows,
		Total:     total,
		Page:      normalized.Page,
		PageSize:  normalized.PageSize,
	}, nil
}

func (s *Service) emitLowStock(ctx context.Context, tx *gorm.DB, repo *Repository, variantID uuid.UUID, remaining int) error {
	variant, err := repo.FindVariant(ctx, variantID)
	if err != nil {
		return err
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventLowStock,
		AggregateType: enums.AggregateVariant,
		AggregateID:   variantID,
		Version:       1,
		OccurredAt:    time.Now().UTC(),
		Data: payloads.LowStockEvent{
			VariantID:         variantID,
			ProductID:         variant.ProductID,
			SKU:               variant.SKU,
			RemainingQuantity: remaining,
			Threshold:         s.threshold,
		},
	}
	if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
		return err
	}
	s.metrics.IncLowStockAlert()

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"variant_id": variantID.String(),
		"remaining":  remaining,
		"threshold":  s.threshold,
	})
	s.logg.Warn(logCtx, "variant stock at or below threshold")
	return nil
}
