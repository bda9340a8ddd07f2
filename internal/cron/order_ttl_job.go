package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/modaro-shop/modaro-backend/internal/orders"
	"github.com/modaro-shop/modaro-backend/pkg/db/models"
	pkgerrors "github.com/modaro-shop/modaro-backend/pkg/errors"
	"github.com/modaro-shop/modaro-backend/pkg/logger"
)

const (
	defaultPendingTTL  = 24 * time.Hour
	defaultSweepLimit  = 200
	expiredOrderReason = "payment window expired"
)

// orderSweeper is the slice of the orders service the TTL job needs.
type orderSweeper interface {
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	Cancel(ctx context.Context, input orders.CancelOrderInput) (*models.Order, error)
}

// OrderTTLJobParams configure the pending-order sweep.
type OrderTTLJobParams struct {
	Logger     *logger.Logger
	Orders     orderSweeper
	PendingTTL time.Duration
	SweepLimit int
}

// NewOrderTTLJob builds the job that cancels orders still awaiting payment
// past the TTL. Cancellation goes through the regular order path, so stock
// comes back and the orders.cancelled event fires exactly as if the user
// had cancelled.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.PendingTTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	limit := params.SweepLimit
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	return &orderTTLJob{
		logg:  params.Logger,
		sweep: params.Orders,
		ttl:   ttl,
		limit: limit,
		now:   time.Now,
	}, nil
}

type orderTTLJob struct {
	logg  *logger.Logger
	sweep orderSweeper
	ttl   time.Duration
	limit int
	now   func() time.Time
}

func (j *orderTTLJob) Name() string { return "order-ttl" }

func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.sweep.ListStalePending(ctx, cutoff, j.limit)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}

	reason := expiredOrderReason
	cancelled := 0
	var errs error
	for _, order := range stale {
		_, err := j.sweep.Cancel(ctx, orders.CancelOrderInput{OrderID: order.ID, Reason: &reason})
		if err != nil {
			// Someone cancelled or advanced the order between the listing
			// and the sweep. Not this job's problem.
			if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("cancel order %s: %w", order.ID, err))
			continue
		}
		cancelled++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"stale":     len(stale),
		"cancelled": cancelled,
	})
	j.logg.Info(logCtx, "pending order sweep complete")
	return errs
}
