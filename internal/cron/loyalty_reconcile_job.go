package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/fulfillment-backend/internal/loyalty"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
)

const (
	loyaltyReconcileGrace = 5 * time.Minute
	loyaltyReconcileBatch = 100
)

// LoyaltyReconcileJobParams configure the loyalty reconciliation job.
type LoyaltyReconcileJobParams struct {
	Logger  *logger.Logger
	Orders  unappliedOrderLister
	Loyalty orderPointsApplier
	Grace   time.Duration
	Batch   int
}

type unappliedOrderLister interface {
	ListUnapplied(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

type orderPointsApplier interface {
	ApplyOrder(ctx context.Context, orderID uuid.UUID) (*loyalty.Outcome, error)
}

// NewLoyaltyReconcileJob builds the job that applies loyalty points for
// orders whose post-commit step never ran or failed.
func NewLoyaltyReconcileJob(params LoyaltyReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("unapplied order lister required")
	}
	if params.Loyalty == nil {
		return nil, fmt.Errorf("loyalty service required")
	}
	grace := params.Grace
	if grace <= 0 {
		grace = loyaltyReconcileGrace
	}
	batch := params.Batch
	if batch <= 0 {
		batch = loyaltyReconcileBatch
	}
	return &loyaltyReconcileJob{
		logg:    params.Logger,
		orders:  params.Orders,
		loyalty: params.Loyalty,
		grace:   grace,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type loyaltyReconcileJob struct {
	logg    *logger.Logger
	orders  unappliedOrderLister
	loyalty orderPointsApplier
	grace   time.Duration
	batch   int
	now     func() time.Time
}

func (j *loyaltyReconcileJob) Name() string { return "loyalty-reconcile" }

// Run applies one batch. Each order is its own transaction, so one failure
// does not stop the rest.
func (j *loyaltyReconcileJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.grace)
	ids, err := j.orders.ListUnapplied(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("list unapplied orders: %w", err)
	}

	var (
		errs    error
		applied int
	)
	for _, id := range ids {
		if ctx.Err() != nil {
			return multierr.Append(errs, ctx.Err())
		}
		out, applyErr := j.loyalty.ApplyOrder(ctx, id)
		if applyErr != nil {
			j.logg.Error(j.logg.WithOrderID(ctx, id.String()), "loyalty.reconcile_failed", applyErr)
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", id, applyErr))
			continue
		}
		if out != nil && !out.AlreadyApplied {
			applied++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"candidates": len(ids),
		"applied":    applied,
		"failed":     len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "loyalty reconcile complete")
	return errs
}
