package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fulfillment-backend/internal/loyalty"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
)

type fakeUnappliedLister struct {
	ids        []uuid.UUID
	err        error
	lastCutoff time.Time
	lastLimit  int
}

func (f *fakeUnappliedLister) ListUnapplied(_ context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	f.lastCutoff = cutoff
	f.lastLimit = limit
	return f.ids, f.err
}

type fakeApplier struct {
	failFor map[uuid.UUID]bool
	applied []uuid.UUID
}

func (f *fakeApplier) ApplyOrder(_ context.Context, orderID uuid.UUID) (*loyalty.Outcome, error) {
	if f.failFor[orderID] {
		return nil, errors.New("lock timeout")
	}
	f.applied = append(f.applied, orderID)
	return &loyalty.Outcome{OrderID: orderID, PointsEarned: 3}, nil
}

func newLoyaltyReconcileJob(t *testing.T, lister *fakeUnappliedLister, applier *fakeApplier) *loyaltyReconcileJob {
	t.Helper()
	jobIface, err := NewLoyaltyReconcileJob(LoyaltyReconcileJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Orders:  lister,
		Loyalty: applier,
	})
	if err != nil {
		t.Fatalf("NewLoyaltyReconcileJob: %v", err)
	}
	job, ok := jobIface.(*loyaltyReconcileJob)
	if !ok {
		t.Fatalf("expected loyaltyReconcileJob, got %T", jobIface)
	}
	return job
}

func TestLoyaltyReconcileJobAppliesEveryCandidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first, second := uuid.New(), uuid.New()
	lister := &fakeUnappliedLister{ids: []uuid.UUID{first, second}}
	applier := &fakeApplier{}
	job := newLoyaltyReconcileJob(t, lister, applier)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-loyaltyReconcileGrace); !lister.lastCutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, lister.lastCutoff)
	}
	if lister.lastLimit != loyaltyReconcileBatch {
		t.Fatalf("expected batch %d, got %d", loyaltyReconcileBatch, lister.lastLimit)
	}
	if len(applier.applied) != 2 {
		t.Fatalf("expected 2 applications, got %d", len(applier.applied))
	}
}

func TestLoyaltyReconcileJobContinuesPastFailures(t *testing.T) {
	bad, good := uuid.New(), uuid.New()
	lister := &fakeUnappliedLister{ids: []uuid.UUID{bad, good}}
	applier := &fakeApplier{failFor: map[uuid.UUID]bool{bad: true}}
	job := newLoyaltyReconcileJob(t, lister, applier)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error for failed order")
	}
	if len(applier.applied) != 1 || applier.applied[0] != good {
		t.Fatalf("expected the healthy order to be applied, got %v", applier.applied)
	}
}

func TestLoyaltyReconcileJobListError(t *testing.T) {
	lister := &fakeUnappliedLister{err: errors.New("db down")}
	job := newLoyaltyReconcileJob(t, lister, &fakeApplier{})

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected list error")
	}
}
