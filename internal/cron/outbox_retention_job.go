package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
)

const (
	outboxRetention     = 30 * 24 * time.Hour
	deadLetterRetention = 90 * 24 * time.Hour
	pruneBatch          = 500
)

// OutboxRetentionJobParams configure pruning of the outbox tables.
type OutboxRetentionJobParams struct {
	Logger       *logger.Logger
	Events       publishedPruner
	DeadLetters  deadLetterPruner
	Retention    time.Duration
	DLQRetention time.Duration
	Batch        int
}

type publishedPruner interface {
	PrunePublished(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

type deadLetterPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// NewOutboxRetentionJob builds the job that deletes published events past
// the retention window and dead letters past the longer DLQ window. Rows go
// in batches so no single statement holds locks for long.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Events == nil:
		return nil, errors.New("outbox event pruner required")
	}
	job := &outboxRetentionJob{
		logg:         params.Logger,
		events:       params.Events,
		deadLetters:  params.DeadLetters,
		retention:    orDefault(params.Retention, outboxRetention),
		dlqRetention: orDefault(params.DLQRetention, deadLetterRetention),
		batch:        params.Batch,
		now:          time.Now,
	}
	if job.batch <= 0 {
		job.batch = pruneBatch
	}
	return job, nil
}

type outboxRetentionJob struct {
	logg         *logger.Logger
	events       publishedPruner
	deadLetters  deadLetterPruner
	retention    time.Duration
	dlqRetention time.Duration
	batch        int
	now          func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()

	events, err := j.drain(ctx, func(ctx context.Context) (int64, error) {
		return j.events.PrunePublished(ctx, now.Add(-j.retention), j.batch)
	})
	if err != nil {
		return fmt.Errorf("prune published events: %w", err)
	}

	var deadLetters int64
	if j.deadLetters != nil {
		deadLetters, err = j.drain(ctx, func(ctx context.Context) (int64, error) {
			return j.deadLetters.PruneBefore(ctx, now.Add(-j.dlqRetention), j.batch)
		})
		if err != nil {
			return fmt.Errorf("prune dead letters: %w", err)
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"events_deleted":       events,
		"dead_letters_deleted": deadLetters,
		"retention":            j.retention.String(),
		"dlq_retention":        j.dlqRetention.String(),
	}), "outbox.pruned")
	return nil
}

// drain repeats prune until a batch comes back short.
func (j *outboxRetentionJob) drain(ctx context.Context, prune func(context.Context) (int64, error)) (int64, error) {
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := prune(ctx)
		total += n
		if err != nil {
			return total, err
		}
		if n < int64(j.batch) {
			return total, nil
		}
	}
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
