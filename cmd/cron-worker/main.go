package main

import (
	"cmp"
	"context"
	"errors"
	"flag"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/fulfillment-backend/internal/cron"
	"github.com/angelmondragon/fulfillment-backend/internal/loyalty"
	"github.com/angelmondragon/fulfillment-backend/pkg/bootstrap"
	"github.com/angelmondragon/fulfillment-backend/pkg/config"
	"github.com/angelmondragon/fulfillment-backend/pkg/db"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
	"github.com/angelmondragon/fulfillment-backend/pkg/metrics"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox"
	"github.com/angelmondragon/fulfillment-backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run every job a single time and exit")
	flag.Parse()

	rt := bootstrap.Init("cron-worker")
	cfg, logg := rt.Config, rt.Logger

	ctx, stop := rt.SignalContext()
	defer stop()
	defer rt.Close(ctx)

	service, err := buildService(cfg, logg, rt.Database(ctx), rt.Redis(ctx))
	if err != nil {
		rt.Fatal(ctx, "cron.service_invalid", err)
	}

	if *once {
		if err := service.RunOnce(ctx); err != nil {
			rt.Fatal(ctx, "cron.run_once_failed", err)
		}
		return
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.Metrics.Addr, prometheus.DefaultGatherer, logg); err != nil {
			logg.Error(ctx, "metrics.listener_stopped", err)
		}
	}()

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Fatal(ctx, "cron.worker_failed", err)
	}
}

func buildService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Service, error) {
	conn := dbClient.DB()
	outboxRepo := outbox.NewRepository(conn)
	loyaltyRepo := loyalty.NewRepository(conn)

	loyaltyService, err := loyalty.NewService(
		dbClient,
		loyaltyRepo,
		outbox.NewService(outboxRepo, logg),
		metrics.NewLoyaltyMetrics(prometheus.DefaultRegisterer),
		logg,
	)
	if err != nil {
		return nil, err
	}

	reconcile, err := cron.NewLoyaltyReconcileJob(cron.LoyaltyReconcileJobParams{
		Logger:  logg,
		Orders:  loyaltyRepo,
		Loyalty: loyaltyService,
		Grace:   cfg.Loyalty.ReconcileGrace,
		Batch:   cfg.Loyalty.ReconcileBatch,
	})
	if err != nil {
		return nil, err
	}

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:       logg,
		Events:       outboxRepo,
		DeadLetters:  outbox.NewDLQRepository(conn),
		Retention:    cfg.Outbox.Retention,
		DLQRetention: cfg.Outbox.DLQRetention,
		Batch:        cfg.Outbox.PruneBatch,
	})
	if err != nil {
		return nil, err
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron:"+cmp.Or(cfg.App.Env, "local")), cfg.Cron.LockTTL)
	if err != nil {
		return nil, err
	}

	return cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   cron.NewRegistry(reconcile, retention),
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
}
