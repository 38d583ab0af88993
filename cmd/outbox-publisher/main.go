package main

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/fulfillment-backend/pkg/bootstrap"
	"github.com/angelmondragon/fulfillment-backend/pkg/metrics"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox/registry"
	"github.com/angelmondragon/fulfillment-backend/pkg/pubsub"
)

func main() {
	rt := bootstrap.Init("outbox-publisher")
	cfg, logg := rt.Config, rt.Logger

	ctx, stop := rt.SignalContext()
	defer stop()
	defer rt.Close(ctx)

	dbClient := rt.Database(ctx)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		rt.Fatal(ctx, "outbox.pubsub_unavailable", err)
	}
	rt.OnClose("pubsub", pubsubClient.Close)

	events, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		rt.Fatal(ctx, "outbox.registry_invalid", err)
	}

	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      events,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		rt.Fatal(ctx, "outbox.publisher_invalid", err)
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.Metrics.Addr, prometheus.DefaultGatherer, logg); err != nil {
			logg.Error(ctx, "metrics.listener_stopped", err)
		}
	}()

	logg.Info(logg.WithField(ctx, "topics", events.Topics()), "outbox.publisher_started")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Fatal(ctx, "outbox.publisher_failed", err)
	}
	logg.Info(ctx, "outbox.publisher_stopped")
}
