package main

import (
	"cmp"
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/api/routes"
	"github.com/angelmondragon/fulfillment-backend/internal/address"
	"github.com/angelmondragon/fulfillment-backend/internal/cart"
	"github.com/angelmondragon/fulfillment-backend/internal/checkout"
	"github.com/angelmondragon/fulfillment-backend/internal/coupons"
	"github.com/angelmondragon/fulfillment-backend/internal/delivery"
	"github.com/angelmondragon/fulfillment-backend/internal/discounts"
	"github.com/angelmondragon/fulfillment-backend/internal/distance"
	"github.com/angelmondragon/fulfillment-backend/internal/fees"
	"github.com/angelmondragon/fulfillment-backend/internal/fulfillment"
	"github.com/angelmondragon/fulfillment-backend/internal/loyalty"
	"github.com/angelmondragon/fulfillment-backend/internal/orders"
	"github.com/angelmondragon/fulfillment-backend/internal/routing"
	"github.com/angelmondragon/fulfillment-backend/pkg/auth"
	"github.com/angelmondragon/fulfillment-backend/pkg/bootstrap"
	"github.com/angelmondragon/fulfillment-backend/pkg/config"
	"github.com/angelmondragon/fulfillment-backend/pkg/db"
	"github.com/angelmondragon/fulfillment-backend/pkg/idempotency"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
	"github.com/angelmondragon/fulfillment-backend/pkg/maps"
	"github.com/angelmondragon/fulfillment-backend/pkg/metrics"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox"
)

const shutdownTimeout = 15 * time.Second

type services struct {
	checkout    checkout.Service
	fulfillment fulfillment.Service
	delivery    delivery.Service
	coupons     coupons.Service
	loyalty     loyalty.Service
}

func main() {
	rt := bootstrap.Init("api")
	cfg, logg := rt.Config, rt.Logger

	ctx, stop := rt.SignalContext()
	defer stop()
	defer rt.Close(ctx)

	dbClient := rt.Database(ctx)
	redisClient := rt.Redis(ctx)

	idem, err := idempotency.NewManager(redisClient, 0)
	if err != nil {
		rt.Fatal(ctx, "api.idempotency_invalid", err)
	}
	verifier, err := auth.NewVerifier(cfg.JWT)
	if err != nil {
		rt.Fatal(ctx, "api.token_verifier_invalid", err)
	}
	svcs, err := buildServices(cfg, logg, dbClient)
	if err != nil {
		rt.Fatal(ctx, "api.services_invalid", err)
	}

	addr := ":" + cmp.Or(os.Getenv("PORT"), cfg.App.Port)
	ctx = logg.WithField(ctx, "addr", addr)

	router := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		Tokens:      verifier,
		DB:          dbClient,
		Redis:       redisClient,
		RateLimiter: redisClient,
		Idempotency: idem,
		Checkout:    svcs.checkout,
		Fulfillment: svcs.fulfillment,
		Delivery:    svcs.delivery,
		Coupons:     svcs.coupons,
		Loyalty:     svcs.loyalty,
		Gatherer:    prometheus.DefaultGatherer,
		HTTPMetrics: metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "api.listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			rt.Fatal(ctx, "api.server_failed", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api.shutdown_failed", err)
		}
		logg.Info(shutdownCtx, "api.stopped")
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*services, error) {
	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	provider, addresses, addressRepo, err := buildGeo(cfg, logg, conn)
	if err != nil {
		return nil, err
	}

	cartRepo := cart.NewRepository(conn)
	carts, err := cart.NewService(cartRepo)
	if err != nil {
		return nil, err
	}

	deliveryRepo := delivery.NewRepository(conn)
	selector, err := delivery.NewSelector(deliveryRepo)
	if err != nil {
		return nil, err
	}
	deliveryService, err := delivery.NewService(dbClient, deliveryRepo, emitter, logg)
	if err != nil {
		return nil, err
	}

	calculator, err := fees.NewCalculator(cfg.Delivery.BaseFeeDecimal(), cfg.Delivery.PerKmRateDecimal())
	if err != nil {
		return nil, err
	}

	couponRepo := coupons.NewRepository(conn)
	engine, err := discounts.NewEngine(couponRepo)
	if err != nil {
		return nil, err
	}
	couponService, err := coupons.NewService(dbClient, couponRepo, logg)
	if err != nil {
		return nil, err
	}

	loyaltyService, err := loyalty.NewService(
		dbClient,
		loyalty.NewRepository(conn),
		emitter,
		metrics.NewLoyaltyMetrics(prometheus.DefaultRegisterer),
		logg,
	)
	if err != nil {
		return nil, err
	}

	ordersRepo := orders.NewRepository(conn)
	fulfillmentService, err := fulfillment.NewService(dbClient, ordersRepo, emitter, logg)
	if err != nil {
		return nil, err
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Logger:       logg,
		DB:           dbClient,
		Carts:        carts,
		Addresses:    addresses,
		Companies:    selector,
		Planner:      routing.NewPlanner(provider),
		Fees:         calculator,
		Coupons:      engine,
		Loyalty:      loyaltyService,
		Outbox:       emitter,
		CartRepo:     cartRepo,
		AddressRepo:  addressRepo,
		CouponRepo:   couponRepo,
		OrdersRepo:   ordersRepo,
		DeliveryRepo: deliveryRepo,
	})
	if err != nil {
		return nil, err
	}

	return &services{
		checkout:    checkoutService,
		fulfillment: fulfillmentService,
		delivery:    deliveryService,
		coupons:     couponService,
		loyalty:     loyaltyService,
	}, nil
}

// buildGeo wires the Google Maps client into distance and geocoding. Without
// an API key distances fall back to haversine and new addresses must carry
// coordinates.
func buildGeo(cfg *config.Config, logg *logger.Logger, conn *gorm.DB) (distance.Provider, address.Service, *address.Repository, error) {
	opts := distance.Options{
		Timeout:          cfg.GoogleMaps.DistanceTimeout,
		FallbackSpeedKmh: cfg.Delivery.FallbackSpeedKmh,
		TripFailures:     cfg.GoogleMaps.BreakerFailures,
		Cooldown:         cfg.GoogleMaps.BreakerCooldown,
	}
	distanceMetrics := metrics.NewDistanceMetrics(prometheus.DefaultRegisterer)
	addressRepo := address.NewRepository(conn)

	if cfg.GoogleMaps.APIKey == "" {
		logg.Warn(context.Background(), "google maps api key not set, using haversine distances")
		provider, err := distance.NewService(nil, opts, distanceMetrics, logg)
		if err != nil {
			return nil, nil, nil, err
		}
		addresses, err := address.NewService(addressRepo, nil, logg)
		if err != nil {
			return nil, nil, nil, err
		}
		return provider, addresses, addressRepo, nil
	}

	client, err := maps.NewClient(cfg.GoogleMaps.APIKey, maps.WithHTTPClient(&http.Client{Timeout: cfg.GoogleMaps.GeocodeTimeout}))
	if err != nil {
		return nil, nil, nil, err
	}
	provider, err := distance.NewService(client, opts, distanceMetrics, logg)
	if err != nil {
		return nil, nil, nil, err
	}
	addresses, err := address.NewService(addressRepo, client, logg)
	if err != nil {
		return nil, nil, nil, err
	}
	return provider, addresses, addressRepo, nil
}
