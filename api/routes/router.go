package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/fulfillment-backend/api/controllers"
	"github.com/angelmondragon/fulfillment-backend/api/middleware"
	checkoutsvc "github.com/angelmondragon/fulfillment-backend/internal/checkout"
	"github.com/angelmondragon/fulfillment-backend/internal/coupons"
	"github.com/angelmondragon/fulfillment-backend/internal/delivery"
	"github.com/angelmondragon/fulfillment-backend/internal/fulfillment"
	"github.com/angelmondragon/fulfillment-backend/internal/loyalty"
	"github.com/angelmondragon/fulfillment-backend/pkg/config"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
	"github.com/angelmondragon/fulfillment-backend/pkg/metrics"
)

// Deps is everything the HTTP surface needs. Nil services answer 500 and a
// nil Gatherer leaves /metrics unmounted.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger
	Tokens middleware.TokenVerifier

	DB    controllers.Pinger
	Redis controllers.Pinger

	RateLimiter middleware.RateLimitStore
	Idempotency middleware.IdempotencyStore

	Checkout    checkoutsvc.Service
	Fulfillment fulfillment.Service
	Delivery    delivery.Service
	Coupons     coupons.Service
	Loyalty     loyalty.Service

	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, d.HTTPMetrics),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"db":    d.DB,
			"redis": d.Redis,
		}, logg))
	})

	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(d.Gatherer))
	}

	checkoutPolicy := middleware.NewRateLimitPolicy("checkout", cfg.RateLimit.CheckoutWindow, cfg.RateLimit.CheckoutLimit)
	idem := middleware.Idempotency(d.Idempotency, logg)
	customer := middleware.RequireRole(logg, enums.ActorRoleCustomer)
	vendor := middleware.RequireRole(logg, enums.ActorRoleVendor)
	courier := middleware.RequireRole(logg, enums.ActorRoleDelivery)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(d.Tokens, logg))

		// Idempotency runs on the matched route so it sees the full pattern.
		r.With(customer, middleware.RateLimit(checkoutPolicy, d.RateLimiter, logg), idem).
			Post("/checkout", controllers.Checkout(d.Checkout, logg))
		r.With(customer).Post("/calculate-delivery-preview", controllers.DeliveryPreview(d.Checkout, logg))

		r.Get("/orders/{orderId}", controllers.GetOrder(d.Fulfillment, logg))
		r.With(vendor, idem).Patch("/orders/{orderId}/items/{itemId}", controllers.DecideOrderItem(d.Fulfillment, logg))
		r.With(customer, idem).Post("/orders/{orderId}/decision", controllers.DecideOrder(d.Fulfillment, logg))
		r.With(courier, idem).Post("/delivery-companies/{id}/accept-order/{orderId}", controllers.AcceptDeliveryOrder(d.Delivery, logg))
		r.With(courier).Get("/delivery-companies/{id}/requested-orders", controllers.RequestedOrders(d.Delivery, logg))

		r.With(vendor, idem).Post("/coupons", controllers.CreateCoupon(d.Coupons, logg))
		r.With(vendor).Patch("/coupons/{id}", controllers.ToggleCoupon(d.Coupons, logg))
		r.With(customer).Post("/coupons/validate", controllers.ValidateCoupon(d.Checkout, logg))

		r.With(customer).Get("/loyalty", controllers.LoyaltyBalance(d.Loyalty, logg))
	})

	return r
}
