package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/fulfillment-backend/pkg/config"
)

// CORS lets the configured storefront origins call the API with bearer
// tokens and read the headers clients act on: the request id for support,
// the replay marker on idempotent retries and Retry-After on throttling.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			idempotencyHeader,
			requestIDHeader,
		},
		ExposedHeaders:   []string{requestIDHeader, replayHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           int(cfg.MaxAge.Seconds()),
	})
}
