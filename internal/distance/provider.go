package distance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
	"github.com/angelmondragon/fulfillment-backend/pkg/maps"
	"github.com/angelmondragon/fulfillment-backend/pkg/metrics"
)

const (
	defaultTimeout       = 3 * time.Second
	defaultFallbackSpeed = 40.0
	defaultTripFailures  = 5
	defaultCooldown      = 30 * time.Second
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Source says where a Result came from.
type Source string

const (
	SourceExternal    Source = "external"
	SourceHaversine   Source = "haversine"
	SourceUnavailable Source = "unavailable"
)

// Result is the distance and duration between two points.
// DurationMin is nil when no estimate exists.
type Result struct {
	DistanceKm  float64  `json:"distance_km"`
	DurationMin *float64 `json:"duration_min"`
	Source      Source   `json:"source"`
}

// Available reports whether the result carries a usable distance.
func (r Result) Available() bool {
	return r.Source != SourceUnavailable
}

// Unavailable is returned when either endpoint is unknown.
var Unavailable = Result{Source: SourceUnavailable}

// Provider answers point-to-point distance queries. It never fails: callers
// get an external answer, a haversine estimate, or Unavailable.
type Provider interface {
	Distance(ctx context.Context, a, b *Point) Result
}

type matrixClient interface {
	Distance(ctx context.Context, origin, destination maps.LatLng) (*maps.DistanceResult, error)
}

// Options tunes the external call and its fallback.
type Options struct {
	Timeout          time.Duration
	FallbackSpeedKmh float64
	TripFailures     uint32
	Cooldown         time.Duration
}

// Service prefers the Distance Matrix API and falls back to haversine.
type Service struct {
	client        matrixClient
	breaker       *gobreaker.CircuitBreaker[*maps.DistanceResult]
	timeout       time.Duration
	fallbackSpeed float64
	metrics       *metrics.DistanceMetrics
	logg          *logger.Logger
}

// NewService builds the provider. A nil client means haversine only.
func NewService(client matrixClient, opts Options, m *metrics.DistanceMetrics, logg *logger.Logger) (*Service, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.FallbackSpeedKmh <= 0 {
		opts.FallbackSpeedKmh = defaultFallbackSpeed
	}
	if opts.TripFailures == 0 {
		opts.TripFailures = defaultTripFailures
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = defaultCooldown
	}

	trip := opts.TripFailures
	breaker := gobreaker.NewCircuitBreaker[*maps.DistanceResult](gobreaker.Settings{
		Name:        "google-distance-matrix",
		MaxRequests: 1,
		Timeout:     opts.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			ctx := logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			logg.Warn(ctx, "distance.breaker_state_changed")
		},
	})

	return &Service{
		client:        client,
		breaker:       breaker,
		timeout:       opts.Timeout,
		fallbackSpeed: opts.FallbackSpeedKmh,
		metrics:       m,
		logg:          logg,
	}, nil
}

// Distance implements Provider.
func (s *Service) Distance(ctx context.Context, a, b *Point) Result {
	if a == nil || b == nil {
		return Unavailable
	}
	if s.client == nil {
		return s.fallback(ctx, *a, *b, "no_client", nil)
	}

	res, err := s.breaker.Execute(func() (*maps.DistanceResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.client.Distance(callCtx,
			maps.LatLng{Latitude: a.Lat, Longitude: a.Lng},
			maps.LatLng{Latitude: b.Lat, Longitude: b.Lng},
		)
	})
	if err != nil {
		return s.fallback(ctx, *a, *b, fallbackReason(err), err)
	}

	km := float64(res.Meters) / 1000
	minutes := float64(res.Seconds) / 60
	s.metrics.IncLookup(string(SourceExternal))
	return Result{DistanceKm: km, DurationMin: &minutes, Source: SourceExternal}
}

func (s *Service) fallback(ctx context.Context, a, b Point, reason string, cause error) Result {
	km := Haversine(a, b)
	minutes := EstimateMinutes(km, s.fallbackSpeed)
	s.metrics.IncLookup(string(SourceHaversine))
	if cause != nil {
		s.metrics.IncFallback(reason)
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"reason": reason,
			"error":  cause.Error(),
		})
		s.logg.Warn(logCtx, "distance.fallback_haversine")
	}
	return Result{DistanceKm: km, DurationMin: &minutes, Source: SourceHaversine}
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "api_error"
	}
}
