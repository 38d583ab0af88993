package distance

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
	"github.com/angelmondragon/fulfillment-backend/pkg/maps"
	"github.com/angelmondragon/fulfillment-backend/pkg/metrics"
)

type stubMatrix struct {
	mu     sync.Mutex
	calls  int
	result *maps.DistanceResult
	err    error
	block  bool
}

func (s *stubMatrix) Distance(ctx context.Context, _, _ maps.LatLng) (*maps.DistanceResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.result, s.err
}

func (s *stubMatrix) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var (
	amman = &Point{Lat: 31.9539, Lng: 35.9106}
	zarqa = &Point{Lat: 32.0728, Lng: 36.0880}
)

func TestHaversineKnownDistance(t *testing.T) {
	// one degree of longitude on the equator
	assert.Equal(t, 111.19, Haversine(Point{Lat: 0, Lng: 0}, Point{Lat: 0, Lng: 1}))
	assert.Equal(t, 0.0, Haversine(*amman, *amman))
	assert.Equal(t, Haversine(*amman, *zarqa), Haversine(*zarqa, *amman))
}

func TestEstimateMinutes(t *testing.T) {
	assert.Equal(t, 30.0, EstimateMinutes(20, 40))
	assert.Equal(t, 0.0, EstimateMinutes(20, 0))
}

func TestServiceUsesExternalResult(t *testing.T) {
	stub := &stubMatrix{result: &maps.DistanceResult{Meters: 23400, Seconds: 1500}}
	svc, err := NewService(stub, Options{}, nil, logger.Nop())
	require.NoError(t, err)

	res := svc.Distance(context.Background(), amman, zarqa)
	assert.Equal(t, SourceExternal, res.Source)
	assert.InDelta(t, 23.4, res.DistanceKm, 1e-9)
	require.NotNil(t, res.DurationMin)
	assert.InDelta(t, 25.0, *res.DurationMin, 1e-9)
}

func TestServiceFallsBackOnAPIFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewDistanceMetrics(reg)
	stub := &stubMatrix{err: errors.New("REQUEST_DENIED")}
	svc, err := NewService(stub, Options{FallbackSpeedKmh: 40}, m, logger.Nop())
	require.NoError(t, err)

	res := svc.Distance(context.Background(), amman, zarqa)
	assert.Equal(t, SourceHaversine, res.Source)
	assert.Equal(t, Haversine(*amman, *zarqa), res.DistanceKm)
	assert.False(t, math.IsNaN(res.DistanceKm))
	assert.Greater(t, res.DistanceKm, 0.0)
	require.NotNil(t, res.DurationMin)
	assert.Equal(t, EstimateMinutes(res.DistanceKm, 40), *res.DurationMin)

	count, err := testutil.GatherAndCount(reg, "fulfillment_distance_fallback_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestServiceFallsBackOnTimeout(t *testing.T) {
	stub := &stubMatrix{block: true}
	svc, err := NewService(stub, Options{Timeout: 10 * time.Millisecond}, nil, logger.Nop())
	require.NoError(t, err)

	res := svc.Distance(context.Background(), amman, zarqa)
	assert.Equal(t, SourceHaversine, res.Source)
	assert.Equal(t, "timeout", fallbackReason(context.DeadlineExceeded))
}

func TestServiceBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	stub := &stubMatrix{err: errors.New("OVER_QUERY_LIMIT")}
	svc, err := NewService(stub, Options{TripFailures: 2, Cooldown: time.Hour}, nil, logger.Nop())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		res := svc.Distance(context.Background(), amman, zarqa)
		assert.Equal(t, SourceHaversine, res.Source)
	}
	assert.Equal(t, 2, stub.callCount())
}

func TestServiceNilPointIsUnavailable(t *testing.T) {
	stub := &stubMatrix{result: &maps.DistanceResult{Meters: 1000, Seconds: 60}}
	svc, err := NewService(stub, Options{}, nil, logger.Nop())
	require.NoError(t, err)

	res := svc.Distance(context.Background(), nil, zarqa)
	assert.False(t, res.Available())
	assert.Equal(t, 0, stub.callCount())
}

func TestServiceWithoutClientUsesHaversine(t *testing.T) {
	svc, err := NewService(nil, Options{}, nil, logger.Nop())
	require.NoError(t, err)

	res := svc.Distance(context.Background(), amman, zarqa)
	assert.Equal(t, SourceHaversine, res.Source)
}

func TestMemoDeduplicatesIdenticalPairs(t *testing.T) {
	stub := &stubMatrix{result: &maps.DistanceResult{Meters: 5000, Seconds: 600}}
	svc, err := NewService(stub, Options{}, nil, logger.Nop())
	require.NoError(t, err)

	memo := NewMemo(svc)
	first := memo.Distance(context.Background(), amman, zarqa)
	second := memo.Distance(context.Background(), &Point{Lat: amman.Lat, Lng: amman.Lng}, zarqa)
	memo.Distance(context.Background(), zarqa, amman)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, stub.callCount())
}
