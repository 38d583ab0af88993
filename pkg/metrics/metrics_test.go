package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsRecordsRunsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "loyalty-reconcile"
	metrics.Observe(job, 250*time.Millisecond, nil)
	metrics.Observe(job, 100*time.Millisecond, errors.New("db down"))
	metrics.Observe(job, 50*time.Millisecond, nil)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	for result, want := range map[string]float64{"success": 2, "failure": 1} {
		got, err := fetchCounterValue(mfs, "fulfillment_cron_job_runs_total", "result", result)
		require.NoError(t, err)
		require.Equal(t, want, got, result)
	}

	sum, err := fetchHistogramSum(mfs, "fulfillment_cron_job_duration_seconds", "job", job)
	require.NoError(t, err)
	require.InDelta(t, 0.4, sum, 1e-9)

	require.Greater(t, testutil.ToFloat64(metrics.lastSuccess.WithLabelValues(job)), float64(0))
}

func TestNilCronJobMetricsIsNoop(t *testing.T) {
	var metrics *CronJobMetrics
	metrics.Observe("job", time.Second, nil)
	NewCronJobMetrics(nil).Observe("job", time.Second, errors.New("x"))
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}

func TestDistanceMetricsCountsBySourceAndReason(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDistanceMetrics(reg)
	m.IncLookup("external")
	m.IncLookup("haversine")
	m.IncLookup("haversine")
	m.IncFallback("breaker_open")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "fulfillment_distance_lookups_total", "source", "haversine"); err != nil || got != 2 {
		t.Fatalf("expected 2 haversine lookups, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "fulfillment_distance_fallback_total", "reason", "breaker_open"); err != nil || got != 1 {
		t.Fatalf("expected 1 breaker fallback, got %f (%v)", got, err)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var d *DistanceMetrics
	d.IncLookup("external")
	var l *LoyaltyMetrics
	l.IncOutcome("applied")
	NewLoyaltyMetrics(nil).IncOutcome("failed")
	var o *OutboxMetrics
	o.IncOutcome("order_created", "published")
	var h *HTTPMetrics
	h.Observe(http.MethodGet, "/api/loyalty", http.StatusOK, time.Millisecond)
}

func TestHTTPMetricsObserveByRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe(http.MethodPost, "/api/checkout", http.StatusCreated, 20*time.Millisecond)
	m.Observe(http.MethodPost, "/api/checkout", http.StatusCreated, 30*time.Millisecond)
	m.Observe(http.MethodPost, "", http.StatusNotFound, time.Millisecond)

	require.Equal(t, 2, testutil.CollectAndCount(m.requests))
	require.InDelta(t, 2, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodPost, "/api/checkout", "201")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodPost, "unknown", "404")), 0)
}

func TestOutboxMetricsCountsByTypeAndOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncOutcome("order_created", "published")
	m.IncOutcome("order_created", "published")
	m.IncOutcome("order_status_changed", "retry")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	family := findMetricFamily(mfs, "fulfillment_outbox_events_total")
	if family == nil {
		t.Fatal("outbox metric family missing")
	}
	if got := len(family.GetMetric()); got != 2 {
		t.Fatalf("expected 2 series, got %d", got)
	}
	if got, err := fetchCounterValue(mfs, "fulfillment_outbox_events_total", "event_type", "order_created"); err != nil || got != 2 {
		t.Fatalf("expected 2 published order_created, got %f (%v)", got, err)
	}
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewLoyaltyMetrics(reg).IncOutcome("applied")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `fulfillment_loyalty_applications_total{outcome="applied"} 1`) {
		t.Fatalf("metric missing from body:\n%s", rec.Body.String())
	}
}

func TestServeWithEmptyAddrIsNoop(t *testing.T) {
	if err := Serve(context.Background(), "", prometheus.NewRegistry(), nil); err != nil {
		t.Fatalf("Serve: %v", err)
	}
}
