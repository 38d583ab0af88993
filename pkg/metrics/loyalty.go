package metrics

import "github.com/prometheus/client_golang/prometheus"

// LoyaltyMetrics tracks post-commit loyalty processing outcomes.
type LoyaltyMetrics struct {
	applications *prometheus.CounterVec
}

// NewLoyaltyMetrics registers the loyalty metrics on the provided registerer.
func NewLoyaltyMetrics(reg prometheus.Registerer) *LoyaltyMetrics {
	if reg == nil {
		return &LoyaltyMetrics{}
	}
	applications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "loyalty",
		Name:      "applications_total",
		Help:      "Post-commit loyalty applications by outcome (applied, duplicate, failed).",
	}, []string{"outcome"})
	reg.MustRegister(applications)
	return &LoyaltyMetrics{applications: applications}
}

// IncOutcome counts one application attempt.
func (l *LoyaltyMetrics) IncOutcome(outcome string) {
	if l == nil || l.applications == nil {
		return
	}
	l.applications.WithLabelValues(normalizeLabel(outcome)).Inc()
}
