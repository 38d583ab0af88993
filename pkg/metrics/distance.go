package metrics

import "github.com/prometheus/client_golang/prometheus"

// DistanceMetrics counts distance lookups by where the answer came from.
type DistanceMetrics struct {
	lookups   *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
}

// NewDistanceMetrics registers the distance metrics on the provided registerer.
func NewDistanceMetrics(reg prometheus.Registerer) *DistanceMetrics {
	if reg == nil {
		return &DistanceMetrics{}
	}
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "distance",
		Name:      "lookups_total",
		Help:      "Distance lookups by source (external or haversine).",
	}, []string{"source"})
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "distance",
		Name:      "fallback_total",
		Help:      "Distance lookups answered by haversine because the external API failed.",
	}, []string{"reason"})
	reg.MustRegister(lookups, fallbacks)
	return &DistanceMetrics{lookups: lookups, fallbacks: fallbacks}
}

// IncLookup counts one answered lookup.
func (d *DistanceMetrics) IncLookup(source string) {
	if d == nil || d.lookups == nil {
		return
	}
	d.lookups.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncFallback counts one fallback with its cause.
func (d *DistanceMetrics) IncFallback(reason string) {
	if d == nil || d.fallbacks == nil {
		return
	}
	d.fallbacks.WithLabelValues(normalizeLabel(reason)).Inc()
}
