// Package metrics exposes Prometheus instrumentation for the registration
// guard.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EvaluationsTotal *prometheus.CounterVec
	DenialsTotal     *prometheus.CounterVec
	CheckFailures    *prometheus.CounterVec
	EvaluateDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		EvaluationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_guard_evaluations_total",
			Help: "Registration evaluations, by decision.",
		}, []string{"decision"}),
		DenialsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_guard_denials_total",
			Help: "Denied registrations, by reason.",
		}, []string{"reason"}),
		CheckFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_guard_check_failures_total",
			Help: "Guard sub-checks that failed and degraded.",
		}, []string{"check"}),
		EvaluateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custos_guard_evaluate_duration_seconds",
			Help:    "Wall time of one registration evaluation.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncEvaluated(allowed bool) {
	if m != nil {
		decision := "denied"
		if allowed {
			decision = "allowed"
		}
		m.EvaluationsTotal.WithLabelValues(decision).Inc()
	}
}

func (m *Metrics) IncDenial(reason string) {
	if m != nil {
		m.DenialsTotal.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncCheckFailure(check string) {
	if m != nil {
		m.CheckFailures.WithLabelValues(check).Inc()
	}
}

func (m *Metrics) ObserveEvaluateDuration(d time.Duration) {
	if m != nil {
		m.EvaluateDuration.Observe(d.Seconds())
	}
}
