// Package metrics exposes Prometheus instrumentation for rate limiting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ChecksTotal   *prometheus.CounterVec
	StoreFailures prometheus.Counter
	Degraded      prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		ChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_ratelimit_checks_total",
			Help: "Rate limit checks, by endpoint class and outcome.",
		}, []string{"class", "outcome"}),
		StoreFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custos_ratelimit_store_failures_total",
			Help: "Primary rate limit store calls that failed.",
		}),
		Degraded: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "custos_ratelimit_degraded",
			Help: "1 while checks are served from the in-memory fallback.",
		}),
	}
}

func (m *Metrics) IncCheck(class string, allowed bool) {
	if m != nil {
		outcome := "limited"
		if allowed {
			outcome = "allowed"
		}
		m.ChecksTotal.WithLabelValues(class, outcome).Inc()
	}
}

func (m *Metrics) IncStoreFailure() {
	if m != nil {
		m.StoreFailures.Inc()
	}
}

func (m *Metrics) SetDegraded(degraded bool) {
	if m != nil {
		if degraded {
			m.Degraded.Set(1)
		} else {
			m.Degraded.Set(0)
		}
	}
}
