// Package metrics exposes Prometheus instrumentation for token issuance.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	IssuedTotal        prometheus.Counter
	VerificationsTotal *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		IssuedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custos_tokens_issued_total",
			Help: "Event access tokens issued.",
		}),
		VerificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_token_verifications_total",
			Help: "Token verifications, by outcome.",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncIssued() {
	if m != nil {
		m.IssuedTotal.Inc()
	}
}

func (m *Metrics) IncVerification(result string) {
	if m != nil {
		m.VerificationsTotal.WithLabelValues(result).Inc()
	}
}
