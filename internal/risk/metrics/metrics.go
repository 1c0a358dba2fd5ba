// Package metrics exposes Prometheus instrumentation for risk scoring.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	AssessmentsTotal *prometheus.CounterVec
	ScoreObserved    prometheus.Histogram
	AssessDuration   prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		AssessmentsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_risk_assessments_total",
			Help: "Risk assessments computed, by resulting level.",
		}, []string{"level"}),
		ScoreObserved: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custos_risk_score",
			Help:    "Distribution of computed risk scores.",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		}),
		AssessDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custos_risk_assess_duration_seconds",
			Help:    "Wall time of one assessment including store reads.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncAssessed(level string) {
	if m != nil {
		m.AssessmentsTotal.WithLabelValues(level).Inc()
	}
}

func (m *Metrics) ObserveScore(score float64) {
	if m != nil {
		m.ScoreObserved.Observe(score)
	}
}

func (m *Metrics) ObserveAssessDuration(d time.Duration) {
	if m != nil {
		m.AssessDuration.Observe(d.Seconds())
	}
}
