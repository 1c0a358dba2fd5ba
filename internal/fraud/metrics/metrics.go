// Package metrics exposes Prometheus instrumentation for fraud detection
// and the finding publisher.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SweepsTotal     prometheus.Counter
	SweepDuration   prometheus.Histogram
	CheckFailures   *prometheus.CounterVec
	IPsFlagged      prometheus.Counter
	AnomaliesFound  prometheus.Counter
	FindingsQueued  prometheus.Counter
	FindingsDropped prometheus.Counter
	PublishFailures prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		SweepsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custos_fraud_sweeps_total",
			Help: "Fraud sweeps executed.",
		}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custos_fraud_sweep_duration_seconds",
			Help:    "Wall time of one full sweep.",
			Buckets: prometheus.DefBuckets,
		}),
		CheckFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_fraud_check_failures_total",
			Help: "Detection sub-check failures, by check.",
		}, []string{"check"}),
		IPsFlagged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custos_fraud_ips_flagged_total",
			Help: "Source IPs flagged across all IP checks.",
		}),
		AnomaliesFound: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custos_fraud_anomalies_total",
			Help: "Population anomalies found across all checks.",
		}),
		FindingsQueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custos_fraud_findings_queued_total",
			Help: "Findings enqueued for publication.",
		}),
		FindingsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custos_fraud_findings_dropped_total",
			Help: "Findings dropped because the buffer was full.",
		}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custos_fraud_publish_failures_total",
			Help: "Finding batches that failed to reach Kafka.",
		}),
	}
}

func (m *Metrics) IncSweep() {
	if m != nil {
		m.SweepsTotal.Inc()
	}
}

func (m *Metrics) ObserveSweepDuration(d time.Duration) {
	if m != nil {
		m.SweepDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) IncCheckFailure(check string) {
	if m != nil {
		m.CheckFailures.WithLabelValues(check).Inc()
	}
}

func (m *Metrics) AddIPsFlagged(n int) {
	if m != nil && n > 0 {
		m.IPsFlagged.Add(float64(n))
	}
}

func (m *Metrics) AddAnomalies(n int) {
	if m != nil && n > 0 {
		m.AnomaliesFound.Add(float64(n))
	}
}

func (m *Metrics) IncFindingQueued() {
	if m != nil {
		m.FindingsQueued.Inc()
	}
}

func (m *Metrics) AddFindingsDropped(n int64) {
	if m != nil && n > 0 {
		m.FindingsDropped.Add(float64(n))
	}
}

func (m *Metrics) IncPublishFailure() {
	if m != nil {
		m.PublishFailures.Inc()
	}
}
