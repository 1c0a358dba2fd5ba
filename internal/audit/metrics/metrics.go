// Package metrics provides observability for the audit log.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the audit log's Prometheus metrics.
type Metrics struct {
	EntriesRecorded *prometheus.CounterVec
	RecordFailures  prometheus.Counter
	QueryDuration   prometheus.Histogram
}

// New creates a Metrics instance with all audit metrics registered.
func New() *Metrics {
	return &Metrics{
		EntriesRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_audit_entries_recorded_total",
			Help: "Total audit entries appended, by kind and category",
		}, []string{"kind", "category"}),

		RecordFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custos_audit_record_failures_total",
			Help: "Total audit append attempts that failed",
		}),

		QueryDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custos_audit_query_duration_seconds",
			Help:    "Duration of audit log queries",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncRecorded counts one appended entry.
func (m *Metrics) IncRecorded(kind, category string) {
	if m != nil {
		m.EntriesRecorded.WithLabelValues(kind, category).Inc()
	}
}

// IncRecordFailure counts one failed append.
func (m *Metrics) IncRecordFailure() {
	if m != nil {
		m.RecordFailures.Inc()
	}
}

// ObserveQueryDuration records how long a query took.
func (m *Metrics) ObserveQueryDuration(d time.Duration) {
	if m != nil {
		m.QueryDuration.Observe(d.Seconds())
	}
}
