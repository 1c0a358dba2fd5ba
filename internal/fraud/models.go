// Package fraud holds the detector's report and finding models. Detection
// itself lives in the service package; reports are derived on every call
// and never persisted.
package fraud

import (
	"time"

	"custos/internal/risk"
	id "custos/pkg/domain"
)

// IPFlag is one source IP the detector flagged, with the counts that
// tripped it.
type IPFlag struct {
	IP               string   `json:"ip"`
	FailedCount      int      `json:"failed_count"`
	DistinctSubjects int      `json:"distinct_subjects"`
	Reasons          []string `json:"reasons"`
}

// IPReport lists every flagged IP in the detection window.
type IPReport struct {
	WindowStart time.Time `json:"window_start"`
	Examined    int       `json:"examined"`
	Flagged     []IPFlag  `json:"flagged"`
}

// FlaggedSet indexes the flagged IPs by address.
func (r *IPReport) FlaggedSet() map[string]IPFlag {
	set := make(map[string]IPFlag, len(r.Flagged))
	for _, f := range r.Flagged {
		set[f.IP] = f
	}
	return set
}

// AccountReport is the per-subject check: the scorer's assessment plus the
// detector's own contextual flags, computed from the same window with its
// own thresholds.
type AccountReport struct {
	SubjectID         id.AccountID     `json:"subject_id"`
	Assessment        *risk.Assessment `json:"assessment"`
	DistinctLocations int              `json:"distinct_locations"`
	DistinctDevices   int              `json:"distinct_devices"`
	LocationFlag      bool             `json:"location_flag"`
	DeviceFlag        bool             `json:"device_flag"`
	SourceIPs         []string         `json:"source_ips,omitempty"`
}

// Anomaly is one account whose activity count is far above the population
// baseline.
type Anomaly struct {
	SubjectID id.AccountID `json:"subject_id"`
	Metric    string       `json:"metric"`
	Count     int          `json:"count"`
	Baseline  float64      `json:"baseline"`
	Ratio     float64      `json:"ratio"`
}

// Anomaly metrics.
const (
	MetricLogins        = "logins"
	MetricRegistrations = "registrations"
)

// AnomalyReport compares each active account against population baselines.
type AnomalyReport struct {
	WindowStart          time.Time `json:"window_start"`
	Population           int       `json:"population"`
	LoginBaseline        float64   `json:"login_baseline"`
	RegistrationBaseline float64   `json:"registration_baseline"`
	Anomalies            []Anomaly `json:"anomalies"`
}

// Contains reports whether the subject appears in the anomaly list.
func (r *AnomalyReport) Contains(subjectID id.AccountID) bool {
	for _, a := range r.Anomalies {
		if a.SubjectID == subjectID {
			return true
		}
	}
	return false
}

// SweepReport folds the three checks into three independent labels. There
// is deliberately no combined score; each label stands alone.
type SweepReport struct {
	SubjectID        id.AccountID   `json:"subject_id"`
	UserActivityRisk risk.Level     `json:"user_activity_risk"`
	IPFraudRisk      risk.Level     `json:"ip_fraud_risk"`
	AnomalyRisk      risk.Level     `json:"anomaly_risk"`
	Account          *AccountReport `json:"account,omitempty"`
	IPs              *IPReport      `json:"ips,omitempty"`
	Anomalies        *AnomalyReport `json:"anomalies,omitempty"`
	Faults           []string       `json:"faults,omitempty"`
	StartedAt        time.Time      `json:"started_at"`
	CompletedAt      time.Time      `json:"completed_at"`
}

// FindingKind classifies findings mirrored to the security topic.
type FindingKind string

const (
	FindingAccountRisk       FindingKind = "account_risk"
	FindingIPFraud           FindingKind = "ip_fraud"
	FindingPopulationAnomaly FindingKind = "population_anomaly"
)

// Finding is one detector observation published for downstream SIEM
// consumption. Best-effort: findings never gate decisions.
type Finding struct {
	Kind       FindingKind  `json:"kind"`
	SubjectID  id.AccountID `json:"subject_id,omitzero"`
	IP         string       `json:"ip,omitempty"`
	Severity   string       `json:"severity"`
	Summary    string       `json:"summary"`
	DetectedAt time.Time    `json:"detected_at"`
}

// Key returns the Kafka partition key for the finding: subject when
// present, else the IP.
func (f Finding) Key() string {
	if !f.SubjectID.IsNil() {
		return f.SubjectID.String()
	}
	return f.IP
}
