// Package guard holds the registration gate's decision model. Decisions
// are derived on every evaluation and never persisted; the audit log keeps
// the trail.
package guard

import (
	"time"

	"custos/internal/risk"
	id "custos/pkg/domain"
)

// Deny and annotation reasons carried on a decision.
const (
	ReasonRateLimitExceeded       = "rate_limit_exceeded"
	ReasonRateLimitUnavailable    = "rate_limit_unavailable"
	ReasonSuspiciousRegistrations = "suspicious_registrations"
)

// Decision is the outcome of one registration evaluation. Allowed gates
// the registration; RequiresVerification only annotates it. Faults list
// sub-checks that failed and degraded to their zero value.
type Decision struct {
	SubjectID            id.AccountID `json:"subject_id"`
	EventID              id.EventID   `json:"event_id"`
	Allowed              bool         `json:"allowed"`
	RequiresVerification bool         `json:"requires_verification"`
	RiskLevel            risk.Level   `json:"risk_level,omitempty"`
	RecentRegistrations  int          `json:"recent_registrations"`
	SuspiciousIPs        []string     `json:"suspicious_ips,omitempty"`
	Reasons              []string     `json:"reasons,omitempty"`
	Faults               []string     `json:"faults,omitempty"`
	EvaluatedAt          time.Time    `json:"evaluated_at"`
}

// HasReason reports whether the decision carries the given reason.
func (d *Decision) HasReason(reason string) bool {
	for _, r := range d.Reasons {
		if r == reason {
			return true
		}
	}
	return false
}
