package audit

import (
	"encoding/json"
	"fmt"
	"time"

	id "custos/pkg/domain"
)

// Details is the action-specific payload of an entry. The concrete shape is
// keyed by the entry's Kind; payloads that fit no registered shape fall back
// to GenericDetails.
type Details interface {
	isDetails()
}

// LoginDetails accompanies the login and logout kinds.
type LoginDetails struct {
	Method        string `json:"method,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// RegistrationDetails accompanies registration_submitted and
// registration_cancelled.
type RegistrationDetails struct {
	EventID     id.EventID `json:"event_id"`
	TicketCount int        `json:"ticket_count,omitempty"`
}

// RoleChangeDetails accompanies role_changed.
type RoleChangeDetails struct {
	PreviousRole string `json:"previous_role"`
	NewRole      string `json:"new_role"`
}

// EventChangeDetails accompanies the event lifecycle kinds.
type EventChangeDetails struct {
	EventID       id.EventID `json:"event_id"`
	Name          string     `json:"name,omitempty"`
	ChangedFields []string   `json:"changed_fields,omitempty"`
}

// PermissionDeniedDetails accompanies permission_denied.
type PermissionDeniedDetails struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// DetectionDetails is the diagnostic payload of detection_completed. Check
// names which detection ran: account, ips, population, or sweep. Fields
// a given check does not produce stay empty.
type DetectionDetails struct {
	Check            string       `json:"check"`
	SubjectID        id.AccountID `json:"subject_id,omitzero"`
	UserActivityRisk string       `json:"user_activity_risk,omitempty"`
	IPFraudRisk      string       `json:"ip_fraud_risk,omitempty"`
	AnomalyRisk      string       `json:"anomaly_risk,omitempty"`
	LocationFlag     bool         `json:"location_flag,omitempty"`
	DeviceFlag       bool         `json:"device_flag,omitempty"`
	FlaggedIPs       int          `json:"flagged_ips,omitempty"`
	Anomalies        int          `json:"anomalies,omitempty"`
	Faults           []string     `json:"faults,omitempty"`
}

// GuardDetails is the diagnostic payload of guard_evaluated.
type GuardDetails struct {
	SubjectID            id.AccountID `json:"subject_id"`
	EventID              id.EventID   `json:"event_id"`
	Allowed              bool         `json:"allowed"`
	RequiresVerification bool         `json:"requires_verification"`
	Reasons              []string     `json:"reasons,omitempty"`
	Faults               []string     `json:"faults,omitempty"`
}

// TokenDetails is the diagnostic payload of token_issued.
type TokenDetails struct {
	EventID   id.EventID `json:"event_id"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// GenericDetails is the open-map fallback for system_error and any payload
// that does not match its kind's registered shape.
type GenericDetails map[string]any

func (LoginDetails) isDetails()            {}
func (RegistrationDetails) isDetails()     {}
func (RoleChangeDetails) isDetails()       {}
func (EventChangeDetails) isDetails()      {}
func (PermissionDeniedDetails) isDetails() {}
func (DetectionDetails) isDetails()        {}
func (GuardDetails) isDetails()            {}
func (TokenDetails) isDetails()            {}
func (GenericDetails) isDetails()          {}

// MarshalDetails encodes a details payload for storage. A nil payload
// encodes as an empty object.
func MarshalDetails(d Details) ([]byte, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal details: %w", err)
	}
	return raw, nil
}

// DecodeDetails decodes a stored payload into the shape registered for the
// kind. Payloads that fail to decode into their shape, and kinds with no
// registered shape, decode as GenericDetails.
func DecodeDetails(kind Kind, raw []byte) (Details, error) {
	if len(raw) == 0 {
		return GenericDetails{}, nil
	}

	switch kind {
	case KindLoginAttempted, KindLoginSucceeded, KindLoginFailed, KindLogout:
		return decodeInto[LoginDetails](raw)
	case KindRegistrationSubmitted, KindRegistrationCancelled:
		return decodeInto[RegistrationDetails](raw)
	case KindRoleChanged:
		return decodeInto[RoleChangeDetails](raw)
	case KindEventCreated, KindEventUpdated, KindEventDeleted:
		return decodeInto[EventChangeDetails](raw)
	case KindPermissionDenied:
		return decodeInto[PermissionDeniedDetails](raw)
	case KindDetectionCompleted:
		return decodeInto[DetectionDetails](raw)
	case KindGuardEvaluated:
		return decodeInto[GuardDetails](raw)
	case KindTokenIssued:
		return decodeInto[TokenDetails](raw)
	}

	return decodeGeneric(raw)
}

func decodeInto[T Details](raw []byte) (Details, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		// Shape mismatch is not fatal; preserve the payload as-is.
		return decodeGeneric(raw)
	}
	return v, nil
}

func decodeGeneric(raw []byte) (Details, error) {
	var m GenericDetails
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode details: %w", err)
	}
	if m == nil {
		m = GenericDetails{}
	}
	return m, nil
}
