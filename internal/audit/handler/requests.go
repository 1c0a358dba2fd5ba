package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"custos/internal/audit"
	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
	strutil "custos/pkg/platform/strings"
)

// ActorPayload is the actor portion of an ingest request.
type ActorPayload struct {
	Kind        string `json:"kind"`
	AccountID   string `json:"account_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role,omitempty"`
}

// RecordEntryRequest is the body of POST /audit/entries.
type RecordEntryRequest struct {
	Kind        string          `json:"kind"`
	Actor       ActorPayload    `json:"actor"`
	SourceIP    string          `json:"source_ip,omitempty"`
	SourceAgent string          `json:"source_agent,omitempty"`
	Success     *bool           `json:"success"`
	Details     json.RawMessage `json:"details,omitempty"`
	RequestID   string          `json:"request_id,omitempty"`
	Timestamp   string          `json:"timestamp,omitempty"`

	parsedKind      audit.Kind
	parsedActor     audit.Actor
	parsedDetails   audit.Details
	parsedTimestamp time.Time
}

// Validate checks the request and caches parsed fields.
func (r *RecordEntryRequest) Validate() error {
	kind := audit.Kind(r.Kind)
	if !kind.Valid() {
		return dErrors.New(dErrors.CodeValidation, "unknown audit kind: "+r.Kind)
	}
	r.parsedKind = kind

	actor := audit.Actor{
		Kind:        audit.ActorKind(r.Actor.Kind),
		DisplayName: r.Actor.DisplayName,
		Role:        r.Actor.Role,
	}
	if r.Actor.AccountID != "" {
		accountID, err := id.ParseAccountID(r.Actor.AccountID)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "invalid actor account_id")
		}
		actor.AccountID = accountID
	}
	if err := actor.Validate(); err != nil {
		return err
	}
	r.parsedActor = actor

	if r.Success == nil {
		return dErrors.New(dErrors.CodeValidation, "success is required")
	}

	if len(r.Details) > 0 {
		details, err := audit.DecodeDetails(kind, r.Details)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "invalid details payload")
		}
		r.parsedDetails = details
	}

	if r.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, r.Timestamp)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "timestamp must be RFC3339")
		}
		r.parsedTimestamp = ts
	}
	return nil
}

// Entry builds the audit entry described by a validated request.
func (r *RecordEntryRequest) Entry() audit.Entry {
	return audit.Entry{
		Kind:        r.parsedKind,
		Actor:       r.parsedActor,
		SourceIP:    r.SourceIP,
		SourceAgent: r.SourceAgent,
		Success:     *r.Success,
		Details:     r.parsedDetails,
		RequestID:   r.RequestID,
		Timestamp:   r.parsedTimestamp,
	}
}

func parseQuery(r *http.Request) (audit.Query, error) {
	var q audit.Query
	params := r.URL.Query()

	if raw := params.Get("actor_id"); raw != "" {
		accountID, err := id.ParseAccountID(raw)
		if err != nil {
			return q, dErrors.New(dErrors.CodeValidation, "invalid actor_id")
		}
		q.ActorID = accountID
	}
	if raw := params.Get("kind"); raw != "" {
		// Kind names are stored lowercase; fold the filter so clients may
		// send either case.
		for _, part := range strutil.DedupeAndTrimLower(strings.Split(raw, ",")) {
			q.Kinds = append(q.Kinds, audit.Kind(part))
		}
	}
	q.SourceIP = params.Get("source_ip")
	if raw := params.Get("success"); raw != "" {
		success, err := strconv.ParseBool(raw)
		if err != nil {
			return q, dErrors.New(dErrors.CodeValidation, "success must be a boolean")
		}
		q.Success = &success
	}
	var err error
	if q.From, err = parseTimeParam(params.Get("from")); err != nil {
		return q, err
	}
	if q.To, err = parseTimeParam(params.Get("to")); err != nil {
		return q, err
	}
	if q.Limit, err = parseIntParam(params.Get("limit"), "limit"); err != nil {
		return q, err
	}
	if q.Offset, err = parseIntParam(params.Get("offset"), "offset"); err != nil {
		return q, err
	}
	return q, nil
}

func parseSince(r *http.Request, now time.Time) (time.Time, error) {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		return now.Add(-24 * time.Hour), nil
	}
	since, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "since must be RFC3339")
	}
	return since, nil
}

func parseTimeParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "time filters must be RFC3339")
	}
	return ts, nil
}

func parseIntParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, dErrors.New(dErrors.CodeValidation, name+" must be a non-negative integer")
	}
	return value, nil
}
