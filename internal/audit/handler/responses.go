package handler

import (
	"encoding/json"
	"time"

	"custos/internal/audit"
)

// ActorResponse is the actor portion of an entry response.
type ActorResponse struct {
	Kind        string `json:"kind"`
	AccountID   string `json:"account_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role,omitempty"`
}

// EntryResponse is the JSON shape of a stored audit entry.
type EntryResponse struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Category    string          `json:"category"`
	Actor       ActorResponse   `json:"actor"`
	SourceIP    string          `json:"source_ip,omitempty"`
	SourceAgent string          `json:"source_agent,omitempty"`
	Success     bool            `json:"success"`
	Details     json.RawMessage `json:"details,omitempty"`
	RequestID   string          `json:"request_id,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	RecordedAt  time.Time       `json:"recorded_at"`
}

// PageResponse is the JSON shape of a query result page.
type PageResponse struct {
	Entries []EntryResponse `json:"entries"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// SummaryResponse is the JSON shape of an aggregate summary.
type SummaryResponse struct {
	Since      time.Time      `json:"since"`
	Total      int            `json:"total"`
	ByKind     map[string]int `json:"by_kind"`
	ByCategory map[string]int `json:"by_category"`
}

// FromEntry converts a stored entry to its response shape.
func FromEntry(entry audit.Entry) EntryResponse {
	actor := ActorResponse{
		Kind:        string(entry.Actor.Kind),
		DisplayName: entry.Actor.DisplayName,
		Role:        entry.Actor.Role,
	}
	if !entry.Actor.AccountID.IsNil() {
		actor.AccountID = entry.Actor.AccountID.String()
	}
	details, err := audit.MarshalDetails(entry.Details)
	if err != nil {
		details = []byte("{}")
	}
	return EntryResponse{
		ID:          entry.ID.String(),
		Kind:        string(entry.Kind),
		Category:    string(entry.Category()),
		Actor:       actor,
		SourceIP:    entry.SourceIP,
		SourceAgent: entry.SourceAgent,
		Success:     entry.Success,
		Details:     details,
		RequestID:   entry.RequestID,
		Timestamp:   entry.Timestamp,
		RecordedAt:  entry.RecordedAt,
	}
}

// FromPage converts a query result page to its response shape.
func FromPage(page *audit.Page, q audit.Query) PageResponse {
	entries := make([]EntryResponse, 0, len(page.Entries))
	for _, entry := range page.Entries {
		entries = append(entries, FromEntry(entry))
	}
	return PageResponse{
		Entries: entries,
		Total:   page.Total,
		Limit:   q.Limit,
		Offset:  q.Offset,
	}
}

// FromSummary converts an aggregate summary to its response shape.
func FromSummary(summary *audit.Summary) SummaryResponse {
	byKind := make(map[string]int, len(summary.ByKind))
	for kind, count := range summary.ByKind {
		byKind[string(kind)] = count
	}
	byCategory := make(map[string]int, len(summary.ByCategory))
	for category, count := range summary.ByCategory {
		byCategory[string(category)] = count
	}
	return SummaryResponse{
		Since:      summary.Since,
		Total:      summary.Total,
		ByKind:     byKind,
		ByCategory: byCategory,
	}
}
