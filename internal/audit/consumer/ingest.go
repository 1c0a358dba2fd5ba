package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"custos/internal/audit"
	"custos/internal/platform/kafka/consumer"
	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
)

// Recorder appends decoded entries. The audit service implements it.
type Recorder interface {
	Record(ctx context.Context, entry audit.Entry) (*audit.Entry, error)
}

// IngestHandler decodes audit entries from the ingest topic and records
// them. Malformed or invalid payloads are logged and committed; only store
// failures propagate so the message is redelivered.
type IngestHandler struct {
	recorder Recorder
	logger   *slog.Logger
}

func NewIngestHandler(recorder Recorder, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{
		recorder: recorder,
		logger:   logger,
	}
}

// entryPayload is the wire shape sibling services publish. The optional id
// makes redeliveries idempotent: a second append of the same id reports a
// conflict and the message is committed.
type entryPayload struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Actor struct {
		Kind        string `json:"kind"`
		AccountID   string `json:"account_id"`
		DisplayName string `json:"display_name"`
		Role        string `json:"role"`
	} `json:"actor"`
	SourceIP    string          `json:"source_ip"`
	SourceAgent string          `json:"source_agent"`
	Success     bool            `json:"success"`
	Details     json.RawMessage `json:"details"`
	RequestID   string          `json:"request_id"`
	Timestamp   string          `json:"timestamp"`
}

func (h *IngestHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var payload entryPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.Warn("failed to unmarshal audit payload",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	entry, err := h.buildEntry(payload, msg)
	if err != nil {
		h.logger.Warn("rejected audit payload",
			"key", string(msg.Key),
			"kind", payload.Kind,
			"error", err,
		)
		return nil
	}

	if _, err := h.recorder.Record(ctx, entry); err != nil {
		switch {
		case dErrors.HasCode(err, dErrors.CodeConflict):
			h.logger.Debug("duplicate audit delivery, skipping",
				"entry_id", payload.ID,
				"kind", payload.Kind,
			)
			return nil
		case dErrors.HasCode(err, dErrors.CodeValidation):
			h.logger.Warn("rejected audit payload",
				"key", string(msg.Key),
				"kind", payload.Kind,
				"error", err,
			)
			return nil
		}
		h.logger.Error("failed to record audit entry",
			"kind", payload.Kind,
			"error", err,
		)
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

func (h *IngestHandler) buildEntry(payload entryPayload, msg *consumer.Message) (audit.Entry, error) {
	kind := audit.Kind(payload.Kind)
	entry := audit.Entry{
		Kind: kind,
		Actor: audit.Actor{
			Kind:        audit.ActorKind(payload.Actor.Kind),
			DisplayName: payload.Actor.DisplayName,
			Role:        payload.Actor.Role,
		},
		SourceIP:    payload.SourceIP,
		SourceAgent: payload.SourceAgent,
		Success:     payload.Success,
		RequestID:   payload.RequestID,
	}

	if payload.ID != "" {
		entryID, err := id.ParseEntryID(payload.ID)
		if err != nil {
			return audit.Entry{}, fmt.Errorf("parse entry id: %w", err)
		}
		entry.ID = entryID
	}
	if payload.Actor.AccountID != "" {
		accountID, err := id.ParseAccountID(payload.Actor.AccountID)
		if err != nil {
			return audit.Entry{}, fmt.Errorf("parse actor account id: %w", err)
		}
		entry.Actor.AccountID = accountID
	}
	if len(payload.Details) > 0 {
		details, err := audit.DecodeDetails(kind, payload.Details)
		if err != nil {
			return audit.Entry{}, fmt.Errorf("decode details: %w", err)
		}
		entry.Details = details
	}
	if payload.Timestamp != "" {
		// Producers send RFC3339; fall back to the broker timestamp on a
		// malformed value rather than dropping the entry.
		if ts, err := time.Parse(time.RFC3339Nano, payload.Timestamp); err == nil {
			entry.Timestamp = ts
		} else {
			entry.Timestamp = msg.Timestamp
		}
	}
	return entry, nil
}
