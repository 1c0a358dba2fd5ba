// Package handler exposes the audit log over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"custos/internal/audit"
	"custos/pkg/platform/httputil"
	"custos/pkg/requestcontext"
)

// Service defines the audit operations the handler needs.
type Service interface {
	Record(ctx context.Context, entry audit.Entry) (*audit.Entry, error)
	Query(ctx context.Context, q audit.Query) (*audit.Page, error)
	Summarize(ctx context.Context, since time.Time) (*audit.Summary, error)
}

// Handler wires audit endpoints to the audit service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an audit handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterIngest mounts the write path. Sibling services call it
// directly, so it is registered outside the admin-gated group.
func (h *Handler) RegisterIngest(r chi.Router) {
	r.Post("/audit/entries", h.HandleRecord)
}

// RegisterQuery mounts the read endpoints for operators.
func (h *Handler) RegisterQuery(r chi.Router) {
	r.Get("/audit/entries", h.HandleQuery)
	r.Get("/audit/summary", h.HandleSummary)
}

// HandleRecord handles POST /audit/entries.
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RecordEntryRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	entry, err := h.service.Record(ctx, req.Entry())
	if err != nil {
		h.logger.ErrorContext(ctx, "audit record failed",
			"request_id", requestID,
			"kind", req.Kind,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromEntry(*entry))
}

// HandleQuery handles GET /audit/entries.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	q, err := parseQuery(r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid audit query",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	q.Normalize()

	page, err := h.service.Query(ctx, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit query failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromPage(page, q))
}

// HandleSummary handles GET /audit/summary.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	since, err := parseSince(r, requestcontext.Now(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	summary, err := h.service.Summarize(ctx, since)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit summary failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromSummary(summary))
}
