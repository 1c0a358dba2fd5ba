// Package handler exposes token issuance and verification over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custos/internal/accesstoken"
	id "custos/pkg/domain"
	"custos/pkg/platform/httputil"
	"custos/pkg/requestcontext"
)

// Service defines the grant operations the handler needs.
type Service interface {
	Issue(ctx context.Context, eventID id.EventID, subjectID id.AccountID) (*accesstoken.Grant, error)
	Verify(ctx context.Context, token string, eventID id.EventID, subjectID id.AccountID) (*accesstoken.Grant, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts token endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/tokens", h.HandleIssue)
	r.Post("/tokens/verify", h.HandleVerify)
}

// HandleIssue handles POST /tokens.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	grant, err := h.service.Issue(ctx, req.Event(), req.Subject())
	if err != nil {
		h.logger.ErrorContext(ctx, "token issuance failed",
			"request_id", requestID,
			"event_id", req.EventID,
			"subject_id", req.SubjectID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, grant)
}

// HandleVerify handles POST /tokens/verify. Verification outcomes are not
// logged as errors; failed checks are the endpoint doing its job.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	grant, err := h.service.Verify(ctx, req.Token, req.Event(), req.Subject())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, grant)
}
