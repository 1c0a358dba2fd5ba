// Package handler exposes the registration guard over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custos/internal/guard"
	id "custos/pkg/domain"
	"custos/pkg/platform/httputil"
	"custos/pkg/requestcontext"
)

// Service defines the evaluation the handler needs.
type Service interface {
	CheckRegistration(ctx context.Context, subjectID id.AccountID, eventID id.EventID) (*guard.Decision, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts guard endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/guard/registrations", h.HandleCheck)
}

// HandleCheck handles POST /guard/registrations. A denied registration is
// still a 200; the decision payload carries the outcome.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CheckRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	decision, err := h.service.CheckRegistration(ctx, req.Subject(), req.Event())
	if err != nil {
		h.logger.ErrorContext(ctx, "registration evaluation failed",
			"request_id", requestID,
			"subject_id", req.SubjectID,
			"event_id", req.EventID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, decision)
}
