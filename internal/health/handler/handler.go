// Package handler exposes the health report over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custos/internal/health"
	"custos/pkg/platform/httputil"
	"custos/pkg/requestcontext"
)

// Service produces health reports.
type Service interface {
	Report(ctx context.Context) (*health.Report, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the health endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleReport)
}

// HandleReport handles GET /health. A failed report maps to 503 so load
// balancers can act on the status code alone.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := h.service.Report(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "health report failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, report)
}
