// Package handler exposes fraud detection over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custos/internal/fraud"
	id "custos/pkg/domain"
	"custos/pkg/platform/httputil"
	"custos/pkg/requestcontext"
)

// Service defines the detection operations the handler needs.
type Service interface {
	RunSweep(ctx context.Context, subjectID id.AccountID) (*fraud.SweepReport, error)
	CheckIPs(ctx context.Context) (*fraud.IPReport, error)
	CheckPopulation(ctx context.Context) (*fraud.AnomalyReport, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts detection endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/fraud/sweeps", h.HandleSweep)
	r.Get("/fraud/ips", h.HandleIPs)
	r.Get("/fraud/anomalies", h.HandleAnomalies)
}

// HandleSweep handles POST /fraud/sweeps. Reports are derived on every
// call and never stored; only the diagnostic trail in the audit log marks
// that a sweep ran.
func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SweepRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	report, err := h.service.RunSweep(ctx, req.Subject())
	if err != nil {
		h.logger.ErrorContext(ctx, "fraud sweep failed",
			"request_id", requestID,
			"subject_id", req.SubjectID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleIPs handles GET /fraud/ips.
func (h *Handler) HandleIPs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := h.service.CheckIPs(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "ip check failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleAnomalies handles GET /fraud/anomalies.
func (h *Handler) HandleAnomalies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := h.service.CheckPopulation(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "population check failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, report)
}
