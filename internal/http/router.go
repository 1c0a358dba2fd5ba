// Package httpapi composes the service's HTTP surface: the shared
// middleware stack, operational endpoints, and the versioned API.
//
// Token issuance, registration checks, and audit ingest are callable by
// the event platform's own services; detection, audit queries, and the
// health report are an operator surface behind the admin token.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"custos/internal/ratelimit"
	ratelimitmw "custos/internal/ratelimit/middleware"
	"custos/pkg/platform/middleware/admin"
	"custos/pkg/platform/middleware/metadata"
	request "custos/pkg/platform/middleware/request"
	"custos/pkg/platform/middleware/requesttime"
)

// Registrar mounts a handler's routes on a router.
type Registrar interface {
	Register(r chi.Router)
}

// AuditRegistrar mounts the audit surface in two parts. Ingest is
// service-to-service like token issuance; the query endpoints are an
// operator surface.
type AuditRegistrar interface {
	RegisterIngest(r chi.Router)
	RegisterQuery(r chi.Router)
}

// Handlers collects the per-context handlers the router mounts.
type Handlers struct {
	Audit  AuditRegistrar
	Risk   Registrar
	Fraud  Registrar
	Tokens Registrar
	Guard  Registrar
	Health Registrar
}

// NewRouter builds the full route tree. A nil rate limiter mounts the
// routes without budgets, which only tests should do.
func NewRouter(h Handlers, limiter *ratelimitmw.Middleware, adminTokenHash string, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(request.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	// Liveness stays dependency-free so orchestrators can tell a wedged
	// process from a degraded one; the full report lives under /v1/health.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Group(func(g chi.Router) {
			g.Use(limit(limiter, ratelimit.ClassToken))
			h.Tokens.Register(g)
			h.Guard.Register(g)
		})

		v1.Group(func(g chi.Router) {
			g.Use(limit(limiter, ratelimit.ClassWrite))
			h.Audit.RegisterIngest(g)
		})

		v1.Group(func(g chi.Router) {
			g.Use(admin.RequireAdminToken(adminTokenHash, logger))

			g.Group(func(gg chi.Router) {
				gg.Use(limit(limiter, ratelimit.ClassRead))
				h.Audit.RegisterQuery(gg)
				h.Health.Register(gg)
			})
			g.Group(func(gg chi.Router) {
				gg.Use(limit(limiter, ratelimit.ClassDetection))
				h.Risk.Register(gg)
				h.Fraud.Register(gg)
			})
		})
	})

	return r
}

func limit(limiter *ratelimitmw.Middleware, class ratelimit.EndpointClass) func(http.Handler) http.Handler {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return limiter.Limit(class)
}
