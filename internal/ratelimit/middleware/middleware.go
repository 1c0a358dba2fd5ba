// Package middleware enforces per-IP rate limits on HTTP routes.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"custos/internal/ratelimit"
	"custos/pkg/platform/httputil"
	"custos/pkg/platform/privacy"
	"custos/pkg/requestcontext"
)

// Limiter decides whether a request from ip fits the class budget.
type Limiter interface {
	Check(ctx context.Context, ip string, class ratelimit.EndpointClass) (*ratelimit.Result, error)
}

type Middleware struct {
	limiter  Limiter
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns enforcement off. Used in tests and demo mode.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(limiter Limiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled && logger != nil {
		logger.Info("rate limiting disabled")
	}
	return m
}

// Limit enforces the class budget against the client IP extracted by the
// metadata middleware. When the limiter itself cannot decide, the request
// passes: the API stays up even with every limit store down.
func (m *Middleware) Limit(class ratelimit.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)

			result, err := m.limiter.Check(ctx, ip, class)
			if err != nil {
				if m.logger != nil {
					m.logger.ErrorContext(ctx, "rate limit check failed",
						"ip_prefix", privacy.AnonymizeIP(ip),
						"class", class,
						"error", err,
					)
				}
				next.ServeHTTP(w, r)
				return
			}

			setLimitHeaders(w, result)

			if !result.Allowed {
				if m.logger != nil {
					m.logger.WarnContext(ctx, "rate limit exceeded",
						"ip_prefix", privacy.AnonymizeIP(ip),
						"class", class,
						"retry_after", result.RetryAfter,
					)
				}
				writeLimitExceeded(w, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setLimitHeaders(w http.ResponseWriter, result *ratelimit.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	if result.Degraded {
		w.Header().Set("X-RateLimit-Status", "degraded")
	}
}

func writeLimitExceeded(w http.ResponseWriter, result *ratelimit.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":       "rate_limit_exceeded",
		"message":     "Too many requests from this IP address. Please try again later.",
		"retry_after": result.RetryAfter,
	})
}
