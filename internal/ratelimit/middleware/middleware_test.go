package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custos/internal/ratelimit"
)

type stubLimiter struct {
	result *ratelimit.Result
	err    error
	ips    []string
}

func (l *stubLimiter) Check(_ context.Context, ip string, _ ratelimit.EndpointClass) (*ratelimit.Result, error) {
	l.ips = append(l.ips, ip)
	if l.err != nil {
		return nil, l.err
	}
	return l.result, nil
}

func serve(t *testing.T, limiter Limiter, opts ...Option) *httptest.ResponseRecorder {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	m := New(limiter, logger, opts...)

	handler := m.Limit(ratelimit.ClassRead)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/audit/entries", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAllowedRequestPasses(t *testing.T) {
	resetAt := time.Date(2026, 8, 20, 12, 1, 0, 0, time.UTC)
	limiter := &stubLimiter{result: &ratelimit.Result{
		Allowed:   true,
		Limit:     100,
		Remaining: 42,
		ResetAt:   resetAt,
	}}

	rec := serve(t, limiter)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "42", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, strconv.FormatInt(resetAt.Unix(), 10), rec.Header().Get("X-RateLimit-Reset"))
	assert.Empty(t, rec.Header().Get("X-RateLimit-Status"))
}

func TestLimitedRequestGets429(t *testing.T) {
	limiter := &stubLimiter{result: &ratelimit.Result{
		Allowed:    false,
		Limit:      100,
		Remaining:  0,
		ResetAt:    time.Date(2026, 8, 20, 12, 1, 0, 0, time.UTC),
		RetryAfter: 37,
	}}

	rec := serve(t, limiter)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "37", rec.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "rate_limit_exceeded", body["error"])
	assert.Equal(t, float64(37), body["retry_after"])
}

func TestDegradedResultSetsStatusHeader(t *testing.T) {
	limiter := &stubLimiter{result: &ratelimit.Result{
		Allowed:   true,
		Limit:     100,
		Remaining: 99,
		ResetAt:   time.Now().Add(time.Minute),
		Degraded:  true,
	}}

	rec := serve(t, limiter)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "degraded", rec.Header().Get("X-RateLimit-Status"))
}

func TestLimiterErrorFailsOpen(t *testing.T) {
	limiter := &stubLimiter{err: errors.New("stores down")}

	rec := serve(t, limiter)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestDisabledSkipsChecks(t *testing.T) {
	limiter := &stubLimiter{err: errors.New("must not be called")}

	rec := serve(t, limiter, WithDisabled(true))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, limiter.ips)
}
