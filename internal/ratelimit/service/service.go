// Package service decides rate limit checks against a primary store with
// an in-process fallback behind a circuit breaker. Redis outages degrade
// limiting to per-replica windows instead of disabling it.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"custos/internal/ratelimit"
	"custos/internal/ratelimit/metrics"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/platform/circuit"
)

const defaultProbeInterval = 5 * time.Second

// Store records a request against a keyed window and reports the outcome.
type Store interface {
	Allow(ctx context.Context, key string, limit ratelimit.Limit) (*ratelimit.Result, error)
}

// Limiter runs checks on the primary store while the circuit is closed.
// After enough consecutive primary failures the circuit opens and checks
// shift to the fallback, with periodic probes against the primary until
// it recovers.
type Limiter struct {
	primary       Store
	fallback      Store
	breaker       *circuit.Breaker
	config        ratelimit.Config
	probeInterval time.Duration
	lastProbe     atomic.Int64
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// WithConfig replaces the default per-class budgets.
func WithConfig(cfg ratelimit.Config) Option {
	return func(l *Limiter) {
		l.config = cfg
	}
}

// WithProbeInterval sets how often an open circuit retries the primary.
func WithProbeInterval(d time.Duration) Option {
	return func(l *Limiter) {
		l.probeInterval = d
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(l *Limiter) {
		l.breaker = b
	}
}

// New constructs the limiter. With a nil primary every check runs on the
// fallback store, which suits single-node deployments without Redis.
func New(primary Store, fallback Store, opts ...Option) (*Limiter, error) {
	if fallback == nil {
		return nil, errors.New("fallback store is required")
	}
	l := &Limiter{
		primary:       primary,
		fallback:      fallback,
		breaker:       circuit.New("ratelimit"),
		config:        ratelimit.DefaultConfig(),
		probeInterval: defaultProbeInterval,
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.config.Validate(); err != nil {
		return nil, err
	}
	if l.probeInterval <= 0 {
		return nil, errors.New("probe interval must be positive")
	}
	l.lastProbe.Store(time.Now().UnixNano())
	return l, nil
}

// Check records one request from ip against the class budget.
func (l *Limiter) Check(ctx context.Context, ip string, class ratelimit.EndpointClass) (*ratelimit.Result, error) {
	key := ratelimit.KeyForIP(class, ip)
	limit := l.config.LimitFor(class)

	if l.primary == nil {
		return l.checkFallback(ctx, key, limit, class, false)
	}

	if l.breaker.IsOpen() && !l.takeProbe() {
		return l.checkFallback(ctx, key, limit, class, true)
	}

	result, err := l.primary.Allow(ctx, key, limit)
	if err != nil {
		l.metrics.IncStoreFailure()
		_, change := l.breaker.RecordFailure()
		if change.Opened {
			l.metrics.SetDegraded(true)
			if l.logger != nil {
				l.logger.ErrorContext(ctx, "rate limit store unreachable, serving from memory", "error", err)
			}
		}
		return l.checkFallback(ctx, key, limit, class, true)
	}

	_, change := l.breaker.RecordSuccess()
	if change.Closed {
		l.metrics.SetDegraded(false)
		if l.logger != nil {
			l.logger.InfoContext(ctx, "rate limit store recovered")
		}
	}

	l.metrics.IncCheck(string(class), result.Allowed)
	return result, nil
}

func (l *Limiter) checkFallback(ctx context.Context, key string, limit ratelimit.Limit, class ratelimit.EndpointClass, degraded bool) (*ratelimit.Result, error) {
	result, err := l.fallback.Allow(ctx, key, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "rate limit stores unavailable")
	}
	result.Degraded = degraded
	l.metrics.IncCheck(string(class), result.Allowed)
	return result, nil
}

// takeProbe claims the next probe slot. At most one caller per interval
// reaches the primary while the circuit is open.
func (l *Limiter) takeProbe() bool {
	now := time.Now().UnixNano()
	last := l.lastProbe.Load()
	if now-last < l.probeInterval.Nanoseconds() {
		return false
	}
	return l.lastProbe.CompareAndSwap(last, now)
}
