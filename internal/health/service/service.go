// Package service assembles health reports. A report is all-or-nothing:
// if any configured dependency cannot be sampled the whole report fails,
// so a 200 from the endpoint means every section is fresh and true.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"custos/internal/health"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/requestcontext"
)

const (
	defaultReportTimeout = 5 * time.Second
	defaultRecentWindow  = 24 * time.Hour
)

// DatabasePinger is the subset of *sql.DB the reporter needs.
type DatabasePinger interface {
	PingContext(ctx context.Context) error
	Stats() sql.DBStats
}

// CachePinger checks cache connectivity.
type CachePinger interface {
	Health(ctx context.Context) error
}

// EntryCounter counts stored audit entries, diagnostics included.
type EntryCounter interface {
	CountTotal(ctx context.Context) (int, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// Service samples the runtime and the configured dependencies on demand.
// Nothing is cached between reports.
type Service struct {
	counter       EntryCounter
	db            DatabasePinger
	cache         CachePinger
	started       time.Time
	recentWindow  time.Duration
	reportTimeout time.Duration
	logger        *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithDatabase registers the SQL pool to ping. Without it the report
// omits the database section.
func WithDatabase(db DatabasePinger) Option {
	return func(s *Service) {
		s.db = db
	}
}

// WithCache registers the cache to ping. Without it the report omits the
// cache section.
func WithCache(c CachePinger) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithRecentWindow overrides the 24h window behind EntriesLast24h.
func WithRecentWindow(d time.Duration) Option {
	return func(s *Service) {
		s.recentWindow = d
	}
}

// WithReportTimeout bounds one whole report.
func WithReportTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.reportTimeout = d
	}
}

// WithStartTime overrides the process start instant used for uptime.
func WithStartTime(t time.Time) Option {
	return func(s *Service) {
		s.started = t
	}
}

// New constructs the health reporter.
func New(counter EntryCounter, opts ...Option) (*Service, error) {
	if counter == nil {
		return nil, errors.New("entry counter is required")
	}
	s := &Service{
		counter:       counter,
		started:       time.Now(),
		recentWindow:  defaultRecentWindow,
		reportTimeout: defaultReportTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.recentWindow <= 0 {
		return nil, errors.New("recent window must be positive")
	}
	if s.reportTimeout <= 0 {
		return nil, errors.New("report timeout must be positive")
	}
	return s, nil
}

// Report samples everything. The dependency probes run concurrently and
// the first failure cancels the rest; no partial report is ever returned.
func (s *Service) Report(ctx context.Context) (*health.Report, error) {
	now := requestcontext.Now(ctx)

	ctx, cancel := context.WithTimeout(ctx, s.reportTimeout)
	defer cancel()

	report := &health.Report{
		Runtime:   s.sampleRuntime(now),
		SampledAt: now.UTC(),
	}

	g, ctx := errgroup.WithContext(ctx)
	if s.db != nil {
		g.Go(func() error {
			stats, err := s.pingDatabase(ctx)
			if err != nil {
				return err
			}
			report.Database = stats
			return nil
		})
	}
	if s.cache != nil {
		g.Go(func() error {
			if err := s.cache.Health(ctx); err != nil {
				return dErrors.Wrap(err, dErrors.CodeUnavailable, "cache unreachable")
			}
			report.Cache = &health.CacheStats{Connected: true}
			return nil
		})
	}
	g.Go(func() error {
		stats, err := s.countEntries(ctx, now.Add(-s.recentWindow))
		if err != nil {
			return err
		}
		report.AuditStore = *stats
		return nil
	})

	if err := g.Wait(); err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "health report failed", "error", err)
		}
		return nil, err
	}
	return report, nil
}

func (s *Service) sampleRuntime(now time.Time) health.RuntimeStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return health.RuntimeStats{
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: ms.HeapAlloc,
		HeapInUseBytes: ms.HeapInuse,
		GCCycles:       ms.NumGC,
		UptimeSeconds:  now.Sub(s.started).Seconds(),
	}
}

func (s *Service) pingDatabase(ctx context.Context) (*health.DatabaseStats, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "database unreachable")
	}
	stats := s.db.Stats()
	return &health.DatabaseStats{
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		WaitCount:       stats.WaitCount,
	}, nil
}

func (s *Service) countEntries(ctx context.Context, since time.Time) (*health.AuditStats, error) {
	total, err := s.counter.CountTotal(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit store unavailable")
	}
	recent, err := s.counter.CountSince(ctx, since)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit store unavailable")
	}
	return &health.AuditStats{
		TotalEntries:   total,
		EntriesLast24h: recent,
	}, nil
}
