// Package service owns audit log writes and reads: validation, defaulting,
// and the aggregate rollup.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"custos/internal/audit"
	"custos/internal/audit/metrics"
	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/platform/sentinel"
	"custos/pkg/requestcontext"
)

// Service validates and appends entries and answers queries. It is the only
// writer to the audit store.
type Service struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs the audit service.
func New(store audit.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("audit store is required")
	}
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Record validates the entry, assigns its identity and timestamps, and
// appends it. A zero Timestamp defaults to the request time. The stored
// entry is returned.
func (s *Service) Record(ctx context.Context, entry audit.Entry) (*audit.Entry, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	if entry.Timestamp.IsZero() {
		entry.Timestamp = now
	}
	entry.Timestamp = entry.Timestamp.UTC()
	entry.RecordedAt = now.UTC()

	if entry.ID.IsNil() {
		entry.ID = id.NewEntryID()
	}
	if entry.RequestID == "" {
		entry.RequestID = requestcontext.RequestID(ctx)
	}
	if entry.Details == nil {
		entry.Details = audit.GenericDetails{}
	}

	if err := s.store.Append(ctx, entry); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "audit entry already recorded")
		}
		s.metrics.IncRecordFailure()
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append audit entry")
	}

	s.metrics.IncRecorded(string(entry.Kind), string(entry.Category()))
	if s.logger != nil {
		s.logger.InfoContext(ctx, "audit entry recorded",
			"entry_id", entry.ID,
			"kind", entry.Kind,
			"actor_kind", entry.Actor.Kind,
			"success", entry.Success,
			"request_id", entry.RequestID,
			"log_type", "audit",
		)
	}
	return &entry, nil
}

// Query returns one page of entries matching the filter plus the total
// match count.
func (s *Service) Query(ctx context.Context, q audit.Query) (*audit.Page, error) {
	q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	page, err := s.store.List(ctx, q)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query audit entries")
	}
	s.metrics.ObserveQueryDuration(time.Since(start))

	if page.Entries == nil {
		page.Entries = []audit.Entry{}
	}
	return page, nil
}

// Summarize rolls up entry counts per kind and category since the given
// instant.
func (s *Service) Summarize(ctx context.Context, since time.Time) (*audit.Summary, error) {
	byKind, err := s.store.CountsByKindSince(ctx, since)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to summarize audit entries")
	}

	summary := &audit.Summary{
		Since:      since,
		ByKind:     byKind,
		ByCategory: make(map[audit.Category]int),
	}
	for kind, count := range byKind {
		summary.Total += count
		summary.ByCategory[kind.Category()] += count
	}
	return summary, nil
}
