// Package service orchestrates risk assessments: it loads the subject's
// directory record and trailing audit activity, derives signals, and scores
// them under the configured policy.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"custos/internal/audit"
	"custos/internal/directory"
	"custos/internal/risk"
	"custos/internal/risk/metrics"
	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/platform/sentinel"
	"custos/pkg/requestcontext"
)

const defaultCheckTimeout = 5 * time.Second

// AccountDirectory reads the subject's account record.
type AccountDirectory interface {
	GetAccount(ctx context.Context, accountID id.AccountID) (*directory.Account, error)
}

// ActivityReader lists a subject's audit entries since an instant.
// Diagnostic kinds are excluded at the store.
type ActivityReader interface {
	ListByActorSince(ctx context.Context, actorID id.AccountID, since time.Time) ([]audit.Entry, error)
}

// Service computes assessments. Stateless between calls; every assessment
// re-reads its inputs.
type Service struct {
	directory    AccountDirectory
	activity     ActivityReader
	policy       risk.Policy
	checkTimeout time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics
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

// WithPolicy replaces the default scoring policy. The policy is validated
// during construction.
func WithPolicy(p risk.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithCheckTimeout bounds each outbound store call.
func WithCheckTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.checkTimeout = d
	}
}

// New constructs the risk service.
func New(dir AccountDirectory, activity ActivityReader, opts ...Option) (*Service, error) {
	if dir == nil {
		return nil, errors.New("account directory is required")
	}
	if activity == nil {
		return nil, errors.New("activity reader is required")
	}
	s := &Service{
		directory:    dir,
		activity:     activity,
		policy:       risk.DefaultPolicy(),
		checkTimeout: defaultCheckTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.policy.Validate(); err != nil {
		return nil, fmt.Errorf("risk policy: %w", err)
	}
	if s.checkTimeout <= 0 {
		return nil, errors.New("check timeout must be positive")
	}
	return s, nil
}

// Policy returns the active scoring policy.
func (s *Service) Policy() risk.Policy {
	return s.policy
}

// Assess scores one subject. Unknown subjects are NotFound; an empty
// activity history scores on account age alone.
func (s *Service) Assess(ctx context.Context, subjectID id.AccountID) (*risk.Assessment, error) {
	if subjectID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "subject id is required")
	}
	now := requestcontext.Now(ctx)
	start := time.Now()

	account, err := s.getAccount(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	entries, err := s.listActivity(ctx, subjectID, now.Add(-s.policy.ActivityWindow))
	if err != nil {
		return nil, err
	}

	signals := risk.BuildSignals(account.AgeAt(now), entries, s.policy)
	score, factors := s.policy.Evaluate(signals)
	level := s.policy.LevelFor(score)
	if factors == nil {
		factors = []risk.Factor{}
	}

	s.metrics.ObserveScore(score)
	s.metrics.IncAssessed(string(level))
	s.metrics.ObserveAssessDuration(time.Since(start))

	if s.logger != nil {
		s.logger.DebugContext(ctx, "risk assessed",
			"subject_id", subjectID,
			"score", score,
			"level", level,
			"factors", len(factors),
		)
	}

	return &risk.Assessment{
		SubjectID:  subjectID,
		Score:      score,
		Level:      level,
		Factors:    factors,
		Inputs:     signals,
		ComputedAt: now.UTC(),
	}, nil
}

func (s *Service) getAccount(ctx context.Context, subjectID id.AccountID) (*directory.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.checkTimeout)
	defer cancel()

	account, err := s.directory.GetAccount(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "unknown subject")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "directory unavailable")
	}
	return account, nil
}

func (s *Service) listActivity(ctx context.Context, subjectID id.AccountID, since time.Time) ([]audit.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.checkTimeout)
	defer cancel()

	entries, err := s.activity.ListByActorSince(ctx, subjectID, since)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit store unavailable")
	}
	return entries, nil
}
