// Package service evaluates registration attempts. Three independent
// checks run concurrently: a per-subject rate limit, a risk annotation,
// and a suspicious-registration scan over the event's participants. Only
// the rate limit and the scan gate; risk never blocks.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"custos/internal/audit"
	"custos/internal/guard"
	"custos/internal/guard/metrics"
	"custos/internal/risk"
	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/requestcontext"
)

// Config carries the guard thresholds.
type Config struct {
	// RegistrationLimit denies a subject who already has this many
	// registrations inside RateWindow. Inclusive: at 10, the 11th attempt
	// is denied.
	RegistrationLimit int
	RateWindow        time.Duration

	// IPRegistrationLimit flags a registration IP carrying strictly more
	// than this many of the event's participants.
	IPRegistrationLimit int

	// CheckTimeout bounds each sub-check.
	CheckTimeout time.Duration
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		RegistrationLimit:   10,
		RateWindow:          24 * time.Hour,
		IPRegistrationLimit: 5,
		CheckTimeout:        5 * time.Second,
	}
}

// Validate rejects configurations that would disable or invert a check.
func (c Config) Validate() error {
	if c.RegistrationLimit <= 0 {
		return errors.New("registration limit must be positive")
	}
	if c.RateWindow <= 0 {
		return errors.New("rate window must be positive")
	}
	if c.IPRegistrationLimit <= 0 {
		return errors.New("ip registration limit must be positive")
	}
	if c.CheckTimeout <= 0 {
		return errors.New("check timeout must be positive")
	}
	return nil
}

// ActivityStore answers the audit questions the guard asks.
type ActivityStore interface {
	CountByActorKindSince(ctx context.Context, actorID id.AccountID, kind audit.Kind, since time.Time) (int, error)
	LastIPByActors(ctx context.Context, kind audit.Kind, actorIDs []id.AccountID) (map[id.AccountID]string, error)
}

// Assessor scores a subject. The risk service implements it.
type Assessor interface {
	Assess(ctx context.Context, subjectID id.AccountID) (*risk.Assessment, error)
}

// ParticipantDirectory lists an event's registered participants.
type ParticipantDirectory interface {
	ListParticipants(ctx context.Context, eventID id.EventID) ([]id.AccountID, error)
}

// Recorder appends diagnostic entries. The audit service implements it.
type Recorder interface {
	Record(ctx context.Context, entry audit.Entry) (*audit.Entry, error)
}

// Service evaluates registrations. Stateless between calls.
type Service struct {
	activity ActivityStore
	assessor Assessor
	events   ParticipantDirectory
	cfg      Config
	recorder Recorder
	logger   *slog.Logger
	metrics  *metrics.Metrics
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

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

// WithRecorder enables guard_evaluated diagnostics. Appends that fail are
// logged and swallowed.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// New constructs the guard.
func New(activity ActivityStore, assessor Assessor, events ParticipantDirectory, opts ...Option) (*Service, error) {
	if activity == nil {
		return nil, errors.New("activity store is required")
	}
	if assessor == nil {
		return nil, errors.New("assessor is required")
	}
	if events == nil {
		return nil, errors.New("participant directory is required")
	}
	s := &Service{
		activity: activity,
		assessor: assessor,
		events:   events,
		cfg:      DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("guard config: %w", err)
	}
	return s, nil
}

// CheckRegistration evaluates one registration attempt. The rate limit
// denies on its own; the scan denies on its own; risk only annotates. A
// failed risk or scan check degrades to its zero value with the fault
// recorded, while a failed rate-limit read denies outright. An unknown
// subject fails the whole evaluation.
func (s *Service) CheckRegistration(ctx context.Context, subjectID id.AccountID, eventID id.EventID) (*guard.Decision, error) {
	if subjectID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "subject id is required")
	}
	if eventID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "event id is required")
	}
	now := requestcontext.Now(ctx)
	start := time.Now()

	var (
		count         int
		rateErr       error
		assessment    *risk.Assessment
		riskErr       error
		suspiciousIPs []string
		scanErr       error
	)

	// Fire and join. Sub-checks never cancel each other; each carries its
	// own timeout.
	var wg sync.WaitGroup
	wg.Go(func() {
		count, rateErr = s.countRecentRegistrations(ctx, subjectID, now)
	})
	wg.Go(func() {
		assessment, riskErr = s.assessSubject(ctx, subjectID)
	})
	wg.Go(func() {
		suspiciousIPs, scanErr = s.scanParticipants(ctx, eventID)
	})
	wg.Wait()

	if riskErr != nil && dErrors.HasCode(riskErr, dErrors.CodeNotFound) {
		return nil, riskErr
	}

	decision := &guard.Decision{
		SubjectID:   subjectID,
		EventID:     eventID,
		EvaluatedAt: now.UTC(),
	}

	rateOK := false
	switch {
	case rateErr != nil:
		// The gate itself must not fail open.
		decision.Faults = append(decision.Faults, fmt.Sprintf("rate check: %v", rateErr))
		decision.Reasons = append(decision.Reasons, guard.ReasonRateLimitUnavailable)
		s.metrics.IncCheckFailure("rate")
	case count >= s.cfg.RegistrationLimit:
		decision.RecentRegistrations = count
		decision.Reasons = append(decision.Reasons, guard.ReasonRateLimitExceeded)
	default:
		decision.RecentRegistrations = count
		rateOK = true
	}

	if riskErr != nil {
		decision.Faults = append(decision.Faults, fmt.Sprintf("risk check: %v", riskErr))
		s.metrics.IncCheckFailure("risk")
	} else {
		decision.RiskLevel = assessment.Level
		decision.RequiresVerification = assessment.Level != risk.LevelLow
	}

	suspicious := false
	if scanErr != nil {
		decision.Faults = append(decision.Faults, fmt.Sprintf("scan check: %v", scanErr))
		s.metrics.IncCheckFailure("scan")
	} else if len(suspiciousIPs) > 0 {
		suspicious = true
		decision.SuspiciousIPs = suspiciousIPs
		decision.Reasons = append(decision.Reasons, guard.ReasonSuspiciousRegistrations)
	}

	decision.Allowed = rateOK && !suspicious

	s.metrics.IncEvaluated(decision.Allowed)
	if !decision.Allowed {
		for _, reason := range decision.Reasons {
			s.metrics.IncDenial(reason)
		}
	}
	s.metrics.ObserveEvaluateDuration(time.Since(start))
	if s.logger != nil {
		s.logger.InfoContext(ctx, "registration evaluated",
			"subject_id", subjectID,
			"event_id", eventID,
			"allowed", decision.Allowed,
			"requires_verification", decision.RequiresVerification,
			"reasons", decision.Reasons,
			"log_type", "audit",
		)
	}
	s.recordDiagnostic(ctx, decision)

	return decision, nil
}

func (s *Service) countRecentRegistrations(ctx context.Context, subjectID id.AccountID, now time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CheckTimeout)
	defer cancel()

	count, err := s.activity.CountByActorKindSince(ctx, subjectID,
		audit.KindRegistrationSubmitted, now.Add(-s.cfg.RateWindow))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit store unavailable")
	}
	return count, nil
}

func (s *Service) assessSubject(ctx context.Context, subjectID id.AccountID) (*risk.Assessment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CheckTimeout)
	defer cancel()
	return s.assessor.Assess(ctx, subjectID)
}

// scanParticipants groups the event's participants by the IP their latest
// registration came from and returns the IPs carrying more than the limit.
func (s *Service) scanParticipants(ctx context.Context, eventID id.EventID) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CheckTimeout)
	defer cancel()

	participants, err := s.events.ListParticipants(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "directory unavailable")
	}
	if len(participants) == 0 {
		return nil, nil
	}

	lastIPs, err := s.activity.LastIPByActors(ctx, audit.KindRegistrationSubmitted, participants)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit store unavailable")
	}

	counts := make(map[string]int)
	for _, ip := range lastIPs {
		counts[ip]++
	}
	var flagged []string
	for ip, n := range counts {
		if n > s.cfg.IPRegistrationLimit {
			flagged = append(flagged, ip)
		}
	}
	sort.Strings(flagged)
	return flagged, nil
}

// recordDiagnostic appends a guard_evaluated entry. Failures are logged
// and swallowed: diagnostics must never fail an evaluation.
func (s *Service) recordDiagnostic(ctx context.Context, decision *guard.Decision) {
	if s.recorder == nil {
		return
	}
	_, err := s.recorder.Record(ctx, audit.Entry{
		Kind:    audit.KindGuardEvaluated,
		Actor:   audit.Actor{Kind: audit.ActorSystem, DisplayName: "registration-guard"},
		Success: len(decision.Faults) == 0,
		Details: audit.GuardDetails{
			SubjectID:            decision.SubjectID,
			EventID:              decision.EventID,
			Allowed:              decision.Allowed,
			RequiresVerification: decision.RequiresVerification,
			Reasons:              decision.Reasons,
			Faults:               decision.Faults,
		},
		Timestamp: decision.EvaluatedAt,
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to record guard diagnostic",
			"subject_id", decision.SubjectID,
			"event_id", decision.EventID,
			"error", err,
		)
	}
}
