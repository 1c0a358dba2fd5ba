// Package service runs the fraud checks: per-subject context, per-IP
// failure clustering, and population anomaly detection, individually or as
// one concurrent sweep.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"custos/internal/audit"
	"custos/internal/device"
	"custos/internal/fraud"
	"custos/internal/fraud/metrics"
	"custos/internal/risk"
	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
	strutil "custos/pkg/platform/strings"
	"custos/pkg/requestcontext"
)

const instrumentationName = "custos/internal/fraud"

// Config carries the detector thresholds. Count limits are exclusive: a
// value must be strictly greater to flag.
type Config struct {
	// IP check: flag an IP when failedCount > FailedLoginLimit OR
	// distinctSubjects > SubjectSpreadLimit.
	FailedLoginLimit   int
	SubjectSpreadLimit int

	// Contextual account flags. Deliberately tighter than the scorer's
	// spread thresholds; the two are tuned independently.
	LocationFlagLimit int
	DeviceFlagLimit   int

	// Population check: flag when count/baseline exceeds the ratio.
	LoginRatioLimit        float64
	RegistrationRatioLimit float64

	// DetectionWindow bounds the account and IP checks; BaselineWindow
	// bounds the population check.
	DetectionWindow time.Duration
	BaselineWindow  time.Duration

	// CheckTimeout bounds each individual check.
	CheckTimeout time.Duration
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		FailedLoginLimit:       10,
		SubjectSpreadLimit:     3,
		LocationFlagLimit:      2,
		DeviceFlagLimit:        2,
		LoginRatioLimit:        3,
		RegistrationRatioLimit: 2,
		DetectionWindow:        24 * time.Hour,
		BaselineWindow:         30 * 24 * time.Hour,
		CheckTimeout:           5 * time.Second,
	}
}

// Validate rejects configurations that would disable or invert a check.
func (c Config) Validate() error {
	if c.FailedLoginLimit < 0 || c.SubjectSpreadLimit < 0 {
		return errors.New("ip limits must be non-negative")
	}
	if c.LocationFlagLimit < 0 || c.DeviceFlagLimit < 0 {
		return errors.New("contextual flag limits must be non-negative")
	}
	if c.LoginRatioLimit <= 0 || c.RegistrationRatioLimit <= 0 {
		return errors.New("ratio limits must be positive")
	}
	if c.DetectionWindow <= 0 || c.BaselineWindow <= 0 {
		return errors.New("windows must be positive")
	}
	if c.CheckTimeout <= 0 {
		return errors.New("check timeout must be positive")
	}
	return nil
}

// DetectionStore answers the aggregate questions detection asks. Every
// method excludes diagnostic kinds at the store.
type DetectionStore interface {
	ListByActorSince(ctx context.Context, actorID id.AccountID, since time.Time) ([]audit.Entry, error)
	FailureStatsByIPSince(ctx context.Context, since time.Time) ([]audit.IPFailureStat, error)
	ActivityStatsSince(ctx context.Context, since time.Time) ([]audit.ActorActivityStat, error)
}

// Assessor scores a subject. The risk service implements it.
type Assessor interface {
	Assess(ctx context.Context, subjectID id.AccountID) (*risk.Assessment, error)
}

// Recorder appends diagnostic entries. The audit service implements it.
type Recorder interface {
	Record(ctx context.Context, entry audit.Entry) (*audit.Entry, error)
}

// FindingSink receives findings for asynchronous publication. Must never
// block.
type FindingSink interface {
	Publish(finding fraud.Finding)
}

// Service runs the checks. Stateless between calls.
type Service struct {
	store    DetectionStore
	assessor Assessor
	cfg      Config
	recorder Recorder
	findings FindingSink
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
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

// WithRecorder enables detection_completed diagnostics. Appends that fail
// are logged and swallowed.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithFindingSink mirrors findings to the security topic.
func WithFindingSink(sink FindingSink) Option {
	return func(s *Service) {
		s.findings = sink
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer(instrumentationName)
	}
}

// New constructs the fraud service.
func New(store DetectionStore, assessor Assessor, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("detection store is required")
	}
	if assessor == nil {
		return nil, errors.New("assessor is required")
	}
	s := &Service{
		store:    store,
		assessor: assessor,
		cfg:      DefaultConfig(),
		tracer:   noop.NewTracerProvider().Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("fraud config: %w", err)
	}
	return s, nil
}

// CheckAccount assesses one subject and adds the detector's contextual
// flags, computed from the subject's trailing-window entries with the
// detector's own thresholds.
func (s *Service) CheckAccount(ctx context.Context, subjectID id.AccountID) (*fraud.AccountReport, error) {
	report, err := s.accountCheck(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx).UTC()
	level := ""
	if report.Assessment != nil {
		level = string(report.Assessment.Level)
	}
	s.recordDiagnostic(ctx, now, true, audit.DetectionDetails{
		Check:            "account",
		SubjectID:        subjectID,
		UserActivityRisk: level,
		LocationFlag:     report.LocationFlag,
		DeviceFlag:       report.DeviceFlag,
	})
	s.emitAccountFindings(report, now)
	return report, nil
}

// CheckIPs groups the window's failed entries by source IP and flags each
// IP with too many failures or too wide a subject spread.
func (s *Service) CheckIPs(ctx context.Context) (*fraud.IPReport, error) {
	report, err := s.ipCheck(ctx)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx).UTC()
	s.recordDiagnostic(ctx, now, true, audit.DetectionDetails{
		Check:      "ips",
		FlaggedIPs: len(report.Flagged),
	})
	s.emitIPFindings(report, now)
	return report, nil
}

// CheckPopulation compares each account active in the baseline window
// against the population's average login and registration counts. An empty
// population or a zero baseline yields an empty report, never an error.
func (s *Service) CheckPopulation(ctx context.Context) (*fraud.AnomalyReport, error) {
	report, err := s.populationCheck(ctx)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx).UTC()
	s.recordDiagnostic(ctx, now, true, audit.DetectionDetails{
		Check:     "population",
		Anomalies: len(report.Anomalies),
	})
	s.emitAnomalyFindings(report, now)
	return report, nil
}

// RunSweep runs the three checks concurrently and folds them into one
// report with three independent labels. A failing check contributes a
// fault slot and degrades its label to the zero value; it never cancels
// its siblings. An unknown subject fails the whole sweep.
func (s *Service) RunSweep(ctx context.Context, subjectID id.AccountID) (*fraud.SweepReport, error) {
	if subjectID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "subject id is required")
	}
	startedAt := requestcontext.Now(ctx)
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "fraud.run_sweep",
		trace.WithAttributes(attribute.String("fraud.subject_id", subjectID.String())))
	defer span.End()

	var (
		account      *fraud.AccountReport
		accountErr   error
		ips          *fraud.IPReport
		ipsErr       error
		anomalies    *fraud.AnomalyReport
		anomaliesErr error
	)

	// No shared cancellation: sibling checks must finish even when one
	// fails.
	var wg sync.WaitGroup
	wg.Go(func() {
		account, accountErr = s.accountCheck(ctx, subjectID)
	})
	wg.Go(func() {
		ips, ipsErr = s.ipCheck(ctx)
	})
	wg.Go(func() {
		anomalies, anomaliesErr = s.populationCheck(ctx)
	})
	wg.Wait()

	if accountErr != nil && dErrors.HasCode(accountErr, dErrors.CodeNotFound) {
		return nil, s.spanErr(span, accountErr)
	}

	report := &fraud.SweepReport{
		SubjectID:        subjectID,
		UserActivityRisk: risk.LevelLow,
		IPFraudRisk:      risk.LevelLow,
		AnomalyRisk:      risk.LevelLow,
		Account:          account,
		IPs:              ips,
		Anomalies:        anomalies,
		StartedAt:        startedAt.UTC(),
	}

	checkErrs := []struct {
		check string
		err   error
	}{
		{"account", accountErr},
		{"ips", ipsErr},
		{"population", anomaliesErr},
	}
	for _, c := range checkErrs {
		if c.err == nil {
			continue
		}
		report.Faults = append(report.Faults, fmt.Sprintf("%s check: %v", c.check, c.err))
		s.metrics.IncCheckFailure(c.check)
		if s.logger != nil {
			s.logger.WarnContext(ctx, "sweep check failed",
				"check", c.check,
				"subject_id", subjectID,
				"error", c.err,
			)
		}
	}

	if account != nil && account.Assessment != nil {
		report.UserActivityRisk = account.Assessment.Level
	}
	if account != nil && ips != nil {
		flagged := ips.FlaggedSet()
		for _, ip := range account.SourceIPs {
			if _, ok := flagged[ip]; ok {
				report.IPFraudRisk = risk.LevelHigh
				break
			}
		}
	}
	if anomalies != nil && anomalies.Contains(subjectID) {
		report.AnomalyRisk = risk.LevelHigh
	}
	report.CompletedAt = report.StartedAt.Add(time.Since(start))

	s.metrics.IncSweep()
	s.metrics.ObserveSweepDuration(time.Since(start))

	flaggedIPs := 0
	if ips != nil {
		flaggedIPs = len(ips.Flagged)
	}
	anomalyCount := 0
	if anomalies != nil {
		anomalyCount = len(anomalies.Anomalies)
	}
	s.recordDiagnostic(ctx, report.CompletedAt, len(report.Faults) == 0, audit.DetectionDetails{
		Check:            "sweep",
		SubjectID:        subjectID,
		UserActivityRisk: string(report.UserActivityRisk),
		IPFraudRisk:      string(report.IPFraudRisk),
		AnomalyRisk:      string(report.AnomalyRisk),
		FlaggedIPs:       flaggedIPs,
		Anomalies:        anomalyCount,
		Faults:           report.Faults,
	})
	s.emitAccountFindings(account, report.CompletedAt)
	s.emitIPFindings(ips, report.CompletedAt)
	s.emitAnomalyFindings(anomalies, report.CompletedAt)

	return report, nil
}

func (s *Service) accountCheck(ctx context.Context, subjectID id.AccountID) (*fraud.AccountReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CheckTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "fraud.check_account",
		trace.WithAttributes(attribute.String("fraud.subject_id", subjectID.String())))
	defer span.End()

	assessment, err := s.assessor.Assess(ctx, subjectID)
	if err != nil {
		return nil, s.spanErr(span, err)
	}

	now := requestcontext.Now(ctx)
	entries, err := s.store.ListByActorSince(ctx, subjectID, now.Add(-s.cfg.DetectionWindow))
	if err != nil {
		return nil, s.spanErr(span,
			dErrors.Wrap(err, dErrors.CodeUnavailable, "audit store unavailable"))
	}

	ips, agents := loginEvidence(entries)
	report := &fraud.AccountReport{
		SubjectID:         subjectID,
		Assessment:        assessment,
		DistinctLocations: len(ips),
		DistinctDevices:   device.DistinctNames(agents),
		SourceIPs:         ips,
	}
	report.LocationFlag = report.DistinctLocations > s.cfg.LocationFlagLimit
	report.DeviceFlag = report.DistinctDevices > s.cfg.DeviceFlagLimit

	span.SetAttributes(
		attribute.Float64("fraud.score", assessment.Score),
		attribute.Bool("fraud.location_flag", report.LocationFlag),
		attribute.Bool("fraud.device_flag", report.DeviceFlag),
	)
	return report, nil
}

func (s *Service) ipCheck(ctx context.Context) (*fraud.IPReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CheckTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "fraud.check_ips")
	defer span.End()

	now := requestcontext.Now(ctx)
	windowStart := now.Add(-s.cfg.DetectionWindow)
	stats, err := s.store.FailureStatsByIPSince(ctx, windowStart)
	if err != nil {
		return nil, s.spanErr(span,
			dErrors.Wrap(err, dErrors.CodeUnavailable, "audit store unavailable"))
	}

	report := &fraud.IPReport{WindowStart: windowStart, Examined: len(stats)}
	for _, stat := range stats {
		var reasons []string
		if stat.FailedCount > s.cfg.FailedLoginLimit {
			reasons = append(reasons, "failed_count")
		}
		if stat.DistinctActors > s.cfg.SubjectSpreadLimit {
			reasons = append(reasons, "subject_spread")
		}
		if len(reasons) == 0 {
			continue
		}
		report.Flagged = append(report.Flagged, fraud.IPFlag{
			IP:               stat.IP,
			FailedCount:      stat.FailedCount,
			DistinctSubjects: stat.DistinctActors,
			Reasons:          reasons,
		})
	}

	s.metrics.AddIPsFlagged(len(report.Flagged))
	span.SetAttributes(
		attribute.Int("fraud.ips_examined", report.Examined),
		attribute.Int("fraud.ips_flagged", len(report.Flagged)),
	)
	return report, nil
}

func (s *Service) populationCheck(ctx context.Context) (*fraud.AnomalyReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CheckTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "fraud.check_population")
	defer span.End()

	now := requestcontext.Now(ctx)
	windowStart := now.Add(-s.cfg.BaselineWindow)
	stats, err := s.store.ActivityStatsSince(ctx, windowStart)
	if err != nil {
		return nil, s.spanErr(span,
			dErrors.Wrap(err, dErrors.CodeUnavailable, "audit store unavailable"))
	}

	report := &fraud.AnomalyReport{WindowStart: windowStart, Population: len(stats)}
	if len(stats) == 0 {
		return report, nil
	}

	var loginSum, regSum int
	for _, stat := range stats {
		loginSum += stat.LoginCount
		regSum += stat.RegistrationCount
	}
	report.LoginBaseline = float64(loginSum) / float64(len(stats))
	report.RegistrationBaseline = float64(regSum) / float64(len(stats))

	for _, stat := range stats {
		if report.LoginBaseline > 0 {
			ratio := float64(stat.LoginCount) / report.LoginBaseline
			if ratio > s.cfg.LoginRatioLimit {
				report.Anomalies = append(report.Anomalies, fraud.Anomaly{
					SubjectID: stat.ActorID,
					Metric:    fraud.MetricLogins,
					Count:     stat.LoginCount,
					Baseline:  report.LoginBaseline,
					Ratio:     ratio,
				})
			}
		}
		if report.RegistrationBaseline > 0 {
			ratio := float64(stat.RegistrationCount) / report.RegistrationBaseline
			if ratio > s.cfg.RegistrationRatioLimit {
				report.Anomalies = append(report.Anomalies, fraud.Anomaly{
					SubjectID: stat.ActorID,
					Metric:    fraud.MetricRegistrations,
					Count:     stat.RegistrationCount,
					Baseline:  report.RegistrationBaseline,
					Ratio:     ratio,
				})
			}
		}
	}

	s.metrics.AddAnomalies(len(report.Anomalies))
	span.SetAttributes(
		attribute.Int("fraud.population", report.Population),
		attribute.Int("fraud.anomalies", len(report.Anomalies)),
	)
	return report, nil
}

func (s *Service) spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// recordDiagnostic appends a detection_completed entry. Every detection
// call logs its own findings; the stores exclude diagnostic kinds from
// detection aggregates so the log cannot feed back into itself. Failures
// are logged and swallowed: diagnostics must never fail a check.
func (s *Service) recordDiagnostic(ctx context.Context, at time.Time, success bool, details audit.DetectionDetails) {
	if s.recorder == nil {
		return
	}
	_, err := s.recorder.Record(ctx, audit.Entry{
		Kind:      audit.KindDetectionCompleted,
		Actor:     audit.Actor{Kind: audit.ActorSystem, DisplayName: "fraud-detector"},
		Success:   success,
		Details:   details,
		Timestamp: at,
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to record detection diagnostic",
			"check", details.Check,
			"error", err,
		)
	}
}

func (s *Service) emitAccountFindings(report *fraud.AccountReport, at time.Time) {
	if s.findings == nil || report == nil || report.Assessment == nil {
		return
	}
	if !report.Assessment.Level.AtLeast(risk.LevelHigh) {
		return
	}
	s.publish(fraud.Finding{
		Kind:       fraud.FindingAccountRisk,
		SubjectID:  report.SubjectID,
		Severity:   string(report.Assessment.Level),
		Summary:    "account activity scored " + string(report.Assessment.Level),
		DetectedAt: at,
	})
}

func (s *Service) emitIPFindings(report *fraud.IPReport, at time.Time) {
	if s.findings == nil || report == nil {
		return
	}
	for _, flag := range report.Flagged {
		s.publish(fraud.Finding{
			Kind:     fraud.FindingIPFraud,
			IP:       flag.IP,
			Severity: string(risk.LevelHigh),
			Summary: fmt.Sprintf("%d failed logins from %d subjects",
				flag.FailedCount, flag.DistinctSubjects),
			DetectedAt: at,
		})
	}
}

func (s *Service) emitAnomalyFindings(report *fraud.AnomalyReport, at time.Time) {
	if s.findings == nil || report == nil {
		return
	}
	for _, anomaly := range report.Anomalies {
		s.publish(fraud.Finding{
			Kind:      fraud.FindingPopulationAnomaly,
			SubjectID: anomaly.SubjectID,
			Severity:  string(risk.LevelHigh),
			Summary: fmt.Sprintf("%s count %d is %.1fx the population baseline",
				anomaly.Metric, anomaly.Count, anomaly.Ratio),
			DetectedAt: at,
		})
	}
}

func (s *Service) publish(finding fraud.Finding) {
	s.findings.Publish(finding)
	s.metrics.IncFindingQueued()
}

// loginEvidence collects the distinct source IPs and the raw agents from
// the subject's login entries.
func loginEvidence(entries []audit.Entry) ([]string, []string) {
	var ips []string
	var agents []string
	for _, e := range entries {
		switch e.Kind {
		case audit.KindLoginAttempted, audit.KindLoginSucceeded, audit.KindLoginFailed:
		default:
			continue
		}
		ips = append(ips, e.SourceIP)
		if e.SourceAgent != "" {
			agents = append(agents, e.SourceAgent)
		}
	}
	return strutil.DedupeAndTrim(ips), agents
}
