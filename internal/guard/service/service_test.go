package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"custos/internal/audit"
	auditsvc "custos/internal/audit/service"
	auditmem "custos/internal/audit/store/memory"
	"custos/internal/directory"
	dirmem "custos/internal/directory/store/memory"
	"custos/internal/guard"
	"custos/internal/risk"
	risksvc "custos/internal/risk/service"
	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	dir     *dirmem.Store
	entries *auditmem.Store
	svc     *Service
	ctx     context.Context
	now     time.Time
	subject id.AccountID
	event   id.EventID
}

func (s *ServiceSuite) SetupTest() {
	s.dir = dirmem.New()
	s.entries = auditmem.New()

	assessor, err := risksvc.New(s.dir, s.entries)
	s.Require().NoError(err)
	recorder, err := auditsvc.New(s.entries)
	s.Require().NoError(err)

	svc, err := New(s.entries, assessor, s.dir, WithRecorder(recorder))
	s.Require().NoError(err)
	s.svc = svc

	s.now = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.subject = id.NewAccountID()
	s.event = id.NewEventID()
	s.dir.PutEvent(directory.Event{
		ID:       s.event,
		Name:     "Launch Party",
		Status:   directory.EventPublished,
		StartsAt: s.now.Add(72 * time.Hour),
	})
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) putSubject(ageDays int) {
	s.dir.PutAccount(directory.Account{
		ID:        s.subject,
		Email:     "subject@example.com",
		Status:    directory.AccountActive,
		CreatedAt: s.now.Add(-time.Duration(ageDays) * 24 * time.Hour),
	})
}

func (s *ServiceSuite) seedRegistrations(actorID id.AccountID, ip string, n int, base time.Time) {
	for i := 0; i < n; i++ {
		s.Require().NoError(s.entries.Append(s.ctx, audit.Entry{
			ID:        id.NewEntryID(),
			Kind:      audit.KindRegistrationSubmitted,
			Actor:     audit.Actor{Kind: audit.ActorUser, AccountID: actorID},
			SourceIP:  ip,
			Success:   true,
			Timestamp: base.Add(-time.Duration(i) * time.Minute),
		}))
	}
}

func (s *ServiceSuite) diagnostics() []audit.Entry {
	page, err := s.entries.List(context.Background(), audit.Query{
		Kinds: []audit.Kind{audit.KindGuardEvaluated},
		Limit: audit.DefaultPageLimit,
	})
	s.Require().NoError(err)
	return page.Entries
}

func (s *ServiceSuite) TestAllow_CleanSubject() {
	s.putSubject(400)
	s.seedRegistrations(s.subject, "192.0.2.1", 2, s.now.Add(-time.Hour))

	decision, err := s.svc.CheckRegistration(s.ctx, s.subject, s.event)
	s.Require().NoError(err)
	s.True(decision.Allowed)
	s.False(decision.RequiresVerification)
	s.Equal(risk.LevelLow, decision.RiskLevel)
	s.Equal(2, decision.RecentRegistrations)
	s.Empty(decision.Reasons)
	s.Empty(decision.Faults)
	s.Equal(s.now, decision.EvaluatedAt)

	diag := s.diagnostics()
	s.Require().Len(diag, 1)
	s.True(diag[0].Success)
	details, ok := diag[0].Details.(audit.GuardDetails)
	s.Require().True(ok)
	s.Equal(s.subject, details.SubjectID)
	s.Equal(s.event, details.EventID)
	s.True(details.Allowed)
}

func (s *ServiceSuite) TestDeny_EleventhRegistration() {
	s.putSubject(10)
	s.seedRegistrations(s.subject, "192.0.2.1", 10, s.now.Add(-time.Hour))

	decision, err := s.svc.CheckRegistration(s.ctx, s.subject, s.event)
	s.Require().NoError(err)
	s.False(decision.Allowed, "the 11th registration inside the window is denied")
	s.True(decision.HasReason(guard.ReasonRateLimitExceeded))
	s.Equal(10, decision.RecentRegistrations)
	s.True(decision.RequiresVerification, "risk annotation is independent of the denial")
	s.Equal(risk.LevelMedium, decision.RiskLevel)
}

func (s *ServiceSuite) TestAllow_UnderRateLimit() {
	s.putSubject(400)
	s.seedRegistrations(s.subject, "192.0.2.1", 9, s.now.Add(-time.Hour))

	decision, err := s.svc.CheckRegistration(s.ctx, s.subject, s.event)
	s.Require().NoError(err)
	s.True(decision.Allowed)
	s.Equal(9, decision.RecentRegistrations)
}

func (s *ServiceSuite) TestRateWindowExcludesOldRegistrations() {
	s.putSubject(400)
	s.seedRegistrations(s.subject, "192.0.2.1", 7, s.now.Add(-time.Hour))
	s.seedRegistrations(s.subject, "192.0.2.1", 3, s.now.Add(-30*time.Hour))

	decision, err := s.svc.CheckRegistration(s.ctx, s.subject, s.event)
	s.Require().NoError(err)
	s.True(decision.Allowed)
	s.Equal(7, decision.RecentRegistrations)
}

func (s *ServiceSuite) TestAnnotatesMediumRiskWithoutBlocking() {
	s.putSubject(10)

	decision, err := s.svc.CheckRegistration(s.ctx, s.subject, s.event)
	s.Require().NoError(err)
	s.True(decision.Allowed)
	s.True(decision.RequiresVerification)
	s.Equal(risk.LevelMedium, decision.RiskLevel)
	s.Empty(decision.Reasons)
}

func (s *ServiceSuite) TestDeny_SuspiciousRegistrationCluster() {
	s.putSubject(400)
	// Five participants from one IP stay under the limit; six from another
	// trip it.
	for i := 0; i < 5; i++ {
		p := id.NewAccountID()
		s.dir.AddParticipant(s.event, p)
		s.seedRegistrations(p, "203.0.113.40", 1, s.now.Add(-2*time.Hour))
	}
	for i := 0; i < 6; i++ {
		p := id.NewAccountID()
		s.dir.AddParticipant(s.event, p)
		s.seedRegistrations(p, "203.0.113.50", 1, s.now.Add(-2*time.Hour))
	}

	decision, err := s.svc.CheckRegistration(s.ctx, s.subject, s.event)
	s.Require().NoError(err)
	s.False(decision.Allowed)
	s.True(decision.HasReason(guard.ReasonSuspiciousRegistrations))
	s.Equal([]string{"203.0.113.50"}, decision.SuspiciousIPs)
}

func (s *ServiceSuite) TestRateLimitReadFailureDenies() {
	s.putSubject(400)

	assessor, err := risksvc.New(s.dir, s.entries)
	s.Require().NoError(err)
	svc, err := New(&flakyActivity{Store: s.entries}, assessor, s.dir)
	s.Require().NoError(err)

	decision, err := svc.CheckRegistration(s.ctx, s.subject, s.event)
	s.Require().NoError(err)
	s.False(decision.Allowed, "the gate fails closed when its read fails")
	s.True(decision.HasReason(guard.ReasonRateLimitUnavailable))
	s.Require().Len(decision.Faults, 1)
	s.Contains(decision.Faults[0], "rate check")
	s.Equal(risk.LevelLow, decision.RiskLevel, "risk check still ran")
}

func (s *ServiceSuite) TestRiskFaultDegradesSoft() {
	s.putSubject(400)

	svc, err := New(s.entries, failingAssessor{}, s.dir)
	s.Require().NoError(err)

	decision, err := svc.CheckRegistration(s.ctx, s.subject, s.event)
	s.Require().NoError(err)
	s.True(decision.Allowed, "annotation faults never block")
	s.False(decision.RequiresVerification)
	s.Empty(decision.RiskLevel)
	s.Require().Len(decision.Faults, 1)
	s.Contains(decision.Faults[0], "risk check")
}

func (s *ServiceSuite) TestScanFaultDegradesSoft() {
	s.putSubject(400)

	assessor, err := risksvc.New(s.dir, s.entries)
	s.Require().NoError(err)
	svc, err := New(s.entries, assessor, failingDirectory{})
	s.Require().NoError(err)

	decision, err := svc.CheckRegistration(s.ctx, s.subject, s.event)
	s.Require().NoError(err)
	s.True(decision.Allowed)
	s.Empty(decision.SuspiciousIPs)
	s.Require().Len(decision.Faults, 1)
	s.Contains(decision.Faults[0], "scan check")
}

func (s *ServiceSuite) TestUnknownSubjectFails() {
	decision, err := s.svc.CheckRegistration(s.ctx, s.subject, s.event)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Nil(decision)
	s.Empty(s.diagnostics(), "failed evaluations record nothing")
}

func (s *ServiceSuite) TestNilIDsRejected() {
	_, err := s.svc.CheckRegistration(s.ctx, id.AccountID{}, s.event)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.svc.CheckRegistration(s.ctx, s.subject, id.EventID{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestDiagnosticFailureSwallowed() {
	s.putSubject(400)

	assessor, err := risksvc.New(s.dir, s.entries)
	s.Require().NoError(err)
	svc, err := New(s.entries, assessor, s.dir, WithRecorder(failingRecorder{}))
	s.Require().NoError(err)

	decision, err := svc.CheckRegistration(s.ctx, s.subject, s.event)
	s.Require().NoError(err)
	s.True(decision.Allowed)
}

func (s *ServiceSuite) TestNewValidation() {
	assessor, err := risksvc.New(s.dir, s.entries)
	s.Require().NoError(err)

	_, err = New(nil, assessor, s.dir)
	s.Require().Error(err)

	_, err = New(s.entries, nil, s.dir)
	s.Require().Error(err)

	_, err = New(s.entries, assessor, nil)
	s.Require().Error(err)

	bad := DefaultConfig()
	bad.RegistrationLimit = 0
	_, err = New(s.entries, assessor, s.dir, WithConfig(bad))
	s.Require().Error(err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero registration limit", func(c *Config) { c.RegistrationLimit = 0 }},
		{"zero rate window", func(c *Config) { c.RateWindow = 0 }},
		{"zero ip limit", func(c *Config) { c.IPRegistrationLimit = 0 }},
		{"zero check timeout", func(c *Config) { c.CheckTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			require.NoError(t, cfg.Validate())
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

type flakyActivity struct {
	*auditmem.Store
}

func (f *flakyActivity) CountByActorKindSince(context.Context, id.AccountID, audit.Kind, time.Time) (int, error) {
	return 0, errors.New("count query timed out")
}

type failingAssessor struct{}

func (failingAssessor) Assess(context.Context, id.AccountID) (*risk.Assessment, error) {
	return nil, dErrors.New(dErrors.CodeUnavailable, "scorer unavailable")
}

type failingDirectory struct{}

func (failingDirectory) ListParticipants(context.Context, id.EventID) ([]id.AccountID, error) {
	return nil, fmt.Errorf("directory query timed out")
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, audit.Entry) (*audit.Entry, error) {
	return nil, errors.New("audit store down")
}
