package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"custos/internal/audit"
	auditmem "custos/internal/audit/store/memory"
	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/requestcontext"
)

type stubDB struct {
	pingErr error
	stats   sql.DBStats
}

func (d *stubDB) PingContext(context.Context) error { return d.pingErr }
func (d *stubDB) Stats() sql.DBStats                { return d.stats }

type stubCache struct {
	err error
}

func (c *stubCache) Health(context.Context) error { return c.err }

type failingCounter struct{}

func (failingCounter) CountTotal(context.Context) (int, error) {
	return 0, errors.New("store down")
}

func (failingCounter) CountSince(context.Context, time.Time) (int, error) {
	return 0, errors.New("store down")
}

type ServiceSuite struct {
	suite.Suite
	entries *auditmem.Store
	ctx     context.Context
	now     time.Time
}

func (s *ServiceSuite) SetupTest() {
	s.entries = auditmem.New()
	s.now = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) seedEntryAt(ts time.Time) {
	s.Require().NoError(s.entries.Append(s.ctx, audit.Entry{
		ID:        id.NewEntryID(),
		Kind:      audit.KindLoginSucceeded,
		Actor:     audit.Actor{Kind: audit.ActorUser, AccountID: id.NewAccountID()},
		Success:   true,
		Timestamp: ts,
	}))
}

func (s *ServiceSuite) TestReportCountsAuditEntries() {
	s.seedEntryAt(s.now.Add(-time.Hour))
	s.seedEntryAt(s.now.Add(-2 * time.Hour))
	s.seedEntryAt(s.now.Add(-30 * 24 * time.Hour))

	svc, err := New(s.entries, WithStartTime(s.now.Add(-90*time.Second)))
	s.Require().NoError(err)

	report, err := svc.Report(s.ctx)
	s.Require().NoError(err)

	s.Equal(3, report.AuditStore.TotalEntries)
	s.Equal(2, report.AuditStore.EntriesLast24h)
	s.Equal(s.now, report.SampledAt)
	s.Nil(report.Database)
	s.Nil(report.Cache)
}

func (s *ServiceSuite) TestReportSamplesRuntime() {
	svc, err := New(s.entries, WithStartTime(s.now.Add(-90*time.Second)))
	s.Require().NoError(err)

	report, err := svc.Report(s.ctx)
	s.Require().NoError(err)

	s.Positive(report.Runtime.Goroutines)
	s.Positive(report.Runtime.HeapAllocBytes)
	s.Positive(report.Runtime.HeapInUseBytes)
	s.InDelta(90.0, report.Runtime.UptimeSeconds, 0.001)
}

func (s *ServiceSuite) TestReportIncludesConfiguredDependencies() {
	db := &stubDB{stats: sql.DBStats{OpenConnections: 4, InUse: 1, Idle: 3, WaitCount: 7}}
	cache := &stubCache{}

	svc, err := New(s.entries, WithDatabase(db), WithCache(cache))
	s.Require().NoError(err)

	report, err := svc.Report(s.ctx)
	s.Require().NoError(err)

	s.Require().NotNil(report.Database)
	s.Equal(4, report.Database.OpenConnections)
	s.Equal(1, report.Database.InUse)
	s.Equal(3, report.Database.Idle)
	s.Equal(int64(7), report.Database.WaitCount)

	s.Require().NotNil(report.Cache)
	s.True(report.Cache.Connected)
}

func (s *ServiceSuite) TestDatabaseFailureFailsWholeReport() {
	db := &stubDB{pingErr: errors.New("connection refused")}

	svc, err := New(s.entries, WithDatabase(db), WithCache(&stubCache{}))
	s.Require().NoError(err)

	report, err := svc.Report(s.ctx)
	s.Require().Error(err)
	s.Nil(report)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Contains(err.Error(), "database unreachable")
}

func (s *ServiceSuite) TestCacheFailureFailsWholeReport() {
	cache := &stubCache{err: errors.New("NOAUTH")}

	svc, err := New(s.entries, WithDatabase(&stubDB{}), WithCache(cache))
	s.Require().NoError(err)

	report, err := svc.Report(s.ctx)
	s.Require().Error(err)
	s.Nil(report)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Contains(err.Error(), "cache unreachable")
}

func (s *ServiceSuite) TestCounterFailureFailsWholeReport() {
	svc, err := New(failingCounter{}, WithDatabase(&stubDB{}))
	s.Require().NoError(err)

	report, err := svc.Report(s.ctx)
	s.Require().Error(err)
	s.Nil(report)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Contains(err.Error(), "audit store unavailable")
}

func (s *ServiceSuite) TestRecentWindowOverride() {
	s.seedEntryAt(s.now.Add(-30 * time.Minute))
	s.seedEntryAt(s.now.Add(-3 * time.Hour))

	svc, err := New(s.entries, WithRecentWindow(time.Hour))
	s.Require().NoError(err)

	report, err := svc.Report(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, report.AuditStore.TotalEntries)
	s.Equal(1, report.AuditStore.EntriesLast24h)
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)

	_, err = New(auditmem.New(), WithRecentWindow(0))
	require.Error(t, err)

	_, err = New(auditmem.New(), WithReportTimeout(0))
	require.Error(t, err)
}
