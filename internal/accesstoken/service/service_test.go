package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"custos/internal/accesstoken"
	"custos/internal/audit"
	auditsvc "custos/internal/audit/service"
	auditmem "custos/internal/audit/store/memory"
	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/requestcontext"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

type ServiceSuite struct {
	suite.Suite
	entries *auditmem.Store
	svc     *Service
	issued  time.Time
	event   id.EventID
	subject id.AccountID
}

func (s *ServiceSuite) SetupTest() {
	s.entries = auditmem.New()
	recorder, err := auditsvc.New(s.entries)
	s.Require().NoError(err)

	svc, err := New(testKey, WithRecorder(recorder))
	s.Require().NoError(err)
	s.svc = svc

	s.issued = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	s.event = id.NewEventID()
	s.subject = id.NewAccountID()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *ServiceSuite) TestIssueAndVerify() {
	grant, err := s.svc.Issue(s.at(s.issued), s.event, s.subject)
	s.Require().NoError(err)
	s.NotEmpty(grant.Token)
	s.Equal(s.event, grant.EventID)
	s.Equal(s.subject, grant.SubjectID)
	s.Equal(s.issued, grant.IssuedAt)
	s.Equal(s.issued.Add(accesstoken.DefaultTTL), grant.ExpiresAt)

	verified, err := s.svc.Verify(s.at(s.issued), grant.Token, s.event, s.subject)
	s.Require().NoError(err)
	s.True(grant.IssuedAt.Equal(verified.IssuedAt))
	s.True(grant.ExpiresAt.Equal(verified.ExpiresAt))
}

func (s *ServiceSuite) TestVerifyLaterWithinTTL() {
	grant, err := s.svc.Issue(s.at(s.issued), s.event, s.subject)
	s.Require().NoError(err)

	// The binding is recomputed from the issuance instant the token
	// carries, so hours elapsing between issue and verify change nothing.
	verified, err := s.svc.Verify(s.at(s.issued.Add(23*time.Hour)), grant.Token, s.event, s.subject)
	s.Require().NoError(err)
	s.True(s.issued.Equal(verified.IssuedAt))
}

func (s *ServiceSuite) TestVerifyExpired() {
	grant, err := s.svc.Issue(s.at(s.issued), s.event, s.subject)
	s.Require().NoError(err)

	_, err = s.svc.Verify(s.at(s.issued.Add(25*time.Hour)), grant.Token, s.event, s.subject)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Contains(err.Error(), "expired")
}

func (s *ServiceSuite) TestVerifyWrongSubject() {
	grant, err := s.svc.Issue(s.at(s.issued), s.event, s.subject)
	s.Require().NoError(err)

	_, err = s.svc.Verify(s.at(s.issued), grant.Token, s.event, id.NewAccountID())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Contains(err.Error(), "subject")
}

func (s *ServiceSuite) TestVerifyWrongEvent() {
	grant, err := s.svc.Issue(s.at(s.issued), s.event, s.subject)
	s.Require().NoError(err)

	_, err = s.svc.Verify(s.at(s.issued), grant.Token, id.NewEventID(), s.subject)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Contains(err.Error(), "event")
}

func (s *ServiceSuite) TestVerifyGarbage() {
	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		_, err := s.svc.Verify(s.at(s.issued), token, s.event, s.subject)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	}
}

func (s *ServiceSuite) TestVerifyTamperedPayload() {
	grant, err := s.svc.Issue(s.at(s.issued), s.event, s.subject)
	s.Require().NoError(err)

	parts := strings.Split(grant.Token, ".")
	s.Require().Len(parts, 3)
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err = s.svc.Verify(s.at(s.issued), tampered, s.event, s.subject)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestVerifyForeignKey() {
	other, err := New([]byte("ffffffffffffffffffffffffffffffff"))
	s.Require().NoError(err)
	grant, err := other.Issue(s.at(s.issued), s.event, s.subject)
	s.Require().NoError(err)

	_, err = s.svc.Verify(s.at(s.issued), grant.Token, s.event, s.subject)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestVerifyRejectsUnsignedToken() {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, accesstoken.Claims{
		EventID: s.event.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.subject.String(),
			IssuedAt:  jwt.NewNumericDate(s.issued),
			ExpiresAt: jwt.NewNumericDate(s.issued.Add(time.Hour)),
		},
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	s.Require().NoError(err)

	_, err = s.svc.Verify(s.at(s.issued), token, s.event, s.subject)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestIssueRecordsDiagnostic() {
	_, err := s.svc.Issue(s.at(s.issued), s.event, s.subject)
	s.Require().NoError(err)

	page, err := s.entries.List(context.Background(), audit.Query{
		Kinds: []audit.Kind{audit.KindTokenIssued},
		Limit: audit.DefaultPageLimit,
	})
	s.Require().NoError(err)
	s.Require().Len(page.Entries, 1)

	entry := page.Entries[0]
	s.Equal(s.subject, entry.Actor.AccountID)
	details, ok := entry.Details.(audit.TokenDetails)
	s.Require().True(ok)
	s.Equal(s.event, details.EventID)
	s.True(s.issued.Add(accesstoken.DefaultTTL).Equal(details.ExpiresAt))
}

func (s *ServiceSuite) TestIssueSurvivesRecorderFailure() {
	svc, err := New(testKey, WithRecorder(failingRecorder{}))
	s.Require().NoError(err)

	grant, err := svc.Issue(s.at(s.issued), s.event, s.subject)
	s.Require().NoError(err)
	s.NotEmpty(grant.Token)
}

func (s *ServiceSuite) TestIssueRejectsNilIDs() {
	_, err := s.svc.Issue(s.at(s.issued), id.EventID{}, s.subject)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.svc.Issue(s.at(s.issued), s.event, id.AccountID{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestNewValidation() {
	_, err := New([]byte("short"))
	s.Require().Error(err)

	_, err = New(testKey, WithTTL(0))
	s.Require().Error(err)
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, audit.Entry) (*audit.Entry, error) {
	return nil, errors.New("audit store down")
}
