// Package service signs and verifies event access grants.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"custos/internal/accesstoken"
	"custos/internal/accesstoken/metrics"
	"custos/internal/audit"
	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/requestcontext"
)

const (
	issuerName = "custos"

	// HS256 keys shorter than the hash output weaken the MAC.
	minKeyLen = 32
)

// Recorder appends diagnostic entries. The audit service implements it.
type Recorder interface {
	Record(ctx context.Context, entry audit.Entry) (*audit.Entry, error)
}

// Service issues and verifies grants with one shared signing key.
type Service struct {
	signingKey []byte
	ttl        time.Duration
	recorder   Recorder
	logger     *slog.Logger
	metrics    *metrics.Metrics
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

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithRecorder enables token_issued diagnostics. Appends that fail are
// logged and swallowed.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// New constructs the issuer.
func New(signingKey []byte, opts ...Option) (*Service, error) {
	if len(signingKey) < minKeyLen {
		return nil, errors.New("signing key must be at least 32 bytes")
	}
	s := &Service{
		signingKey: signingKey,
		ttl:        accesstoken.DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	return s, nil
}

// Issue signs a grant binding the subject to the event. The issuance
// instant is embedded in the token; expiry is fixed at issuance and never
// recomputed.
func (s *Service) Issue(ctx context.Context, eventID id.EventID, subjectID id.AccountID) (*accesstoken.Grant, error) {
	if eventID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "event id is required")
	}
	if subjectID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "subject id is required")
	}

	issuedAt := requestcontext.Now(ctx).UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accesstoken.Claims{
		EventID: eventID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID.String(),
			Issuer:    issuerName,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}

	grant := &accesstoken.Grant{
		Token:     signed,
		EventID:   eventID,
		SubjectID: subjectID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}
	s.metrics.IncIssued()
	s.recordIssued(ctx, grant)
	return grant, nil
}

// Verify checks the token's signature against the issuance instant it
// carries, confirms the grant names this event and subject, then checks
// expiry against the current time. A valid token verifies at any point
// inside its TTL regardless of when it was issued.
func (s *Service) Verify(ctx context.Context, token string, eventID id.EventID, subjectID id.AccountID) (*accesstoken.Grant, error) {
	if token == "" {
		s.metrics.IncVerification("invalid")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims := &accesstoken.Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return requestcontext.Now(ctx) }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.metrics.IncVerification("expired")
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		s.metrics.IncVerification("invalid")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		s.metrics.IncVerification("invalid")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if claims.Subject != subjectID.String() {
		s.metrics.IncVerification("mismatch")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token subject mismatch")
	}
	if claims.EventID != eventID.String() {
		s.metrics.IncVerification("mismatch")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token event mismatch")
	}

	s.metrics.IncVerification("ok")
	return &accesstoken.Grant{
		Token:     token,
		EventID:   eventID,
		SubjectID: subjectID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// recordIssued appends a token_issued diagnostic. Failures are logged and
// swallowed: diagnostics must never fail issuance.
func (s *Service) recordIssued(ctx context.Context, grant *accesstoken.Grant) {
	if s.recorder == nil {
		return
	}
	_, err := s.recorder.Record(ctx, audit.Entry{
		Kind:    audit.KindTokenIssued,
		Actor:   audit.Actor{Kind: audit.ActorUser, AccountID: grant.SubjectID},
		Success: true,
		Details: audit.TokenDetails{
			EventID:   grant.EventID,
			ExpiresAt: grant.ExpiresAt,
		},
		Timestamp: grant.IssuedAt,
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to record token diagnostic",
			"subject_id", grant.SubjectID,
			"event_id", grant.EventID,
			"error", err,
		)
	}
}
