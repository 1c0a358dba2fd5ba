// Package accesstoken issues and verifies event-scoped access grants. A
// grant binds one subject to one event for a fixed TTL; the token carries
// its own issuance instant, so verification never depends on when the
// verifier's clock first saw it.
package accesstoken

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "custos/pkg/domain"
)

// DefaultTTL is how long a grant stays valid after issuance.
const DefaultTTL = 24 * time.Hour

// Claims is the signed payload. The HMAC signature covers the full tuple
// (event, subject, issued-at), so tampering with any member invalidates
// the token.
type Claims struct {
	EventID string `json:"event_id"`
	jwt.RegisteredClaims
}

// Grant is the issued credential plus its binding metadata.
type Grant struct {
	Token     string       `json:"token"`
	EventID   id.EventID   `json:"event_id"`
	SubjectID id.AccountID `json:"subject_id"`
	IssuedAt  time.Time    `json:"issued_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}
