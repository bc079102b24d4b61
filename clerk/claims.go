package clerk

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the fields of a session JWT the client relies on
type SessionClaims struct {
	UserID    string
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token has expired at now
func (c *SessionClaims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

type sessionJWT struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// ParseSessionClaims reads the claims of a session token without verifying
// its signature. The token was received from Clerk over TLS and is only used
// to learn who is signed in, never to authorize anything locally.
func ParseSessionClaims(token string) (*SessionClaims, error) {
	var claims sessionJWT
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	out := &SessionClaims{
		UserID:    claims.Subject,
		SessionID: claims.SessionID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
