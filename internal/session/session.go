package session

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("access token is invalid")
	ErrTokenExpired = errors.New("access token has expired")
)

// Session identifies the signed-in account. The access token is carried
// as-is; the service verifies it, the client only reads its claims.
type Session struct {
	DID         string
	AccessToken string
	ExpiresAt   time.Time
}

type accessClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// FromToken extracts the account identity from an atproto access JWT without
// verifying the signature. The subject claim must be a DID.
func FromToken(token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, ErrTokenInvalid
	}

	claims := &accessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Session{}, fmt.Errorf("%w: %s", ErrTokenInvalid, err)
	}

	if !strings.HasPrefix(claims.Subject, "did:") {
		return Session{}, fmt.Errorf("%w: subject %q is not a DID", ErrTokenInvalid, claims.Subject)
	}

	s := Session{
		DID:         claims.Subject,
		AccessToken: token,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	if s.Expired() {
		return Session{}, ErrTokenExpired
	}

	return s, nil
}

// FromTokenFile reads the access token from path and parses it.
func FromTokenFile(path string) (Session, error) {
	// #nosec G304 -- path comes from user configuration.
	raw, err := os.ReadFile(path)
	if err != nil {
		return Session{}, fmt.Errorf("read token file: %w", err)
	}

	return FromToken(string(raw))
}

func (s Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}
