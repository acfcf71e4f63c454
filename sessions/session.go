package sessions

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/jrsteele09/member-portal/identity"
)

// TokenLength is the number of random bytes in a session token (256 bits).
const TokenLength = 32

// Session is an issued bearer token bound to exactly one identity.
// Only the Active flag changes after issuance.
type Session struct {
	Token     string        `json:"token"`
	Kind      identity.Kind `json:"kind"`
	Key       string        `json:"key"` // admin sigla or synthesized member key
	ExpiresAt time.Time     `json:"expires_at"`
	Active    bool          `json:"active"`
	CreatedAt time.Time     `json:"created_at"`
}

// New builds an active session for id that expires lifetime after now.
func New(token string, id identity.Identity, now time.Time, lifetime time.Duration) *Session {
	return &Session{
		Token:     token,
		Kind:      id.Kind,
		Key:       id.Key(),
		ExpiresAt: now.Add(lifetime),
		Active:    true,
		CreatedAt: now,
	}
}

// ValidAt reports whether the session is active and unexpired at now.
func (s *Session) ValidAt(now time.Time) bool {
	return s != nil && s.Active && now.Before(s.ExpiresAt)
}

// NewToken returns an opaque, URL safe token from crypto/rand.
func NewToken() (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("[sessions NewToken] %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// TokenPrefix shortens a token for log lines.
func TokenPrefix(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}
