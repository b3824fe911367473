// Package session issues and verifies the signed tokens that identify visitors.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/myeongseok-gwon/coex-search-temp/internal/request"
)

const (
	// Issuer is written to and required in every token.
	Issuer = "booth-recommender"

	adminClaim = "adm"
	minSecret  = 32
)

// ErrInvalidToken is returned for tokens that fail signature, issuer or expiry checks.
var ErrInvalidToken = errors.New("invalid session token")

// Manager signs HS256 session tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager creates a token manager. The secret must be at least 32 bytes.
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if len(secret) < minSecret {
		return nil, fmt.Errorf("session secret must be at least %d bytes", minSecret)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for s and its expiry.
func (m *Manager) Issue(s request.Session) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.ttl)

	b := jwt.NewBuilder().
		Issuer(Issuer).
		Subject(s.UserID).
		IssuedAt(now).
		Expiration(exp)
	if s.Admin {
		b = b.Claim(adminClaim, true)
	}
	tok, err := b.Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, m.secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), exp, nil
}

// Verify parses a token issued by Issue and returns its session.
func (m *Manager) Verify(token string) (*request.Session, error) {
	tok, err := jwt.Parse([]byte(token),
		jwt.WithKey(jwa.HS256, m.secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(Issuer),
		jwt.WithClock(jwt.ClockFunc(m.now)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if tok.Subject() == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	s := &request.Session{UserID: tok.Subject()}
	if v, ok := tok.Get(adminClaim); ok {
		s.Admin, _ = v.(bool)
	}
	return s, nil
}
