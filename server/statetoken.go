package server

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// StateSigner mints and verifies the OAuth state parameter. The token binds a
// provider callback to the browser session that initiated it, so a forged or
// replayed callback fails before any code exchange happens.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
}

type stateClaims struct {
	SessionID string `json:"sid"`
	Variety   string `json:"vty"`
	jwt.RegisteredClaims
}

// NewStateSigner builds a signer. With no configured secret a random
// per-process key is used; state tokens then only survive one process, which
// matches the lifetime of the sessions they point at.
func NewStateSigner(cfg Config) (*StateSigner, error) {
	secret := []byte(cfg.Sessions.StateSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate state secret: %w", err)
		}
	}
	return &StateSigner{secret: secret, ttl: cfg.Sessions.StateTTL}, nil
}

// Sign issues a state token for the session starting a delegation flow.
func (s *StateSigner) Sign(sessionID string, v Variety) (string, error) {
	now := time.Now()
	claims := stateClaims{
		SessionID: sessionID,
		Variety:   v.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks signature and expiry and that the token belongs to this
// session and variety.
func (s *StateSigner) Verify(token, sessionID string, v Variety) error {
	var claims stateClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return fmt.Errorf("parse state: %w", err)
	}
	if claims.SessionID != sessionID {
		return fmt.Errorf("state bound to another session")
	}
	if claims.Variety != v.String() {
		return fmt.Errorf("state variety mismatch")
	}
	return nil
}
