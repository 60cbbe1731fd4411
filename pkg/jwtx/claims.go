package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token lifetimes for the two token kinds this service mints.
const (
	// ChallengeTokenTTL bounds how long a pending second-factor challenge
	// stays redeemable after the password step.
	ChallengeTokenTTL = 5 * time.Minute

	// SessionTokenTTL is the lifetime of a full session token.
	SessionTokenTTL = 7 * 24 * time.Hour
)

// Claims are the token claims used across the service. A token carries
// either TwoFactorRequired (challenge token, pending second factor) or
// TwoFactorVerified (session token) — never both.
type Claims struct {
	jwt.RegisteredClaims

	// TwoFactorRequired marks a short-lived challenge token issued after
	// the password step for a 2FA-enabled account. Challenge tokens must
	// never grant resource access.
	TwoFactorRequired bool `json:"twoFactorRequired,omitempty"`

	// TwoFactorVerified marks a session token whose holder either
	// completed the second factor or has no second factor enrolled.
	TwoFactorVerified bool `json:"twoFactorVerified,omitempty"`
}

// NewChallengeClaims builds claims for a second-factor challenge token.
func NewChallengeClaims(userID, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims:  registered(userID, issuer, now, ChallengeTokenTTL),
		TwoFactorRequired: true,
	}
}

// NewSessionClaims builds claims for a full session token.
func NewSessionClaims(userID, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims:  registered(userID, issuer, now, SessionTokenTTL),
		TwoFactorVerified: true,
	}
}

func registered(subject, issuer string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        NewJTI(),
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks the issuer claim against the expected value.
// An empty expected issuer enforces nothing.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before it is valid (nbf).
func (c *Claims) ValidateExpiry(now time.Time) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}
