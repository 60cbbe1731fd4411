package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/civicstack/rms/internal/auth/domain"
	"github.com/civicstack/rms/internal/auth/store"
	"github.com/civicstack/rms/pkg/cryptox"
	"github.com/civicstack/rms/pkg/idx"
	"github.com/civicstack/rms/pkg/jwtx"
)

var ErrTokenRevoked = errors.New("token revoked")

// TokenService mints and verifies the two token kinds. Session tokens are
// recorded by SHA-256 fingerprint so they can be revoked; challenge tokens
// are recorded as challenge rows keyed by jti so attempts can be capped.
type TokenService struct {
	Store store.Store
	Codec *jwtx.HS256

	// Now is injectable for tests. Defaults to time.Now().UTC.
	Now func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// IssueChallenge mints a challenge token for a 2FA-enabled account and
// persists the matching challenge row.
func (s *TokenService) IssueChallenge(ctx context.Context, userID string) (domain.ChallengeResponse, error) {
	now := s.now()
	claims := jwtx.NewChallengeClaims(userID, s.Codec.Issuer(), now)

	token, err := s.Codec.Sign(claims)
	if err != nil {
		return domain.ChallengeResponse{}, fmt.Errorf("failed to sign challenge token: %w", err)
	}

	challenge := domain.Challenge{
		ID:        claims.ID,
		UserID:    userID,
		ExpiresAt: claims.ExpiresAt.Time,
		CreatedAt: now,
	}
	if err := s.Store.Challenges().CreateChallenge(ctx, challenge); err != nil {
		return domain.ChallengeResponse{}, fmt.Errorf("failed to store challenge: %w", err)
	}

	return domain.ChallengeResponse{
		TwoFactorRequired: true,
		ChallengeToken:    token,
		ExpiresAt:         claims.ExpiresAt.Time,
	}, nil
}

// IssueSession mints a full session token and records its fingerprint.
func (s *TokenService) IssueSession(ctx context.Context, userID string) (domain.SessionResponse, error) {
	now := s.now()
	claims := jwtx.NewSessionClaims(userID, s.Codec.Issuer(), now)

	token, err := s.Codec.Sign(claims)
	if err != nil {
		return domain.SessionResponse{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	record := domain.SessionToken{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(token),
		ExpiresAt: claims.ExpiresAt.Time,
		CreatedAt: now,
	}
	if err := s.Store.SessionTokens().CreateSessionToken(ctx, record); err != nil {
		return domain.SessionResponse{}, fmt.Errorf("failed to store session token: %w", err)
	}

	return domain.SessionResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// CheckSession ensures a verified session token hasn't been revoked. The
// signature check happens in the HTTP middleware; this is the store-side
// half of verification.
func (s *TokenService) CheckSession(ctx context.Context, rawToken string) error {
	_, err := s.Store.SessionTokens().GetSessionTokenByHash(ctx, cryptox.FingerprintToken(rawToken))
	if errors.Is(err, store.ErrNotFound) {
		return ErrTokenRevoked
	}
	return err
}

// Revoke drops a single session token record (logout).
func (s *TokenService) Revoke(ctx context.Context, rawToken string) error {
	return s.Store.SessionTokens().DeleteSessionTokenByHash(ctx, cryptox.FingerprintToken(rawToken))
}

// RevokeAll drops every session for a user (logout everywhere).
func (s *TokenService) RevokeAll(ctx context.Context, userID string) error {
	return s.Store.SessionTokens().DeleteAllUserSessionTokens(ctx, userID)
}
