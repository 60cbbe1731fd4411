package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/civicstack/rms/internal/auth/domain"
	"github.com/civicstack/rms/internal/auth/store"
	"github.com/civicstack/rms/pkg/cryptox"
	"github.com/civicstack/rms/pkg/jwtx"
	"github.com/civicstack/rms/pkg/otpx"
)

const (
	// MaxFailedLogins is the number of consecutive failed password
	// attempts before the account locks.
	MaxFailedLogins = 5

	// LockoutDuration is how long a locked account stays locked.
	LockoutDuration = 30 * time.Minute

	// MaxChallengeAttempts caps second-factor verification tries per
	// challenge token.
	MaxChallengeAttempts = 5
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrChallengeInvalid   = errors.New("invalid or expired challenge")
	ErrTooManyAttempts    = errors.New("too many verification attempts")
	ErrInvalidCode        = errors.New("invalid verification code")
)

// InvalidCredentialsError wraps ErrInvalidCredentials with a hint of how
// many attempts remain before lockout.
type InvalidCredentialsError struct {
	Remaining int
}

func (e *InvalidCredentialsError) Error() string {
	return fmt.Sprintf("invalid credentials (%d attempts remaining)", e.Remaining)
}

func (e *InvalidCredentialsError) Unwrap() error { return ErrInvalidCredentials }

// LoginService drives the login state machine: credentials first, then an
// optional second-factor step redeemed against a challenge token.
type LoginService struct {
	Store  store.Store
	Tokens *TokenService
	OTP    otpx.Engine

	// Now is injectable for tests. Defaults to time.Now().UTC.
	Now func() time.Time
}

func (s *LoginService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// SubmitCredentials runs the password step. For accounts without a second
// factor it returns a full session; for 2FA-enabled accounts it returns a
// challenge that must be redeemed with SubmitTOTP or SubmitRecoveryCode.
func (s *LoginService) SubmitCredentials(ctx context.Context, username, password string) (domain.LoginResult, error) {
	now := s.now()

	// Same normalization as registration, so lookups stay case-insensitive.
	username = strings.ToLower(strings.TrimSpace(username))

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		// Burn a hash comparison anyway so a missing account is not
		// distinguishable by response time.
		_ = cryptox.VerifyPassword(password, dummyHash())
		return domain.LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("failed to load user: %w", err)
	}

	if user.Locked(now) {
		return domain.LoginResult{}, ErrAccountLocked
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			return domain.LoginResult{}, fmt.Errorf("failed to verify password: %w", err)
		}
		updated, err := s.Store.Users().RecordFailedLogin(ctx, user.ID, MaxFailedLogins, LockoutDuration, now)
		if err != nil {
			return domain.LoginResult{}, fmt.Errorf("failed to record login failure: %w", err)
		}
		// The failure that trips the lock still answers like any other
		// mismatch; the lock only speaks up from the next attempt on.
		return domain.LoginResult{}, &InvalidCredentialsError{
			Remaining: max(0, MaxFailedLogins-updated.FailedLoginCount),
		}
	}

	// A proven password clears the failure counters and stamps
	// last_login_at even when a second factor still stands between the
	// caller and a session.
	if err := s.Store.Users().ResetLoginState(ctx, user.ID, now); err != nil {
		return domain.LoginResult{}, fmt.Errorf("failed to reset login state: %w", err)
	}

	if user.TwoFactorEnabled {
		challenge, err := s.Tokens.IssueChallenge(ctx, user.ID)
		if err != nil {
			return domain.LoginResult{}, err
		}
		return domain.LoginResult{Challenge: &challenge}, nil
	}

	session, err := s.Tokens.IssueSession(ctx, user.ID)
	if err != nil {
		return domain.LoginResult{}, err
	}
	return domain.LoginResult{Session: &session}, nil
}

// SubmitTOTP redeems a challenge with a time-based one-time code.
func (s *LoginService) SubmitTOTP(ctx context.Context, challengeToken, code string) (domain.SessionResponse, error) {
	user, challenge, err := s.redeemableChallenge(ctx, challengeToken)
	if err != nil {
		return domain.SessionResponse{}, err
	}

	if user.TwoFactorSecret == nil || !s.OTP.VerifyAt(*user.TwoFactorSecret, code, s.now()) {
		return domain.SessionResponse{}, s.recordChallengeFailure(ctx, challenge.ID)
	}

	return s.completeChallenge(ctx, user, challenge)
}

// SubmitRecoveryCode redeems a challenge with a single-use recovery code.
// The matched code is removed from the stored set before the session is
// issued, so it can never be replayed.
func (s *LoginService) SubmitRecoveryCode(ctx context.Context, challengeToken, code string) (domain.SessionResponse, error) {
	user, challenge, err := s.redeemableChallenge(ctx, challengeToken)
	if err != nil {
		return domain.SessionResponse{}, err
	}

	matched, remaining := otpx.ConsumeRecoveryCode(user.RecoveryCodes, code)
	if !matched {
		return domain.SessionResponse{}, s.recordChallengeFailure(ctx, challenge.ID)
	}

	if err := s.Store.Users().UpdateRecoveryCodes(ctx, user.ID, remaining); err != nil {
		return domain.SessionResponse{}, fmt.Errorf("failed to consume recovery code: %w", err)
	}

	return s.completeChallenge(ctx, user, challenge)
}

// redeemableChallenge validates a challenge token cryptographically and
// against its stored row, returning the user it belongs to.
func (s *LoginService) redeemableChallenge(ctx context.Context, challengeToken string) (domain.User, domain.Challenge, error) {
	claims, err := s.Tokens.Codec.Verify(challengeToken)
	if err != nil || !claims.TwoFactorRequired {
		return domain.User{}, domain.Challenge{}, ErrChallengeInvalid
	}

	challenge, err := s.Store.Challenges().GetChallenge(ctx, claims.ID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, domain.Challenge{}, ErrChallengeInvalid
	}
	if err != nil {
		return domain.User{}, domain.Challenge{}, fmt.Errorf("failed to load challenge: %w", err)
	}

	now := s.now()
	if now.After(challenge.ExpiresAt) {
		_ = s.Store.Challenges().DeleteChallenge(ctx, challenge.ID)
		return domain.User{}, domain.Challenge{}, ErrChallengeInvalid
	}
	if challenge.Attempts >= MaxChallengeAttempts {
		return domain.User{}, domain.Challenge{}, ErrTooManyAttempts
	}

	user, err := s.Store.Users().GetUserByID(ctx, challenge.UserID)
	if err != nil {
		return domain.User{}, domain.Challenge{}, fmt.Errorf("failed to load user: %w", err)
	}

	return user, challenge, nil
}

// recordChallengeFailure bumps the attempt counter and retires the
// challenge once it is exhausted.
func (s *LoginService) recordChallengeFailure(ctx context.Context, challengeID string) error {
	challenge, err := s.Store.Challenges().IncrementChallengeAttempts(ctx, challengeID)
	if err != nil {
		return fmt.Errorf("failed to record challenge failure: %w", err)
	}
	if challenge.Attempts >= MaxChallengeAttempts {
		_ = s.Store.Challenges().DeleteChallenge(ctx, challengeID)
		return ErrTooManyAttempts
	}
	return ErrInvalidCode
}

// completeChallenge retires the challenge and issues the full session
// token. The lockout counters were already cleared when the password
// verified.
func (s *LoginService) completeChallenge(ctx context.Context, user domain.User, challenge domain.Challenge) (domain.SessionResponse, error) {
	if err := s.Store.Challenges().DeleteChallenge(ctx, challenge.ID); err != nil {
		return domain.SessionResponse{}, fmt.Errorf("failed to retire challenge: %w", err)
	}

	return s.Tokens.IssueSession(ctx, user.ID)
}

// Logout revokes the presented session token.
func (s *LoginService) Logout(ctx context.Context, rawToken string) error {
	return s.Tokens.Revoke(ctx, rawToken)
}

// LogoutAll revokes every session for the user.
func (s *LoginService) LogoutAll(ctx context.Context, userID string) error {
	return s.Tokens.RevokeAll(ctx, userID)
}

// dummyHash returns a throwaway Argon2id hash of an unguessable value,
// used to equalize timing when the username doesn't exist. Lazy so the
// pepper path is configured before the first hash.
var dummyHash = sync.OnceValue(func() string {
	h, err := cryptox.HashPassword(jwtx.NewJTI())
	if err != nil {
		panic(err)
	}
	return h
})
