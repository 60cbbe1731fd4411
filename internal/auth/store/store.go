package store

import (
	"context"
	"errors"
	"time"

	"github.com/civicstack/rms/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. It exposes sub-repositories to keep concerns
// tidy and testable, and to stop callers from accidentally nesting
// transactions.
type Store interface {
	Users() Users
	SessionTokens() SessionTokens
	Challenges() Challenges

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during the credential step.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// RecordFailedLogin atomically increments failed_login_count and, when
	// the new count reaches threshold, sets locked_until to now+lockFor.
	// Returns the user as updated.
	RecordFailedLogin(ctx context.Context, userID string, threshold int, lockFor time.Duration, now time.Time) (domain.User, error)

	// ResetLoginState clears the failure counter and lock, and stamps
	// last_login_at. Called after a successful full login.
	ResetLoginState(ctx context.Context, userID string, now time.Time) error

	// SetPendingEnrollment stores an unconfirmed TOTP secret and its
	// recovery code batch. Must not touch two_factor_enabled; repeated
	// calls replace the pending values.
	SetPendingEnrollment(ctx context.Context, userID string, secret string, recoveryCodes []string) error

	// EnableTwoFactor flips two_factor_enabled for an account holding a
	// pending secret, activating the stored enrollment.
	EnableTwoFactor(ctx context.Context, userID string) error

	// DisableTwoFactor clears the secret, the enabled flag and any
	// remaining recovery codes in a single statement.
	DisableTwoFactor(ctx context.Context, userID string) error

	// UpdateRecoveryCodes replaces the stored recovery code set.
	UpdateRecoveryCodes(ctx context.Context, userID string, codes []string) error

	// DeleteUser cascades to session_tokens and mfa_challenges.
	DeleteUser(ctx context.Context, userID string) error
}

type SessionTokens interface {
	// CreateSessionToken stores a new session token record.
	CreateSessionToken(ctx context.Context, t domain.SessionToken) error

	// GetSessionTokenByHash returns the record for a token fingerprint.
	GetSessionTokenByHash(ctx context.Context, hash string) (domain.SessionToken, error)

	// DeleteSessionTokenByHash revokes a single session (logout).
	DeleteSessionTokenByHash(ctx context.Context, hash string) error

	// DeleteAllUserSessionTokens revokes every session for a user
	// (logout-all, password reset, 2FA disable).
	DeleteAllUserSessionTokens(ctx context.Context, userID string) error

	// DeleteExpiredSessionTokens is housekeeping.
	DeleteExpiredSessionTokens(ctx context.Context, now time.Time) error
}

type Challenges interface {
	// CreateChallenge stores a pending second-factor challenge.
	CreateChallenge(ctx context.Context, c domain.Challenge) error

	// GetChallenge retrieves a challenge by id (the token jti).
	GetChallenge(ctx context.Context, id string) (domain.Challenge, error)

	// IncrementChallengeAttempts bumps the failed attempt counter and
	// returns the updated challenge.
	IncrementChallengeAttempts(ctx context.Context, id string) (domain.Challenge, error)

	// DeleteChallenge removes a challenge once redeemed or exhausted.
	DeleteChallenge(ctx context.Context, id string) error

	// DeleteExpiredChallenges is housekeeping.
	DeleteExpiredChallenges(ctx context.Context, now time.Time) error
}
