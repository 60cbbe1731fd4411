package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/civicstack/rms/internal/auth/domain"
	"github.com/civicstack/rms/internal/auth/store"
	"github.com/civicstack/rms/pkg/cryptox"
	"github.com/civicstack/rms/pkg/idx"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

var (
	ErrUsernameTaken   = errors.New("username already taken")
	ErrInvalidUsername = errors.New("invalid username")
	ErrWeakPassword    = errors.New("password does not meet requirements")
)

// usernamePattern keeps usernames URL- and log-safe.
var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._@-]{2,63}$`)

// UserService handles registration and profile reads.
type UserService struct {
	Store store.Store

	// Now is injectable for tests. Defaults to time.Now().UTC.
	Now func() time.Time
}

func (s *UserService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Register creates an account with a hashed password. Usernames are
// normalized to lowercase so lookups are case-insensitive.
func (s *UserService) Register(ctx context.Context, username, password string) (domain.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if !usernamePattern.MatchString(username) {
		return domain.User{}, ErrInvalidUsername
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return domain.User{}, ErrWeakPassword
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUsernameTaken
		}
		return domain.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Profile returns the public view of a user.
func (s *UserService) Profile(ctx context.Context, userID string) (domain.Profile, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}

	// Pending (unconfirmed) enrollments don't count.
	codesLeft := 0
	if user.TwoFactorEnabled {
		codesLeft = len(user.RecoveryCodes)
	}

	return domain.Profile{
		ID:                user.ID,
		Username:          user.Username,
		TwoFactorEnabled:  user.TwoFactorEnabled,
		RecoveryCodesLeft: codesLeft,
		LastLoginAt:       user.LastLoginAt,
		CreatedAt:         user.CreatedAt,
	}, nil
}
