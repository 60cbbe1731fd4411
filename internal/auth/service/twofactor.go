package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/civicstack/rms/internal/auth/domain"
	"github.com/civicstack/rms/internal/auth/store"
	"github.com/civicstack/rms/pkg/otpx"
	"github.com/civicstack/rms/pkg/qrx"
)

var (
	ErrTwoFactorNotEnabled     = errors.New("two-factor auth not enabled for this user")
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor auth already enabled for this user")
	ErrNotEnrolled             = errors.New("two-factor enrollment not started")
)

// TwoFactorService manages TOTP enrollment and recovery codes. Enrollment
// is two-phase: Begin stores a pending secret, Confirm proves possession
// of it with a valid code before the account is actually protected.
type TwoFactorService struct {
	Store  store.Store
	Tokens *TokenService
	OTP    otpx.Engine
	Issuer string

	// Now is injectable for tests. Defaults to time.Now().UTC.
	Now func() time.Time
}

func (s *TwoFactorService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// BeginEnrollment generates a fresh secret and recovery code batch for
// the user and returns them with the provisioning URI and QR code. The
// whole bundle stays pending until ConfirmEnrollment; repeated calls
// replace the pending values.
func (s *TwoFactorService) BeginEnrollment(ctx context.Context, userID string) (domain.EnrollmentBundle, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.EnrollmentBundle{}, fmt.Errorf("failed to load user: %w", err)
	}
	if user.TwoFactorEnabled {
		return domain.EnrollmentBundle{}, ErrTwoFactorAlreadyEnabled
	}

	secret, err := otpx.GenerateSecret()
	if err != nil {
		return domain.EnrollmentBundle{}, err
	}

	keyURI, err := otpx.KeyURI(s.Issuer, user.Username, secret)
	if err != nil {
		return domain.EnrollmentBundle{}, err
	}

	qr, err := qrx.DataURI(keyURI, qrx.DefaultSize)
	if err != nil {
		return domain.EnrollmentBundle{}, err
	}

	codes, err := otpx.GenerateRecoveryCodes(otpx.RecoveryBatchSize)
	if err != nil {
		return domain.EnrollmentBundle{}, err
	}

	if err := s.Store.Users().SetPendingEnrollment(ctx, userID, secret, codes); err != nil {
		return domain.EnrollmentBundle{}, fmt.Errorf("failed to store pending enrollment: %w", err)
	}

	return domain.EnrollmentBundle{
		Secret:        secret,
		KeyURI:        keyURI,
		QRCode:        qr,
		RecoveryCodes: codes,
	}, nil
}

// ConfirmEnrollment verifies a code against the pending secret and, on
// success, activates the second factor. On failure the account is left
// unchanged and unprotected.
func (s *TwoFactorService) ConfirmEnrollment(ctx context.Context, userID, code string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user.TwoFactorEnabled {
		return ErrTwoFactorAlreadyEnabled
	}
	if user.TwoFactorSecret == nil {
		return ErrNotEnrolled
	}

	if !s.OTP.VerifyAt(*user.TwoFactorSecret, code, s.now()) {
		return ErrInvalidCode
	}

	if err := s.Store.Users().EnableTwoFactor(ctx, userID); err != nil {
		return fmt.Errorf("failed to enable two-factor auth: %w", err)
	}
	return nil
}

// Disable turns the second factor off after a valid code, wiping the
// secret and recovery codes. All sessions are revoked so stolen tokens
// can't outlive the downgrade.
func (s *TwoFactorService) Disable(ctx context.Context, userID, code string) error {
	if err := s.verifyEnabledCode(ctx, userID, code); err != nil {
		return err
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().DisableTwoFactor(ctx, userID); err != nil {
			return fmt.Errorf("failed to disable two-factor auth: %w", err)
		}
		if err := tx.SessionTokens().DeleteAllUserSessionTokens(ctx, userID); err != nil {
			return fmt.Errorf("failed to revoke sessions: %w", err)
		}
		return nil
	})
}

// RegenerateRecoveryCodes replaces the stored recovery code set after a
// valid code. Previously issued codes stop working immediately.
func (s *TwoFactorService) RegenerateRecoveryCodes(ctx context.Context, userID, code string) (domain.RecoveryCodesBundle, error) {
	if err := s.verifyEnabledCode(ctx, userID, code); err != nil {
		return domain.RecoveryCodesBundle{}, err
	}

	codes, err := otpx.GenerateRecoveryCodes(otpx.RecoveryBatchSize)
	if err != nil {
		return domain.RecoveryCodesBundle{}, err
	}

	if err := s.Store.Users().UpdateRecoveryCodes(ctx, userID, codes); err != nil {
		return domain.RecoveryCodesBundle{}, fmt.Errorf("failed to store recovery codes: %w", err)
	}

	return domain.RecoveryCodesBundle{RecoveryCodes: codes}, nil
}

// verifyEnabledCode checks a TOTP code for a user that must already have
// the second factor enabled.
func (s *TwoFactorService) verifyEnabledCode(ctx context.Context, userID, code string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if !user.TwoFactorEnabled || user.TwoFactorSecret == nil {
		return ErrTwoFactorNotEnabled
	}
	if !s.OTP.VerifyAt(*user.TwoFactorSecret, code, s.now()) {
		return ErrInvalidCode
	}
	return nil
}
