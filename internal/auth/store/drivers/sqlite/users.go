package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/civicstack/rms/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, username, password_hash, two_factor_enabled, totp_secret,
	recovery_codes, failed_login_count, locked_until, last_login_at, created_at, updated_at`

func (r *usersRepo) scanUser(row *sql.Row) (domain.User, error) {
	var (
		u           domain.User
		enabled     int
		secret      sql.NullString
		codes       string
		lockedUntil sql.NullTime
		lastLoginAt sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &enabled, &secret,
		&codes, &u.FailedLoginCount, &lockedUntil, &lastLoginAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.TwoFactorEnabled = enabled != 0
	u.TwoFactorSecret = mapNullStringPtr(secret)
	u.RecoveryCodes = splitCodes(codes)
	u.LockedUntil = mapNullTimePtr(lockedUntil)
	u.LastLoginAt = mapNullTimePtr(lastLoginAt)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return r.scanUser(row)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return r.scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	return r.exec(ctx, `
		UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		newHash, userID,
	)
}

// RecordFailedLogin bumps the failure counter and arms the lock in one
// statement so concurrent failures can never skip past the threshold.
func (r *usersRepo) RecordFailedLogin(ctx context.Context, userID string, threshold int, lockFor time.Duration, now time.Time) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE users SET
			failed_login_count = failed_login_count + 1,
			locked_until = CASE
				WHEN failed_login_count + 1 >= ? THEN ?
				ELSE locked_until
			END,
			updated_at = ?
		WHERE id = ?
		RETURNING `+userColumns,
		threshold, now.Add(lockFor), now, userID,
	)
	return r.scanUser(row)
}

func (r *usersRepo) ResetLoginState(ctx context.Context, userID string, now time.Time) error {
	return r.exec(ctx, `
		UPDATE users SET
			failed_login_count = 0,
			locked_until = NULL,
			last_login_at = ?,
			updated_at = ?
		WHERE id = ?`,
		now, now, userID,
	)
}

func (r *usersRepo) SetPendingEnrollment(ctx context.Context, userID string, secret string, recoveryCodes []string) error {
	return r.exec(ctx, `
		UPDATE users SET
			totp_secret = ?,
			recovery_codes = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		secret, joinCodes(recoveryCodes), userID,
	)
}

// EnableTwoFactor flips the flag, and only for accounts that hold a
// pending secret.
func (r *usersRepo) EnableTwoFactor(ctx context.Context, userID string) error {
	return r.exec(ctx, `
		UPDATE users SET
			two_factor_enabled = 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND totp_secret IS NOT NULL`,
		userID,
	)
}

func (r *usersRepo) DisableTwoFactor(ctx context.Context, userID string) error {
	return r.exec(ctx, `
		UPDATE users SET
			two_factor_enabled = 0,
			totp_secret = NULL,
			recovery_codes = '',
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		userID,
	)
}

func (r *usersRepo) UpdateRecoveryCodes(ctx context.Context, userID string, codes []string) error {
	return r.exec(ctx, `
		UPDATE users SET recovery_codes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		joinCodes(codes), userID,
	)
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	return r.exec(ctx, `DELETE FROM users WHERE id = ?`, userID)
}

// exec runs a mutation that must touch exactly one row, mapping a miss to
// store.ErrNotFound.
func (r *usersRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}
