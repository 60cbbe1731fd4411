package sqlite

import (
	"context"
	"time"

	"github.com/civicstack/rms/internal/auth/domain"
)

type sessionTokensRepo struct {
	db dbtx
}

func (r *sessionTokensRepo) CreateSessionToken(ctx context.Context, t domain.SessionToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *sessionTokensRepo) GetSessionTokenByHash(ctx context.Context, hash string) (domain.SessionToken, error) {
	var t domain.SessionToken
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM session_tokens WHERE token_hash = ?`, hash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return domain.SessionToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *sessionTokensRepo) DeleteSessionTokenByHash(ctx context.Context, hash string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM session_tokens WHERE token_hash = ?`, hash)
	return err
}

func (r *sessionTokensRepo) DeleteAllUserSessionTokens(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM session_tokens WHERE user_id = ?`, userID)
	return err
}

func (r *sessionTokensRepo) DeleteExpiredSessionTokens(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM session_tokens WHERE expires_at <= ?`, now)
	return err
}
