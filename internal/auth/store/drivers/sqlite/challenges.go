package sqlite

import (
	"context"
	"time"

	"github.com/civicstack/rms/internal/auth/domain"
)

type challengesRepo struct {
	db dbtx
}

func (r *challengesRepo) CreateChallenge(ctx context.Context, c domain.Challenge) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO mfa_challenges (id, user_id, attempts, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Attempts, c.ExpiresAt, c.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *challengesRepo) GetChallenge(ctx context.Context, id string) (domain.Challenge, error) {
	var c domain.Challenge
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, attempts, expires_at, created_at
		FROM mfa_challenges WHERE id = ?`, id,
	).Scan(&c.ID, &c.UserID, &c.Attempts, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		return domain.Challenge{}, mapNotFound(err)
	}
	return c, nil
}

func (r *challengesRepo) IncrementChallengeAttempts(ctx context.Context, id string) (domain.Challenge, error) {
	var c domain.Challenge
	err := r.db.QueryRowContext(ctx, `
		UPDATE mfa_challenges SET attempts = attempts + 1
		WHERE id = ?
		RETURNING id, user_id, attempts, expires_at, created_at`, id,
	).Scan(&c.ID, &c.UserID, &c.Attempts, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		return domain.Challenge{}, mapNotFound(err)
	}
	return c, nil
}

func (r *challengesRepo) DeleteChallenge(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM mfa_challenges WHERE id = ?`, id)
	return err
}

func (r *challengesRepo) DeleteExpiredChallenges(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM mfa_challenges WHERE expires_at <= ?`, now)
	return err
}
