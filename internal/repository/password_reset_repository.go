package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lumenstage/api/internal/database"
	"lumenstage/api/internal/models"
)

var ErrResetTokenNotFound = errors.New("reset token not found")

type PasswordResetRepository struct {
	pool *pgxpool.Pool
}

func NewPasswordResetRepository(pool *pgxpool.Pool) *PasswordResetRepository {
	return &PasswordResetRepository{pool: pool}
}

func (r *PasswordResetRepository) q(ctx context.Context) database.Querier {
	if tx, ok := database.TxFromContext(ctx); ok {
		return tx
	}
	return r.pool
}

func (r *PasswordResetRepository) Create(ctx context.Context, reset models.PasswordReset) error {
	const query = `
		INSERT INTO password_resets (id, email, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	_, err := r.q(ctx).Exec(ctx, query, reset.ID, reset.Email, reset.Token, reset.ExpiresAt)
	return err
}

// Consume marks the token used and returns its email in one conditional
// update. The WHERE used_at IS NULL guard means two concurrent callers can
// never both succeed; the loser sees ErrResetTokenNotFound.
func (r *PasswordResetRepository) Consume(ctx context.Context, token string, now time.Time) (string, error) {
	const query = `
		UPDATE password_resets
		SET used_at = $2
		WHERE token = $1 AND used_at IS NULL AND expires_at > $2
		RETURNING email
	`
	var email string
	if err := r.q(ctx).QueryRow(ctx, query, token, now).Scan(&email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrResetTokenNotFound
		}
		return "", err
	}
	return email, nil
}

// PurgeExpired removes rows past their expiry; called by the cleanup job.
func (r *PasswordResetRepository) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM password_resets WHERE expires_at < $1`
	cmd, err := r.q(ctx).Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
