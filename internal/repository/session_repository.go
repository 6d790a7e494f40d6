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

var ErrSessionNotFound = errors.New("session not found")

const sessionColumns = `id, user_id, access_token, refresh_token, ip_address, user_agent,
	expires_at, revoked_at, created_at, updated_at`

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) q(ctx context.Context) database.Querier {
	if tx, ok := database.TxFromContext(ctx); ok {
		return tx
	}
	return r.pool
}

func scanSession(row pgx.Row) (models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.AccessToken,
		&session.RefreshToken,
		&session.IPAddress,
		&session.UserAgent,
		&session.ExpiresAt,
		&session.RevokedAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return session, nil
}

func (r *SessionRepository) Create(ctx context.Context, session models.Session) error {
	const query = `
		INSERT INTO sessions (
			id, user_id, access_token, refresh_token, ip_address, user_agent, expires_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW(), NOW()
		)
	`

	_, err := r.q(ctx).Exec(ctx, query,
		session.ID,
		session.UserID,
		session.AccessToken,
		session.RefreshToken,
		session.IPAddress,
		session.UserAgent,
		session.ExpiresAt,
	)
	return err
}

// FindActiveByToken returns the session for an access token, provided it is
// neither revoked nor expired.
func (r *SessionRepository) FindActiveByToken(ctx context.Context, accessToken string) (models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE access_token = $1 AND revoked_at IS NULL AND expires_at > NOW()
	`
	return scanSession(r.q(ctx).QueryRow(ctx, query, accessToken))
}

func (r *SessionRepository) FindActiveByRefreshToken(ctx context.Context, refreshToken string) (models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE refresh_token = $1 AND revoked_at IS NULL AND expires_at > NOW()
	`
	return scanSession(r.q(ctx).QueryRow(ctx, query, refreshToken))
}

// Rotate swaps in a fresh token pair on the existing row. The previous
// refresh token stops matching the moment this commits; no grace window.
// The WHERE clause pins the token being rotated away, so of two concurrent
// rotations presenting the same refresh token exactly one wins and the
// loser sees ErrSessionNotFound.
func (r *SessionRepository) Rotate(ctx context.Context, sessionID, oldRefreshToken, accessToken, refreshToken string, expiresAt time.Time) error {
	const query = `
		UPDATE sessions
		SET access_token = $3, refresh_token = $4, expires_at = $5, updated_at = NOW()
		WHERE id = $1 AND refresh_token = $2 AND revoked_at IS NULL
	`
	cmd, err := r.q(ctx).Exec(ctx, query, sessionID, oldRefreshToken, accessToken, refreshToken, expiresAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Revoke marks the session matching the access token as revoked. Calling it
// for an already revoked or unknown token is a no-op.
func (r *SessionRepository) Revoke(ctx context.Context, accessToken string) error {
	const query = `
		UPDATE sessions
		SET revoked_at = NOW(), updated_at = NOW()
		WHERE access_token = $1 AND revoked_at IS NULL
	`
	_, err := r.q(ctx).Exec(ctx, query, accessToken)
	return err
}

// RevokeAllForUser invalidates every live session the user has. Used on
// password change, suspension, erasure, and logout-everywhere.
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	const query = `
		UPDATE sessions
		SET revoked_at = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL
	`
	_, err := r.q(ctx).Exec(ctx, query, userID)
	return err
}

func (r *SessionRepository) ListActiveByUser(ctx context.Context, userID string) ([]models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > NOW()
		ORDER BY created_at DESC
	`
	rows, err := r.q(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// PurgeStale deletes sessions revoked or expired before the cutoff. The
// cleanup job calls this; normal operation never hard-deletes.
func (r *SessionRepository) PurgeStale(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
		DELETE FROM sessions
		WHERE (revoked_at IS NOT NULL AND revoked_at < $1) OR expires_at < $1
	`
	cmd, err := r.q(ctx).Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
