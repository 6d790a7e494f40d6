package service

import (
	"context"
	"time"

	"lumenstage/api/internal/models"
)

// The auth service depends on narrow store interfaces rather than concrete
// repositories, so tests can substitute in-memory fakes. The pgx-backed
// repositories satisfy these.

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	FindByVerificationToken(ctx context.Context, token string) (models.User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	UpdateStatus(ctx context.Context, id string, status models.UserStatus) error
	MarkVerified(ctx context.Context, id string) error
	IncrementFailedLogin(ctx context.Context, id string, at time.Time) error
	ResetFailedLogin(ctx context.Context, id string, loginAt time.Time) error
	SoftDelete(ctx context.Context, id string) error
	HardDelete(ctx context.Context, id string) error
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	FindActiveByToken(ctx context.Context, accessToken string) (models.Session, error)
	FindActiveByRefreshToken(ctx context.Context, refreshToken string) (models.Session, error)
	Rotate(ctx context.Context, sessionID, oldRefreshToken, accessToken, refreshToken string, expiresAt time.Time) error
	Revoke(ctx context.Context, accessToken string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	ListActiveByUser(ctx context.Context, userID string) ([]models.Session, error)
}

type ResetStore interface {
	Create(ctx context.Context, reset models.PasswordReset) error
	Consume(ctx context.Context, token string, now time.Time) (string, error)
}

// Mailer is the transactional email collaborator. Sends are best effort; the
// auth service logs failures and never surfaces them.
type Mailer interface {
	SendWelcome(ctx context.Context, to, displayName, verificationToken string) error
	SendPasswordReset(ctx context.Context, to, resetToken string) error
}
