package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lumenstage/api/internal/apperr"
	"lumenstage/api/internal/config"
	"lumenstage/api/internal/database"
	"lumenstage/api/internal/ids"
	"lumenstage/api/internal/models"
	"lumenstage/api/internal/repository"
	"lumenstage/api/internal/security"
)

// ForgotPasswordMessage is returned for every forgot-password request,
// regardless of whether the account exists.
const ForgotPasswordMessage = "If an account exists for that address, a reset link has been sent."

type AuthService struct {
	users    UserStore
	sessions SessionStore
	resets   ResetStore
	tx       database.TxManager
	issuer   *security.TokenIssuer
	mailer   Mailer
	cfg      config.AuthConfig
	log      zerolog.Logger

	now func() time.Time
}

func NewAuthService(
	users UserStore,
	sessions SessionStore,
	resets ResetStore,
	tx database.TxManager,
	issuer *security.TokenIssuer,
	mailer Mailer,
	cfg config.AuthConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		resets:   resets,
		tx:       tx,
		issuer:   issuer,
		mailer:   mailer,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

func (s *AuthService) hashParams() security.Argon2Params {
	return security.Argon2Params{
		Time:    s.cfg.HashTime,
		Memory:  s.cfg.HashMemory,
		Threads: s.cfg.HashThreads,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

// Register creates a PENDING account with a fresh verification token and
// kicks off the welcome email without waiting on it.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (models.PublicUser, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return models.PublicUser{}, apperr.ErrInvalidCredentials
	}

	passwordHash, err := security.HashPassword(input.Password, s.hashParams())
	if err != nil {
		return models.PublicUser{}, err
	}

	verificationToken, err := security.GenerateOpaqueToken(32)
	if err != nil {
		return models.PublicUser{}, err
	}

	user := models.User{
		ID:                ids.New(),
		Email:             email,
		PasswordHash:      &passwordHash,
		DisplayName:       strings.TrimSpace(input.DisplayName),
		Role:              models.UserRoleViewer,
		Status:            models.UserStatusPending,
		VerificationToken: &verificationToken,
		CreatedAt:         s.now(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return models.PublicUser{}, apperr.ErrDuplicateEmail
		}
		return models.PublicUser{}, err
	}

	s.sendAsync(func(ctx context.Context) error {
		return s.mailer.SendWelcome(ctx, user.Email, user.DisplayName, verificationToken)
	}, "welcome email")

	return user.Public(), nil
}

type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

type LoginResult struct {
	User         models.PublicUser
	AccessToken  string
	RefreshToken string
	SessionID    string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return LoginResult{}, apperr.ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if user.PasswordHash == nil {
		return LoginResult{}, apperr.ErrInvalidCredentials
	}

	if user.Status != models.UserStatusActive {
		return LoginResult{}, apperr.ErrAccountNotActive
	}

	// Lockout is checked before the password is even compared: with the
	// counter at the threshold, the right password still bounces until the
	// window measured from the most recent failure has elapsed.
	now := s.now()
	if user.FailedLogins >= s.cfg.LockoutThreshold &&
		user.LastFailedLoginAt != nil &&
		now.Sub(*user.LastFailedLoginAt) < s.cfg.LockoutWindow {
		return LoginResult{}, apperr.ErrAccountLocked
	}

	ok, err := security.VerifyPassword(input.Password, *user.PasswordHash)
	if err != nil || !ok {
		if incErr := s.users.IncrementFailedLogin(ctx, user.ID, now); incErr != nil {
			s.log.Error().Err(incErr).Str("user_id", user.ID).Msg("record failed login")
		}
		return LoginResult{}, apperr.ErrInvalidCredentials
	}

	if err := s.users.ResetFailedLogin(ctx, user.ID, now); err != nil {
		return LoginResult{}, err
	}
	user.FailedLogins = 0
	user.LastLoginAt = &now

	return s.mintSession(ctx, user, input.IPAddress, input.UserAgent)
}

func (s *AuthService) mintSession(ctx context.Context, user models.User, ip, userAgent string) (LoginResult, error) {
	accessToken, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		return LoginResult{}, err
	}
	refreshToken, err := s.issuer.IssueRefreshToken(user)
	if err != nil {
		return LoginResult{}, err
	}

	session := models.Session{
		ID:           ids.New(),
		UserID:       user.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IPAddress:    ip,
		UserAgent:    userAgent,
		ExpiresAt:    s.now().Add(s.issuer.RefreshTTL()),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return LoginResult{}, err
	}

	return LoginResult{
		User:         user.Public(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    session.ID,
	}, nil
}

// Logout revokes the session holding the access token. Unknown or already
// revoked tokens are a silent no-op.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	return s.sessions.Revoke(ctx, accessToken)
}

func (s *AuthService) LogoutEverywhere(ctx context.Context, userID string) error {
	return s.sessions.RevokeAllForUser(ctx, userID)
}

// Refresh rotates the token pair on the existing session row. The old
// refresh token is unusable the moment this returns.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (LoginResult, error) {
	if _, err := s.issuer.Verify(refreshToken, security.TokenKindRefresh); err != nil {
		return LoginResult{}, apperr.ErrInvalidRefreshToken
	}

	session, err := s.sessions.FindActiveByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return LoginResult{}, apperr.ErrInvalidRefreshToken
		}
		return LoginResult{}, err
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return LoginResult{}, apperr.ErrInvalidRefreshToken
		}
		return LoginResult{}, err
	}
	if user.Status != models.UserStatusActive {
		return LoginResult{}, apperr.ErrInvalidRefreshToken
	}

	newAccess, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		return LoginResult{}, err
	}
	newRefresh, err := s.issuer.IssueRefreshToken(user)
	if err != nil {
		return LoginResult{}, err
	}

	if err := s.sessions.Rotate(ctx, session.ID, refreshToken, newAccess, newRefresh, s.now().Add(s.issuer.RefreshTTL())); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return LoginResult{}, apperr.ErrInvalidRefreshToken
		}
		return LoginResult{}, err
	}

	return LoginResult{
		User:         user.Public(),
		AccessToken:  newAccess,
		RefreshToken: newRefresh,
		SessionID:    session.ID,
	}, nil
}

// VerifyEmail activates the account matching a verification token and burns
// the token.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (models.PublicUser, error) {
	if token == "" {
		return models.PublicUser{}, apperr.ErrInvalidToken
	}

	user, err := s.users.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.PublicUser{}, apperr.ErrInvalidToken
		}
		return models.PublicUser{}, err
	}

	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return models.PublicUser{}, err
	}

	user.Status = models.UserStatusActive
	user.VerificationToken = nil
	return user.Public(), nil
}

// ForgotPassword responds identically whether or not the address has an
// account; the reset email is sent best-effort when it does.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return err
	}

	token, err := security.GenerateOpaqueToken(32)
	if err != nil {
		return err
	}

	reset := models.PasswordReset{
		ID:        ids.New(),
		Email:     user.Email,
		Token:     token,
		ExpiresAt: s.now().Add(s.cfg.ResetTokenTTL),
	}
	if err := s.resets.Create(ctx, reset); err != nil {
		return err
	}

	s.sendAsync(func(ctx context.Context) error {
		return s.mailer.SendPasswordReset(ctx, user.Email, token)
	}, "password reset email")

	return nil
}

// ResetPassword consumes the token, rehashes, and revokes every session of
// the user in a single transaction, so a failure leaves the token unspent.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	passwordHash, err := security.HashPassword(newPassword, s.hashParams())
	if err != nil {
		return err
	}

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		email, err := s.resets.Consume(ctx, token, s.now())
		if err != nil {
			if errors.Is(err, repository.ErrResetTokenNotFound) {
				return apperr.ErrInvalidToken
			}
			return err
		}

		user, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				// Token ownership is already proven here, so a specific
				// not-found is fine; this is not an enumeration channel.
				return apperr.ErrUserNotFound
			}
			return err
		}

		if err := s.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
			return err
		}
		return s.sessions.RevokeAllForUser(ctx, user.ID)
	})
}

// ChangePassword verifies the current password, then swaps the hash and
// revokes all sessions atomically, forcing re-login everywhere.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.ErrUserNotFound
		}
		return err
	}
	if user.PasswordHash == nil {
		return apperr.ErrInvalidCredentials
	}

	ok, err := security.VerifyPassword(currentPassword, *user.PasswordHash)
	if err != nil || !ok {
		return apperr.ErrInvalidCredentials
	}

	passwordHash, err := security.HashPassword(newPassword, s.hashParams())
	if err != nil {
		return err
	}

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
			return err
		}
		return s.sessions.RevokeAllForUser(ctx, user.ID)
	})
}

// VerifyToken is the per-request primitive behind the auth middleware. It
// checks the signature, then the session ledger, then re-fetches the user,
// so revocation and suspension take effect on the very next request instead
// of at token expiry.
func (s *AuthService) VerifyToken(ctx context.Context, accessToken string) (models.User, error) {
	claims, err := s.issuer.Verify(accessToken, security.TokenKindAccess)
	if err != nil {
		return models.User{}, apperr.ErrInvalidToken
	}

	if _, err := s.sessions.FindActiveByToken(ctx, accessToken); err != nil {
		return models.User{}, apperr.ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return models.User{}, apperr.ErrInvalidToken
	}
	if user.Status != models.UserStatusActive {
		return models.User{}, apperr.ErrInvalidToken
	}

	return user, nil
}

// Suspend flips the account to SUSPENDED and revokes its sessions in one
// transaction.
func (s *AuthService) Suspend(ctx context.Context, userID string) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.UpdateStatus(ctx, userID, models.UserStatusSuspended); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return apperr.ErrUserNotFound
			}
			return err
		}
		return s.sessions.RevokeAllForUser(ctx, userID)
	})
}

func (s *AuthService) Reactivate(ctx context.Context, userID string) error {
	if err := s.users.UpdateStatus(ctx, userID, models.UserStatusActive); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.ErrUserNotFound
		}
		return err
	}
	return nil
}

// Delete soft-deletes the account and revokes its sessions. The row stays
// behind for audit; the email address frees up for re-registration because
// uniqueness only covers live rows.
func (s *AuthService) Delete(ctx context.Context, userID string) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.SoftDelete(ctx, userID); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return apperr.ErrUserNotFound
			}
			return err
		}
		return s.sessions.RevokeAllForUser(ctx, userID)
	})
}

// Erase is the GDPR removal flow: sessions are revoked, then the user row is
// physically deleted.
func (s *AuthService) Erase(ctx context.Context, userID string) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
			return err
		}
		if err := s.users.HardDelete(ctx, userID); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return apperr.ErrUserNotFound
			}
			return err
		}
		return nil
	})
}

func (s *AuthService) Sessions(ctx context.Context, userID string) ([]models.Session, error) {
	return s.sessions.ListActiveByUser(ctx, userID)
}

// sendAsync runs a mail send in the background with its own deadline. A
// failed send is logged and never fails the operation that triggered it.
func (s *AuthService) sendAsync(send func(ctx context.Context) error, what string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := send(ctx); err != nil {
			s.log.Warn().Err(err).Msg(what + " failed")
		}
	}()
}
