package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"lumenstage/api/internal/apperr"
	"lumenstage/api/internal/config"
	"lumenstage/api/internal/models"
	"lumenstage/api/internal/repository"
	"lumenstage/api/internal/security"
)

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]models.User{}}
}

// Lookups skip soft-deleted rows, and email uniqueness only covers live
// rows, mirroring the partial unique index the real store relies on.

func (s *fakeUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email && u.DeletedAt == nil {
			return repository.ErrDuplicateEmail
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email && u.DeletedAt == nil {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (s *fakeUserStore) GetByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.DeletedAt != nil {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *fakeUserStore) FindByVerificationToken(_ context.Context, token string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.VerificationToken != nil && *u.VerificationToken == token && u.DeletedAt == nil {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, id string, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = &passwordHash
	s.users[id] = u
	return nil
}

func (s *fakeUserStore) UpdateStatus(_ context.Context, id string, status models.UserStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Status = status
	s.users[id] = u
	return nil
}

func (s *fakeUserStore) MarkVerified(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	now := time.Now()
	u.Status = models.UserStatusActive
	u.VerificationToken = nil
	u.EmailVerifiedAt = &now
	s.users[id] = u
	return nil
}

func (s *fakeUserStore) IncrementFailedLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.FailedLogins++
	u.LastFailedLoginAt = &at
	s.users[id] = u
	return nil
}

func (s *fakeUserStore) ResetFailedLogin(_ context.Context, id string, loginAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.FailedLogins = 0
	u.LastFailedLoginAt = nil
	u.LastLoginAt = &loginAt
	s.users[id] = u
	return nil
}

func (s *fakeUserStore) SoftDelete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.DeletedAt != nil {
		return repository.ErrUserNotFound
	}
	now := time.Now()
	u.DeletedAt = &now
	s.users[id] = u
	return nil
}

func (s *fakeUserStore) HardDelete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *fakeUserStore) get(id string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

func (s *fakeUserStore) put(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	nowFn    func() time.Time
}

func newFakeSessionStore(nowFn func() time.Time) *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]models.Session{}, nowFn: nowFn}
}

func (s *fakeSessionStore) Create(_ context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *fakeSessionStore) FindActiveByToken(_ context.Context, accessToken string) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.AccessToken == accessToken && sess.Active(s.nowFn()) {
			return sess, nil
		}
	}
	return models.Session{}, repository.ErrSessionNotFound
}

func (s *fakeSessionStore) FindActiveByRefreshToken(_ context.Context, refreshToken string) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.RefreshToken == refreshToken && sess.Active(s.nowFn()) {
			return sess, nil
		}
	}
	return models.Session{}, repository.ErrSessionNotFound
}

func (s *fakeSessionStore) Rotate(_ context.Context, sessionID, oldRefreshToken, accessToken, refreshToken string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.RefreshToken != oldRefreshToken || sess.RevokedAt != nil {
		return repository.ErrSessionNotFound
	}
	sess.AccessToken = accessToken
	sess.RefreshToken = refreshToken
	sess.ExpiresAt = expiresAt
	s.sessions[sessionID] = sess
	return nil
}

func (s *fakeSessionStore) Revoke(_ context.Context, accessToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.AccessToken == accessToken && sess.RevokedAt == nil {
			now := s.nowFn()
			sess.RevokedAt = &now
			s.sessions[id] = sess
		}
	}
	return nil
}

func (s *fakeSessionStore) RevokeAllForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.UserID == userID && sess.RevokedAt == nil {
			now := s.nowFn()
			sess.RevokedAt = &now
			s.sessions[id] = sess
		}
	}
	return nil
}

func (s *fakeSessionStore) ListActiveByUser(_ context.Context, userID string) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.Active(s.nowFn()) {
			out = append(out, sess)
		}
	}
	return out, nil
}

type fakeResetStore struct {
	mu     sync.Mutex
	resets map[string]models.PasswordReset
}

func newFakeResetStore() *fakeResetStore {
	return &fakeResetStore{resets: map[string]models.PasswordReset{}}
}

func (s *fakeResetStore) Create(_ context.Context, reset models.PasswordReset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets[reset.Token] = reset
	return nil
}

func (s *fakeResetStore) Consume(_ context.Context, token string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resets[token]
	if !ok || r.UsedAt != nil || !r.ExpiresAt.After(now) {
		return "", repository.ErrResetTokenNotFound
	}
	r.UsedAt = &now
	s.resets[token] = r
	return r.Email, nil
}

func (s *fakeResetStore) tokenFor(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, r := range s.resets {
		if r.Email == email && r.UsedAt == nil {
			return token
		}
	}
	return ""
}

type nopMailer struct{}

func (nopMailer) SendWelcome(context.Context, string, string, string) error { return nil }
func (nopMailer) SendPasswordReset(context.Context, string, string) error   { return nil }

// passTx runs the function directly; the fakes have no transactions.
type passTx struct{}

func (passTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type authFixture struct {
	svc      *AuthService
	users    *fakeUserStore
	sessions *fakeSessionStore
	resets   *fakeResetStore
	now      time.Time
}

func (fx *authFixture) advance(d time.Duration) {
	fx.now = fx.now.Add(d)
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	fx := &authFixture{
		users:  newFakeUserStore(),
		resets: newFakeResetStore(),
		now:    time.Now().UTC(),
	}
	fx.sessions = newFakeSessionStore(func() time.Time { return fx.now })

	issuer := security.NewTokenIssuer("test-access-secret", "test-refresh-secret", time.Hour, 24*time.Hour)
	cfg := config.AuthConfig{
		HashTime:         1,
		HashMemory:       8 * 1024,
		HashThreads:      1,
		LockoutThreshold: 5,
		LockoutWindow:    30 * time.Minute,
		ResetTokenTTL:    time.Hour,
	}

	fx.svc = NewAuthService(fx.users, fx.sessions, fx.resets, passTx{}, issuer, nopMailer{}, cfg, zerolog.Nop())
	fx.svc.now = func() time.Time { return fx.now }
	return fx
}

func (fx *authFixture) registerActive(t *testing.T, email, password string) models.User {
	t.Helper()

	pub, err := fx.svc.Register(context.Background(), RegisterInput{
		Email:       email,
		Password:    password,
		DisplayName: "Test User",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	stored := fx.users.get(pub.ID)
	if stored.VerificationToken == nil {
		t.Fatalf("registered user has no verification token")
	}
	if _, err := fx.svc.VerifyEmail(context.Background(), *stored.VerificationToken); err != nil {
		t.Fatalf("verify email: %v", err)
	}
	return fx.users.get(pub.ID)
}

func TestRegister(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	pub, err := fx.svc.Register(ctx, RegisterInput{
		Email:       "  Ada@Example.COM ",
		Password:    "correct horse",
		DisplayName: "Ada",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if pub.Email != "ada@example.com" {
		t.Errorf("email not normalized: %q", pub.Email)
	}
	if pub.Status != string(models.UserStatusPending) {
		t.Errorf("status = %q, want PENDING", pub.Status)
	}
	if pub.Role != string(models.UserRoleViewer) {
		t.Errorf("role = %q, want VIEWER", pub.Role)
	}

	stored := fx.users.get(pub.ID)
	if stored.PasswordHash == nil || *stored.PasswordHash == "correct horse" {
		t.Errorf("password not hashed")
	}
	if stored.VerificationToken == nil {
		t.Errorf("no verification token stored")
	}

	// Same address with different case is a duplicate.
	if _, err := fx.svc.Register(ctx, RegisterInput{Email: "ADA@example.com", Password: "x"}); !errors.Is(err, apperr.ErrDuplicateEmail) {
		t.Errorf("duplicate register err = %v, want ErrDuplicateEmail", err)
	}

	if _, err := fx.svc.Register(ctx, RegisterInput{Email: "no-pass@example.com"}); !errors.Is(err, apperr.ErrInvalidCredentials) {
		t.Errorf("empty password err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogin(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	user := fx.registerActive(t, "ada@example.com", "correct horse")

	t.Run("unknown email", func(t *testing.T) {
		_, err := fx.svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "x"})
		if !errors.Is(err, apperr.ErrInvalidCredentials) {
			t.Errorf("err = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("wrong password increments counter", func(t *testing.T) {
		_, err := fx.svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "wrong"})
		if !errors.Is(err, apperr.ErrInvalidCredentials) {
			t.Fatalf("err = %v, want ErrInvalidCredentials", err)
		}
		if got := fx.users.get(user.ID).FailedLogins; got != 1 {
			t.Errorf("FailedLogins = %d, want 1", got)
		}
	})

	t.Run("success resets counter and mints session", func(t *testing.T) {
		res, err := fx.svc.Login(ctx, LoginInput{Email: "Ada@Example.com", Password: "correct horse"})
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		if res.AccessToken == "" || res.RefreshToken == "" || res.SessionID == "" {
			t.Errorf("incomplete login result: %+v", res)
		}
		if got := fx.users.get(user.ID).FailedLogins; got != 0 {
			t.Errorf("FailedLogins = %d, want 0 after success", got)
		}
		sessions, _ := fx.sessions.ListActiveByUser(ctx, user.ID)
		if len(sessions) != 1 {
			t.Errorf("active sessions = %d, want 1", len(sessions))
		}
	})

	t.Run("pending account cannot login", func(t *testing.T) {
		pub, err := fx.svc.Register(ctx, RegisterInput{Email: "new@example.com", Password: "secret123"})
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		_, err = fx.svc.Login(ctx, LoginInput{Email: "new@example.com", Password: "secret123"})
		if !errors.Is(err, apperr.ErrAccountNotActive) {
			t.Errorf("err = %v, want ErrAccountNotActive", err)
		}
		_ = pub
	})
}

func TestLoginLockout(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	user := fx.registerActive(t, "ada@example.com", "correct horse")

	for i := 0; i < 5; i++ {
		if _, err := fx.svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "wrong"}); !errors.Is(err, apperr.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: err = %v, want ErrInvalidCredentials", i, err)
		}
	}
	if got := fx.users.get(user.ID).FailedLogins; got != 5 {
		t.Fatalf("FailedLogins = %d, want 5", got)
	}

	// At the threshold even the right password is refused.
	if _, err := fx.svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "correct horse"}); !errors.Is(err, apperr.ErrAccountLocked) {
		t.Fatalf("locked login err = %v, want ErrAccountLocked", err)
	}

	// The window runs from the most recent failure, so a try just inside it
	// is still refused.
	fx.advance(29 * time.Minute)
	if _, err := fx.svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "correct horse"}); !errors.Is(err, apperr.ErrAccountLocked) {
		t.Fatalf("login inside window err = %v, want ErrAccountLocked", err)
	}

	fx.advance(2 * time.Minute)
	res, err := fx.svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("login after window: %v", err)
	}
	if res.User.ID != user.ID {
		t.Errorf("logged in as %q, want %q", res.User.ID, user.ID)
	}
	if got := fx.users.get(user.ID).FailedLogins; got != 0 {
		t.Errorf("FailedLogins = %d, want 0 after recovery", got)
	}
}

func TestRefreshRotation(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	fx.registerActive(t, "ada@example.com", "correct horse")

	login, err := fx.svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	rotated, err := fx.svc.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.SessionID != login.SessionID {
		t.Errorf("rotation changed session id: %q -> %q", login.SessionID, rotated.SessionID)
	}
	if rotated.RefreshToken == login.RefreshToken || rotated.AccessToken == login.AccessToken {
		t.Errorf("rotation did not mint a fresh pair")
	}

	// The pre-rotation pair is dead immediately.
	if _, err := fx.svc.Refresh(ctx, login.RefreshToken); !errors.Is(err, apperr.ErrInvalidRefreshToken) {
		t.Errorf("old refresh token err = %v, want ErrInvalidRefreshToken", err)
	}
	if _, err := fx.svc.VerifyToken(ctx, login.AccessToken); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Errorf("old access token err = %v, want ErrInvalidToken", err)
	}

	// The new pair works.
	if _, err := fx.svc.VerifyToken(ctx, rotated.AccessToken); err != nil {
		t.Errorf("new access token rejected: %v", err)
	}
	if _, err := fx.svc.Refresh(ctx, rotated.RefreshToken); err != nil {
		t.Errorf("new refresh token rejected: %v", err)
	}

	t.Run("access token is not a refresh token", func(t *testing.T) {
		if _, err := fx.svc.Refresh(ctx, rotated.AccessToken); !errors.Is(err, apperr.ErrInvalidRefreshToken) {
			t.Errorf("err = %v, want ErrInvalidRefreshToken", err)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if _, err := fx.svc.Refresh(ctx, "not-a-jwt"); !errors.Is(err, apperr.ErrInvalidRefreshToken) {
			t.Errorf("err = %v, want ErrInvalidRefreshToken", err)
		}
	})
}

// readBarrierSessionStore holds every FindActiveByRefreshToken caller until
// all expected readers have seen the un-rotated session, so the rotations
// that follow genuinely race.
type readBarrierSessionStore struct {
	*fakeSessionStore
	readers *sync.WaitGroup
}

func (s *readBarrierSessionStore) FindActiveByRefreshToken(ctx context.Context, token string) (models.Session, error) {
	sess, err := s.fakeSessionStore.FindActiveByRefreshToken(ctx, token)
	s.readers.Done()
	s.readers.Wait()
	return sess, err
}

func TestRefreshConcurrentSameToken(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	fx.registerActive(t, "ada@example.com", "correct horse")

	login, err := fx.svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	var readers sync.WaitGroup
	readers.Add(2)
	fx.svc.sessions = &readBarrierSessionStore{fakeSessionStore: fx.sessions, readers: &readers}

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := fx.svc.Refresh(ctx, login.RefreshToken)
			errs <- err
		}()
	}

	var succeeded, rejected int
	for i := 0; i < 2; i++ {
		switch err := <-errs; {
		case err == nil:
			succeeded++
		case errors.Is(err, apperr.ErrInvalidRefreshToken):
			rejected++
		default:
			t.Fatalf("unexpected refresh error: %v", err)
		}
	}
	if succeeded != 1 || rejected != 1 {
		t.Fatalf("concurrent refresh: %d succeeded, %d rejected, want exactly one of each", succeeded, rejected)
	}
}

func TestVerifyTokenRevocation(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	user := fx.registerActive(t, "ada@example.com", "correct horse")

	login := func() LoginResult {
		res, err := fx.svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "correct horse"})
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		return res
	}

	t.Run("logout kills the token", func(t *testing.T) {
		res := login()
		if _, err := fx.svc.VerifyToken(ctx, res.AccessToken); err != nil {
			t.Fatalf("fresh token rejected: %v", err)
		}
		if err := fx.svc.Logout(ctx, res.AccessToken); err != nil {
			t.Fatalf("logout: %v", err)
		}
		if _, err := fx.svc.VerifyToken(ctx, res.AccessToken); !errors.Is(err, apperr.ErrInvalidToken) {
			t.Errorf("post-logout err = %v, want ErrInvalidToken", err)
		}
		// Logging out twice is a no-op.
		if err := fx.svc.Logout(ctx, res.AccessToken); err != nil {
			t.Errorf("second logout: %v", err)
		}
	})

	t.Run("suspension kills every session", func(t *testing.T) {
		a, b := login(), login()
		if err := fx.svc.Suspend(ctx, user.ID); err != nil {
			t.Fatalf("suspend: %v", err)
		}
		for _, tok := range []string{a.AccessToken, b.AccessToken} {
			if _, err := fx.svc.VerifyToken(ctx, tok); !errors.Is(err, apperr.ErrInvalidToken) {
				t.Errorf("post-suspend err = %v, want ErrInvalidToken", err)
			}
		}
		if _, err := fx.svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "correct horse"}); !errors.Is(err, apperr.ErrAccountNotActive) {
			t.Errorf("suspended login err = %v, want ErrAccountNotActive", err)
		}
		if err := fx.svc.Reactivate(ctx, user.ID); err != nil {
			t.Fatalf("reactivate: %v", err)
		}
	})

	t.Run("change password forces re-login everywhere", func(t *testing.T) {
		a, b := login(), login()
		if err := fx.svc.ChangePassword(ctx, user.ID, "correct horse", "new passphrase"); err != nil {
			t.Fatalf("change password: %v", err)
		}
		for _, tok := range []string{a.AccessToken, b.AccessToken} {
			if _, err := fx.svc.VerifyToken(ctx, tok); !errors.Is(err, apperr.ErrInvalidToken) {
				t.Errorf("post-change err = %v, want ErrInvalidToken", err)
			}
		}
		if _, err := fx.svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "correct horse"}); !errors.Is(err, apperr.ErrInvalidCredentials) {
			t.Errorf("old password err = %v, want ErrInvalidCredentials", err)
		}
		if _, err := fx.svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "new passphrase"}); err != nil {
			t.Errorf("new password rejected: %v", err)
		}
	})
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	user := fx.registerActive(t, "ada@example.com", "correct horse")

	if err := fx.svc.ChangePassword(ctx, user.ID, "wrong", "new passphrase"); !errors.Is(err, apperr.ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := fx.svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "correct horse"}); err != nil {
		t.Errorf("password changed despite failed verification: %v", err)
	}
}

func TestVerifyEmail(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	pub, err := fx.svc.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	token := *fx.users.get(pub.ID).VerificationToken

	verified, err := fx.svc.VerifyEmail(ctx, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified.Status != string(models.UserStatusActive) {
		t.Errorf("status = %q, want ACTIVE", verified.Status)
	}

	// The token is burned on use.
	if _, err := fx.svc.VerifyEmail(ctx, token); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Errorf("reused token err = %v, want ErrInvalidToken", err)
	}
	if _, err := fx.svc.VerifyEmail(ctx, ""); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Errorf("empty token err = %v, want ErrInvalidToken", err)
	}
}

func TestForgotPassword(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	fx.registerActive(t, "ada@example.com", "correct horse")

	// Known and unknown addresses are indistinguishable to the caller.
	if err := fx.svc.ForgotPassword(ctx, "ada@example.com"); err != nil {
		t.Errorf("known address: %v", err)
	}
	if err := fx.svc.ForgotPassword(ctx, "nobody@example.com"); err != nil {
		t.Errorf("unknown address: %v", err)
	}

	if fx.resets.tokenFor("ada@example.com") == "" {
		t.Errorf("no reset token created for known address")
	}
	if fx.resets.tokenFor("nobody@example.com") != "" {
		t.Errorf("reset token created for unknown address")
	}
}

func TestResetPassword(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	user := fx.registerActive(t, "ada@example.com", "correct horse")

	login, err := fx.svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := fx.svc.ForgotPassword(ctx, "ada@example.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	token := fx.resets.tokenFor("ada@example.com")

	if err := fx.svc.ResetPassword(ctx, token, "new passphrase"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	// Old password dead, new one works, old sessions revoked.
	if _, err := fx.svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "correct horse"}); !errors.Is(err, apperr.ErrInvalidCredentials) {
		t.Errorf("old password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := fx.svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "new passphrase"}); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
	if _, err := fx.svc.VerifyToken(ctx, login.AccessToken); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Errorf("pre-reset session err = %v, want ErrInvalidToken", err)
	}

	// A reset token spends exactly once.
	if err := fx.svc.ResetPassword(ctx, token, "another one"); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Errorf("reused token err = %v, want ErrInvalidToken", err)
	}

	t.Run("expired token", func(t *testing.T) {
		if err := fx.svc.ForgotPassword(ctx, "ada@example.com"); err != nil {
			t.Fatalf("forgot: %v", err)
		}
		expired := fx.resets.tokenFor("ada@example.com")
		fx.advance(2 * time.Hour)
		if err := fx.svc.ResetPassword(ctx, expired, "too late"); !errors.Is(err, apperr.ErrInvalidToken) {
			t.Errorf("expired token err = %v, want ErrInvalidToken", err)
		}
	})
	_ = user
}

func TestResetPasswordConcurrentConsumption(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	fx.registerActive(t, "ada@example.com", "correct horse")

	if err := fx.svc.ForgotPassword(ctx, "ada@example.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	token := fx.resets.tokenFor("ada@example.com")

	passwords := []string{"left passphrase", "right passphrase"}
	errs := make(chan error, len(passwords))
	var wg sync.WaitGroup
	for _, pw := range passwords {
		wg.Add(1)
		go func(pw string) {
			defer wg.Done()
			errs <- fx.svc.ResetPassword(ctx, token, pw)
		}(pw)
	}
	wg.Wait()
	close(errs)

	var succeeded, rejected int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apperr.ErrInvalidToken):
			rejected++
		default:
			t.Fatalf("unexpected reset error: %v", err)
		}
	}
	if succeeded != 1 || rejected != 1 {
		t.Fatalf("concurrent consumption: %d succeeded, %d rejected, want exactly one of each", succeeded, rejected)
	}

	// One of the two new passwords works; the old one is gone.
	if _, err := fx.svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "correct horse"}); !errors.Is(err, apperr.ErrInvalidCredentials) {
		t.Errorf("old password err = %v, want ErrInvalidCredentials", err)
	}
	var loggedIn int
	for _, pw := range passwords {
		if _, err := fx.svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: pw}); err == nil {
			loggedIn++
		}
	}
	if loggedIn != 1 {
		t.Errorf("new passwords accepted = %d, want 1", loggedIn)
	}
}

func TestDeleteUser(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	user := fx.registerActive(t, "ada@example.com", "correct horse")

	login, err := fx.svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := fx.svc.Delete(ctx, user.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// The account behaves as gone, but the row survives for audit.
	if _, err := fx.svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "correct horse"}); !errors.Is(err, apperr.ErrInvalidCredentials) {
		t.Errorf("post-delete login err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := fx.svc.VerifyToken(ctx, login.AccessToken); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Errorf("post-delete token err = %v, want ErrInvalidToken", err)
	}
	if fx.users.get(user.ID).DeletedAt == nil {
		t.Errorf("user row removed, want soft delete")
	}

	// The address is free again.
	if _, err := fx.svc.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "new secret", DisplayName: "Ada II"}); err != nil {
		t.Errorf("re-register after delete: %v", err)
	}

	if err := fx.svc.Delete(ctx, user.ID); !errors.Is(err, apperr.ErrUserNotFound) {
		t.Errorf("second delete err = %v, want ErrUserNotFound", err)
	}
}

func TestErase(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	user := fx.registerActive(t, "ada@example.com", "correct horse")

	login, err := fx.svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := fx.svc.Erase(ctx, user.ID); err != nil {
		t.Fatalf("erase: %v", err)
	}
	if _, err := fx.svc.VerifyToken(ctx, login.AccessToken); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Errorf("post-erase token err = %v, want ErrInvalidToken", err)
	}
	if _, err := fx.users.FindByEmail(ctx, "ada@example.com"); !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("user row survived erase: %v", err)
	}
	if err := fx.svc.Erase(ctx, user.ID); !errors.Is(err, apperr.ErrUserNotFound) {
		t.Errorf("second erase err = %v, want ErrUserNotFound", err)
	}
}
