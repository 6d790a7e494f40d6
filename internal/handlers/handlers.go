package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"lumenstage/api/internal/apperr"
	"lumenstage/api/internal/config"
	"lumenstage/api/internal/database"
	"lumenstage/api/internal/email"
	"lumenstage/api/internal/middleware"
	"lumenstage/api/internal/models"
	"lumenstage/api/internal/repository"
	"lumenstage/api/internal/security"
	"lumenstage/api/internal/service"
	"lumenstage/api/internal/storage"
)

type HandlerSet struct {
	log       zerolog.Logger
	cfg       *config.AppConfig
	db        *pgxpool.Pool
	cache     *redis.Client
	auth      *service.AuthService
	media     *service.MediaService
	analytics *service.AnalyticsService
	users     *repository.UserRepository
	projects  *repository.ProjectRepository
	posts     *repository.PostRepository
	comments  *repository.CommentRepository
	mediaRepo *repository.MediaRepository
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, store *storage.ObjectStore, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	resetRepo := repository.NewPasswordResetRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	mediaRepo := repository.NewMediaRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	issuer := security.NewTokenIssuer(
		cfg.Auth.AccessSecret,
		cfg.Auth.RefreshSecret,
		cfg.Auth.AccessTTL,
		cfg.Auth.RefreshTTL,
	)
	mailer := email.NewSMTPMailer(cfg.SMTP)
	txManager := database.NewTxManager(db)

	auth := service.NewAuthService(userRepo, sessionRepo, resetRepo, txManager, issuer, mailer, cfg.Auth, log)
	media := service.NewMediaService(mediaRepo, store, log)
	analytics := service.NewAnalyticsService(analyticsRepo, cache, log)

	return HandlerSet{
		log:       log,
		cfg:       cfg,
		db:        db,
		cache:     cache,
		auth:      auth,
		media:     media,
		analytics: analytics,
		users:     userRepo,
		projects:  projectRepo,
		posts:     postRepo,
		comments:  commentRepo,
		mediaRepo: mediaRepo,
	}
}

// AuthService exposes the auth service for job wiring in main.
func (h HandlerSet) AuthService() *service.AuthService {
	return h.auth
}

func (h HandlerSet) AnalyticsService() *service.AnalyticsService {
	return h.analytics
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")

	authLimit := middleware.RateLimit(h.cache, h.cfg.RateLimit.AuthRequests, h.cfg.RateLimit.AuthWindow)

	auth := v1.Group("/auth")
	auth.Use(authLimit)
	auth.POST("/register", h.RegisterUser)
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)
	auth.POST("/logout", h.Logout)
	auth.POST("/verify-email", h.VerifyEmail)
	auth.POST("/forgot-password", h.ForgotPassword)
	auth.POST("/reset-password", h.ResetPassword)

	account := v1.Group("/account")
	account.Use(middleware.RequireAuth(h.auth))
	account.GET("/me", h.Me)
	account.GET("/sessions", h.ListSessions)
	account.POST("/change-password", h.ChangePassword)
	account.POST("/logout-all", h.LogoutAll)

	// Public site surface.
	v1.GET("/projects", h.ListProjects)
	v1.GET("/projects/:slug", h.GetProject)
	v1.GET("/posts", h.ListPosts)
	v1.GET("/posts/:slug", h.GetPost)
	v1.GET("/posts/:slug/comments", h.ListComments)
	v1.POST("/posts/:slug/comments", authLimit, h.CreateComment)
	v1.POST("/events/page-view", h.RecordPageView)

	// Content management, editor and above.
	editor := v1.Group("/admin")
	editor.Use(middleware.RequireAuth(h.auth), middleware.RequireRole(models.UserRoleEditor))
	editor.POST("/projects", h.AdminCreateProject)
	editor.GET("/projects", h.AdminListProjects)
	editor.PUT("/projects/:id", h.AdminUpdateProject)
	editor.DELETE("/projects/:id", h.AdminDeleteProject)
	editor.POST("/posts", h.AdminCreatePost)
	editor.GET("/posts", h.AdminListPosts)
	editor.PUT("/posts/:id", h.AdminUpdatePost)
	editor.DELETE("/posts/:id", h.AdminDeletePost)
	editor.GET("/comments/pending", h.AdminListPendingComments)
	editor.POST("/comments/:id/status", h.AdminModerateComment)
	editor.POST("/media", h.AdminUploadMedia)
	editor.GET("/media", h.AdminListMedia)
	editor.DELETE("/media/:id", h.AdminDeleteMedia)

	// User administration and analytics, admin and above.
	admin := v1.Group("/admin")
	admin.Use(middleware.RequireAuth(h.auth), middleware.RequireRole(models.UserRoleAdmin))
	admin.GET("/users", h.AdminListUsers)
	admin.POST("/users/:id/suspend", h.AdminSuspendUser)
	admin.POST("/users/:id/reactivate", h.AdminReactivateUser)
	admin.DELETE("/users/:id", h.AdminDeleteUser)
	admin.DELETE("/users/:id/purge", h.AdminEraseUser)
	admin.GET("/analytics/summary", h.AdminAnalyticsSummary)
}

// fail translates a service error into its transport status. Unknown errors
// are logged with the request id and surfaced as a plain 500.
func (h HandlerSet) fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		var appErr *apperr.Error
		if !errors.As(err, &appErr) {
			h.log.Error().
				Err(err).
				Str("request_id", middleware.GetRequestID(c)).
				Str("path", c.Request.URL.Path).
				Msg("request failed")
		}
	}
	code, msg := apperr.Public(err)
	c.JSON(status, gin.H{"code": code, "error": msg})
}
