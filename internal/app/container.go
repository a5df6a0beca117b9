package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/stayhub/internal/auth"
	"github.com/BradenHooton/stayhub/internal/background"
	"github.com/BradenHooton/stayhub/internal/config"
	"github.com/BradenHooton/stayhub/internal/database"
	"github.com/BradenHooton/stayhub/internal/handlers"
	appmiddleware "github.com/BradenHooton/stayhub/internal/middleware"
	"github.com/BradenHooton/stayhub/internal/models"
	"github.com/BradenHooton/stayhub/internal/repositories"
	"github.com/BradenHooton/stayhub/internal/routes"
	"github.com/BradenHooton/stayhub/internal/services"
	"github.com/BradenHooton/stayhub/internal/validation"
	pkgauth "github.com/BradenHooton/stayhub/pkg/auth"
	pkghttp "github.com/BradenHooton/stayhub/pkg/http"
	pkglogger "github.com/BradenHooton/stayhub/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Container is the composition root. Every dependency is built once in New and
// shared by the HTTP layer, the CLI commands and the background sweeper.
type Container struct {
	Config *config.Config
	DB     *database.DB
	Logger *slog.Logger

	Users         *repositories.UserRepository
	OTPs          *repositories.OTPRepository
	RefreshTokens *repositories.RefreshTokenRepository
	AuditLog      *repositories.AuditLogRepository

	Tokens *auth.TokenManager
	Mailer services.EmailService

	OTP              *services.OTPService
	Sessions         *services.SessionService
	Credentials      *services.CredentialService
	PasswordReset    *services.PasswordResetService
	OAuth            *services.OAuthService
	HostVerification *services.HostVerificationService
	Admin            *services.AdminService
	Audit            *services.AuditService

	Cleanup  *background.CleanupManager
	ipConfig *pkghttp.IPConfig
}

// Option replaces a dependency New would otherwise build from config.
type Option func(*options)

type options struct {
	mailer services.EmailService
}

// WithMailer delivers mail through m instead of EMAIL_PROVIDER.
func WithMailer(m services.EmailService) Option {
	return func(o *options) { o.mailer = m }
}

// New wires repositories, services and the cleanup manager over db.
func New(ctx context.Context, cfg *config.Config, db *database.DB, logger *slog.Logger, opts ...Option) (*Container, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	mailer := o.mailer
	if mailer == nil {
		var err error
		if mailer, err = newMailer(ctx, cfg, logger); err != nil {
			return nil, err
		}
	}

	c := &Container{
		Config:        cfg,
		DB:            db,
		Logger:        logger,
		Users:         repositories.NewUserRepository(db),
		OTPs:          repositories.NewOTPRepository(db),
		RefreshTokens: repositories.NewRefreshTokenRepository(db),
		AuditLog:      repositories.NewAuditLogRepository(db),
		Tokens:        auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry, cfg.Auth.RefreshTokenExpiry),
		Mailer:        mailer,
		ipConfig:      pkghttp.NewIPConfig(cfg.Server.TrustedProxies),
	}

	auditLogger := pkglogger.NewAuditLogger(logger).WithSink(c.AuditLog)
	validator := validation.New()
	hasher := pkgauth.NewBcryptHasher(cfg.Auth.BcryptCost)
	timing := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:   time.Duration(cfg.Auth.TimingDelayBaseMs) * time.Millisecond,
		RandomDelay: time.Duration(cfg.Auth.TimingDelayRandomMs) * time.Millisecond,
	})
	provider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.OAuth.GoogleClientID,
		ClientSecret: cfg.OAuth.GoogleClientSecret,
		RedirectURL:  cfg.OAuth.GoogleRedirectURL,
	})

	c.OTP = services.NewOTPService(c.OTPs, auth.NewCodeGenerator(), mailer, cfg.OTP.MaxAttempts, logger, auditLogger)
	c.Sessions = services.NewSessionService(c.Users, c.RefreshTokens, c.Tokens, logger, auditLogger)
	c.Credentials = services.NewCredentialService(c.Users, hasher, validator, c.OTP, c.Sessions, timing, cfg.OTP.Expiry(), logger, auditLogger)
	c.PasswordReset = services.NewPasswordResetService(c.Users, hasher, validator, c.OTP, c.Sessions, mailer, cfg.Server.ClientURL, cfg.OTP.ResetLinkExpiry(), logger, auditLogger)
	c.OAuth = services.NewOAuthService(c.Users, provider, validator, c.Sessions, logger, auditLogger)
	c.HostVerification = services.NewHostVerificationService(c.Users, logger, auditLogger)
	c.Admin = services.NewAdminService(c.Users, c.Sessions, logger, auditLogger)
	c.Audit = services.NewAuditService(c.AuditLog, c.Users, logger)
	c.Cleanup = background.NewCleanupManager(logger, cfg.Auth.CleanupInterval,
		background.Task{Name: "refresh_token_states", Sweeper: c.RefreshTokens},
		background.Task{Name: "audit_retention", Sweeper: background.SweeperFunc(func(ctx context.Context) (int64, error) {
			return c.AuditLog.DeleteOlderThan(ctx, time.Now().Add(-cfg.Audit.Retention))
		})},
	)

	return c, nil
}

func newMailer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (services.EmailService, error) {
	switch cfg.Email.Provider {
	case "ses":
		mailer, err := services.NewAWSSESEmailService(ctx, cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SES mailer: %w", err)
		}
		return mailer, nil
	case "log":
		logger.Warn("EMAIL_PROVIDER=log, mail is written to the log instead of being sent")
		return services.NewLogEmailService(logger, cfg.Server.Env), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Email.Provider)
	}
}

// Router builds the HTTP handler with the full middleware chain.
func (c *Container) Router() http.Handler {
	cfg := c.Config

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(appmiddleware.SecurityHeaders(appmiddleware.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(appmiddleware.CORS(appmiddleware.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(appmiddleware.SecureLogger(c.Logger, c.ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	authHandlers := make(map[models.Role]*handlers.AuthHandler, len(models.Roles))
	for _, role := range models.Roles {
		authHandlers[role] = handlers.NewAuthHandler(role, c.Credentials, c.PasswordReset, c.OAuth, c.ipConfig)
	}

	routes.RegisterRoutes(router, routes.Handlers{
		Auth:    authHandlers,
		Session: handlers.NewSessionHandler(c.Sessions),
		Host:    handlers.NewHostHandler(c.HostVerification),
		Admin:   handlers.NewAdminHandler(c.Admin, c.HostVerification, c.Audit),
		Health:  c.health,
	}, auth.AuthMiddleware(c.Tokens, c.Users), appmiddleware.RateLimitConfig{
		RequestsPerMinute: cfg.Auth.RateLimitPerMinute,
		IPConfig:          c.ipConfig,
	})

	return router
}

func (c *Container) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := c.DB.HealthCheck(ctx); err != nil {
		pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "down"})
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "up"})
}

// BootstrapAdmin seeds the administrator from ADMIN_EMAIL and ADMIN_PASSWORD.
func (c *Container) BootstrapAdmin(ctx context.Context) error {
	admin := c.Config.Admin
	if !admin.Configured() {
		c.Logger.Info("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin bootstrap")
		return nil
	}

	created, err := c.Credentials.BootstrapAdmin(ctx, admin.Email, admin.Password, admin.Name)
	if err != nil {
		return err
	}
	if created {
		c.Logger.Info("admin user created", slog.String("email", pkglogger.SanitizedEmail(admin.Email)))
	} else {
		c.Logger.Info("admin user already exists")
	}
	return nil
}
