package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/stayhub/internal/models"
	pkglogger "github.com/BradenHooton/stayhub/pkg/logger"
)

type ForgotPasswordInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	IPAddress string `json:"-"`
}

// ResetPasswordInput carries either the raw code or the token from a reset link.
type ResetPasswordInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Token     string `json:"token" validate:"required_without=OTP,omitempty,max=128"`
	OTP       string `json:"otp" validate:"required_without=Token,omitempty,numeric,len=6"`
	Password  string `json:"password" validate:"required"`
	IPAddress string `json:"-"`
}

// PasswordResetService runs forgot-password and reset-password for every role.
type PasswordResetService struct {
	repo        UserRepository
	hasher      PasswordHasher
	validator   InputValidator
	otp         *OTPService
	sessions    *SessionService
	mailer      EmailService
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	clientURL   string
	window      time.Duration
	now         func() time.Time
}

func NewPasswordResetService(
	repo UserRepository,
	hasher PasswordHasher,
	validator InputValidator,
	otp *OTPService,
	sessions *SessionService,
	mailer EmailService,
	clientURL string,
	window time.Duration,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *PasswordResetService {
	return &PasswordResetService{
		repo:        repo,
		hasher:      hasher,
		validator:   validator,
		otp:         otp,
		sessions:    sessions,
		mailer:      mailer,
		logger:      logger,
		auditLogger: auditLogger,
		clientURL:   clientURL,
		window:      window,
		now:         time.Now,
	}
}

// ResetLink builds <clientURL>/<role>/auth/reset-password/?token=<code>___<issued-at>.
func ResetLink(clientURL string, role models.Role, token models.ResetToken) string {
	return fmt.Sprintf("%s/%s/auth/reset-password/?token=%s", clientURL, role, token.Encode())
}

// ForgotPassword issues a code for the account and mails a reset link carrying it.
// A delivery failure leaves the code valid and returns ErrMailDelivery.
func (s *PasswordResetService) ForgotPassword(ctx context.Context, role models.Role, in ForgotPasswordInput) error {
	if err := s.validator.Struct(in); err != nil {
		return err
	}
	email := models.NormalizeEmail(in.Email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to load user for password reset", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if err := checkAccountAccess(user, role); err != nil {
		return err
	}

	otp, err := s.otp.Supersede(ctx, email)
	if err != nil {
		return err
	}

	link := ResetLink(s.clientURL, role, models.ResetToken{Code: otp.Code, IssuedAt: otp.CreatedAt})
	if err := s.mailer.SendPasswordReset(ctx, email, link, s.window); err != nil {
		s.logger.Warn("reset code stored but link not delivered",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		s.auditLogger.Log(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventPasswordResetReq,
			UserID:        user.ID,
			Role:          string(role),
			IPAddress:     in.IPAddress,
			Success:       false,
			FailureReason: "mail_delivery_failed",
		})
		return fmt.Errorf("%w: %v", models.ErrMailDelivery, err)
	}

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventPasswordResetReq,
		UserID:    user.ID,
		Role:      string(role),
		IPAddress: in.IPAddress,
		Success:   true,
	})
	return nil
}

// ResetPassword consumes the code, stores the new password and retires every
// refresh token of the account. It succeeds only when all three happened.
func (s *PasswordResetService) ResetPassword(ctx context.Context, role models.Role, in ResetPasswordInput) error {
	if err := s.validator.Struct(in); err != nil {
		return err
	}

	token := models.ResetToken{Code: in.OTP}
	if in.Token != "" {
		parsed, err := models.ParseResetToken(in.Token)
		if err != nil {
			return err
		}
		token = parsed
	}
	if err := s.validator.Password(in.Password); err != nil {
		return err
	}
	email := models.NormalizeEmail(in.Email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to load user for password reset", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if err := checkAccountAccess(user, role); err != nil {
		return err
	}

	fail := func(reason string) error {
		s.auditLogger.Log(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventPasswordReset,
			UserID:        user.ID,
			Role:          string(role),
			IPAddress:     in.IPAddress,
			Success:       false,
			FailureReason: reason,
		})
		return fmt.Errorf("%w: invalid or expired reset token", models.ErrUnauthorized)
	}

	if _, err := s.otp.Verify(ctx, email, token.Code, s.window); err != nil {
		if errors.Is(err, models.ErrInternalServer) {
			return err
		}
		return fail("code_rejected")
	}
	// The matched code is already consumed, so a stale link cannot be retried.
	if !token.IssuedAt.IsZero() && s.now().Sub(token.IssuedAt) > s.window {
		return fail("link_expired")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash, s.now()); err != nil {
		s.logger.Error("failed to update password", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.sessions.Invalidate(ctx, user.ID); err != nil {
		s.logger.Error("password changed but refresh tokens were not invalidated",
			slog.String("user_id", user.ID))
		return err
	}

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventPasswordReset,
		UserID:    user.ID,
		Role:      string(role),
		IPAddress: in.IPAddress,
		Success:   true,
	})
	return nil
}
