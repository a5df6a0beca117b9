package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/stayhub/internal/models"
	pkglogger "github.com/BradenHooton/stayhub/pkg/logger"
)

const DefaultOTPMaxAttempts = 5

// OTPService owns the lifecycle of one-time codes: issue, verify and consume.
// An email holds at most one live code. Expiry is checked lazily on verify.
type OTPService struct {
	repo        OTPRepository
	generator   CodeGenerator
	mailer      EmailService
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	maxAttempts int
	now         func() time.Time
}

func NewOTPService(repo OTPRepository, generator CodeGenerator, mailer EmailService, maxAttempts int, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *OTPService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultOTPMaxAttempts
	}
	return &OTPService{
		repo:        repo,
		generator:   generator,
		mailer:      mailer,
		logger:      logger,
		auditLogger: auditLogger,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Supersede stores a fresh code for email, replacing any earlier one, and returns it
// without sending mail.
func (s *OTPService) Supersede(ctx context.Context, email string) (*models.OneTimeCode, error) {
	code, err := s.generator.Generate()
	if err != nil {
		s.logger.Error("failed to generate one-time code", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	otp, err := s.repo.Replace(ctx, models.NormalizeEmail(email), code)
	if err != nil {
		s.logger.Error("failed to store one-time code",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return otp, nil
}

// Issue supersedes any code for email and mails the new one. When delivery fails the
// stored code stays valid and ErrMailDelivery is returned.
func (s *OTPService) Issue(ctx context.Context, email string, expiresIn time.Duration) error {
	otp, err := s.Supersede(ctx, email)
	if err != nil {
		return err
	}

	if err := s.mailer.SendOTP(ctx, otp.Email, otp.Code, expiresIn); err != nil {
		s.logger.Warn("one-time code stored but not delivered",
			slog.String("email", pkglogger.SanitizedEmail(otp.Email)),
			slog.Any("error", err))
		return fmt.Errorf("%w: %v", models.ErrMailDelivery, err)
	}

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{EventType: pkglogger.EventOTPIssued, Email: otp.Email, Success: true})
	return nil
}

// Verify consumes the code held for email when it matches and is no older than window.
//
//   - no code held: ErrNotFound
//   - code expired: the record is deleted, ErrUnauthorized
//   - code mismatch: the record is kept until maxAttempts failures, ErrUnauthorized
//   - match: the record is deleted and returned
//
// Only one concurrent caller can consume a code; the losers see ErrNotFound.
func (s *OTPService) Verify(ctx context.Context, email, code string, window time.Duration) (*models.OneTimeCode, error) {
	otp, err := s.repo.GetByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load one-time code", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if otp.IsExpired(s.now(), window) {
		s.discard(ctx, otp)
		return nil, fmt.Errorf("%w: code expired", models.ErrUnauthorized)
	}

	if subtle.ConstantTimeCompare([]byte(otp.Code), []byte(code)) != 1 {
		attempts, err := s.repo.IncrementAttempts(ctx, otp.ID, s.maxAttempts)
		if err != nil {
			s.logger.Error("failed to record one-time code attempt", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		if attempts < 0 || attempts >= s.maxAttempts {
			s.discard(ctx, otp)
		}
		return nil, fmt.Errorf("%w: code mismatch", models.ErrUnauthorized)
	}

	if err := s.repo.Delete(ctx, otp.ID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to consume one-time code", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return otp, nil
}

func (s *OTPService) discard(ctx context.Context, otp *models.OneTimeCode) {
	if err := s.repo.Delete(ctx, otp.ID); err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to delete one-time code", slog.Any("error", err))
	}
}
