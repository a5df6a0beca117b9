package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/stayhub/internal/models"
	pkgauth "github.com/BradenHooton/stayhub/pkg/auth"
	pkglogger "github.com/BradenHooton/stayhub/pkg/logger"
)

type SigninInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,max=128"`
	IPAddress string `json:"-"`
}

type SignupInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required"`
	Name      string `json:"name" validate:"required,max=100"`
	IPAddress string `json:"-"`
}

type VerifyEmailInput struct {
	Email string `json:"email" validate:"required,email,max=254"`
	OTP   string `json:"otp" validate:"required,numeric,len=6"`
}

type ResendOTPInput struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// CredentialService handles password signin and signup for every role.
type CredentialService struct {
	repo        UserRepository
	hasher      PasswordHasher
	validator   InputValidator
	otp         *OTPService
	sessions    *SessionService
	timing      Delayer
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	otpExpiry   time.Duration
}

func NewCredentialService(
	repo UserRepository,
	hasher PasswordHasher,
	validator InputValidator,
	otp *OTPService,
	sessions *SessionService,
	timing Delayer,
	otpExpiry time.Duration,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *CredentialService {
	return &CredentialService{
		repo:        repo,
		hasher:      hasher,
		validator:   validator,
		otp:         otp,
		sessions:    sessions,
		timing:      timing,
		logger:      logger,
		auditLogger: auditLogger,
		otpExpiry:   otpExpiry,
	}
}

// checkAccountAccess rejects blocked accounts and accounts of another role.
func checkAccountAccess(user *models.User, role models.Role) error {
	if user.IsBlocked {
		return fmt.Errorf("%w: account is blocked", models.ErrForbidden)
	}
	if user.Role != role {
		return fmt.Errorf("%w: account does not belong to this surface", models.ErrUnauthorized)
	}
	return nil
}

// Signin authenticates email and password on the surface of role.
// Failures are padded to a uniform duration.
func (s *CredentialService) Signin(ctx context.Context, role models.Role, in SigninInput) (*AuthResponse, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	email := models.NormalizeEmail(in.Email)

	start := time.Now()
	success := false
	defer func() { s.timing.WaitFrom(start, success) }()

	fail := func(err error, reason, userID string) (*AuthResponse, error) {
		s.auditLogger.Log(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventSignin,
			UserID:        userID,
			Email:         email,
			Role:          string(role),
			IPAddress:     in.IPAddress,
			Success:       false,
			FailureReason: reason,
		})
		return nil, err
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fail(models.ErrNotFound, "user_not_found", "")
		}
		s.logger.Error("failed to load user for signin", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := checkAccountAccess(user, role); err != nil {
		return fail(err, "account_access_denied", user.ID)
	}

	if err := s.hasher.Compare(user.PasswordHash, in.Password); err != nil {
		if !errors.Is(err, pkgauth.ErrPasswordMismatch) {
			s.logger.Error("failed to compare password", slog.Any("error", err))
		}
		return fail(models.ErrUnauthorized, "invalid_credentials", user.ID)
	}

	resp, err := s.sessions.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	success = true
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventSignin,
		UserID:    user.ID,
		Role:      string(role),
		IPAddress: in.IPAddress,
		Success:   true,
	})
	return resp, nil
}

// Signup creates an unverified account of role and mails a verification code.
// Admin signup must be gated by the caller.
func (s *CredentialService) Signup(ctx context.Context, role models.Role, in SignupInput) (*SignupResult, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	if err := s.validator.Password(in.Password); err != nil {
		return nil, err
	}
	name := s.validator.SanitizeName(in.Name)
	if name == "" {
		return nil, models.NewValidationError("name", "this field is required")
	}
	email := models.NormalizeEmail(in.Email)

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", models.ErrConflict)
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check existing user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.repo.Create(ctx, &models.User{
		Email:             email,
		Name:              name,
		PasswordHash:      hash,
		Role:              role,
		VerificationState: models.DefaultVerificationState(role),
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, fmt.Errorf("%w: email already registered", models.ErrConflict)
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	sent := true
	if err := s.otp.Issue(ctx, user.Email, s.otpExpiry); err != nil {
		sent = false
		s.logger.Warn("verification code not delivered at signup",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
	}

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventSignup,
		UserID:    user.ID,
		Role:      string(role),
		IPAddress: in.IPAddress,
		Success:   true,
	})

	return &SignupResult{User: userModelToResponse(user), VerificationSent: sent}, nil
}

// VerifyEmail consumes a signup code and marks the address verified.
func (s *CredentialService) VerifyEmail(ctx context.Context, role models.Role, in VerifyEmailInput) error {
	if err := s.validator.Struct(in); err != nil {
		return err
	}
	email := models.NormalizeEmail(in.Email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		s.logger.Error("failed to load user for email verification", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if err := checkAccountAccess(user, role); err != nil {
		return err
	}

	if _, err := s.otp.Verify(ctx, email, in.OTP, s.otpExpiry); err != nil {
		if errors.Is(err, models.ErrInternalServer) {
			return err
		}
		return fmt.Errorf("%w: invalid or expired code", models.ErrUnauthorized)
	}

	if !user.EmailVerified {
		if err := s.repo.MarkEmailVerified(ctx, user.ID); err != nil {
			s.logger.Error("failed to mark email verified", slog.Any("error", err))
			return models.ErrInternalServer
		}
	}

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{EventType: pkglogger.EventEmailVerified, UserID: user.ID, Role: string(role), Success: true})
	return nil
}

// ResendOTP mails a fresh verification code. It reports success for unknown or
// already verified addresses so callers cannot discover which accounts exist.
func (s *CredentialService) ResendOTP(ctx context.Context, role models.Role, in ResendOTPInput) error {
	if err := s.validator.Struct(in); err != nil {
		return err
	}
	email := models.NormalizeEmail(in.Email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		s.logger.Error("failed to load user for otp resend", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if user.EmailVerified || checkAccountAccess(user, role) != nil {
		return nil
	}

	return s.otp.Issue(ctx, email, s.otpExpiry)
}

// BootstrapAdmin creates the first administrator outside the admin-gated signup
// route. It reports false when the admin already exists.
func (s *CredentialService) BootstrapAdmin(ctx context.Context, email, password, name string) (bool, error) {
	in := SignupInput{Email: email, Password: password, Name: name}
	if err := s.validator.Struct(in); err != nil {
		return false, err
	}
	if err := s.validator.Password(password); err != nil {
		return false, err
	}
	email = models.NormalizeEmail(email)

	existing, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		if existing.Role != models.RoleAdmin {
			return false, fmt.Errorf("%w: %s belongs to a %s account", models.ErrConflict, pkglogger.SanitizedEmail(email), existing.Role)
		}
		return false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return false, fmt.Errorf("failed to check for admin: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash admin password: %w", err)
	}

	_, err = s.repo.Create(ctx, &models.User{
		Email:             email,
		Name:              s.validator.SanitizeName(name),
		PasswordHash:      hash,
		Role:              models.RoleAdmin,
		EmailVerified:     true,
		VerificationState: models.VerificationNotApplicable,
	})
	if err != nil {
		return false, fmt.Errorf("failed to create admin: %w", err)
	}
	return true, nil
}
