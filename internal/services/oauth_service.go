package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/stayhub/internal/models"
	pkglogger "github.com/BradenHooton/stayhub/pkg/logger"
)

type OAuthInput struct {
	Code      string `json:"code" validate:"required,max=2048"`
	IPAddress string `json:"-"`
}

// OAuthService signs callers in with an external identity, linking it to an
// existing account by email or creating a password-less account.
type OAuthService struct {
	repo        UserRepository
	provider    OAuthProvider
	validator   InputValidator
	sessions    *SessionService
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewOAuthService(repo UserRepository, provider OAuthProvider, validator InputValidator, sessions *SessionService, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *OAuthService {
	return &OAuthService{
		repo:        repo,
		provider:    provider,
		validator:   validator,
		sessions:    sessions,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Exec completes the OAuth flow on the surface of role.
//
// An existing account keeps its password hash and is only flagged as linked.
// Unknown emails get a new account, except on the admin surface where they are ErrNotFound.
func (s *OAuthService) Exec(ctx context.Context, role models.Role, in OAuthInput) (*AuthResponse, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	fail := func(err error, reason, email string) (*AuthResponse, error) {
		s.auditLogger.Log(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventOAuthSignin,
			Email:         email,
			Role:          string(role),
			IPAddress:     in.IPAddress,
			Success:       false,
			FailureReason: reason,
		})
		return nil, err
	}

	identity, err := s.provider.Exchange(ctx, in.Code)
	if err != nil {
		s.logger.Warn("oauth exchange failed", slog.Any("error", err))
		return fail(fmt.Errorf("%w: oauth exchange failed", models.ErrUnauthorized), "exchange_failed", "")
	}
	if !identity.EmailVerified {
		return fail(fmt.Errorf("%w: provider email is not verified", models.ErrUnauthorized), "email_unverified", identity.Email)
	}
	email := models.NormalizeEmail(identity.Email)

	user, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := checkAccountAccess(user, role); err != nil {
			return fail(err, "account_access_denied", email)
		}
		if !user.ExternalIdentityLinked {
			if err := s.repo.LinkExternalIdentity(ctx, user.ID); err != nil {
				s.logger.Error("failed to link external identity", slog.String("user_id", user.ID), slog.Any("error", err))
				return nil, models.ErrInternalServer
			}
			user.ExternalIdentityLinked = true
			user.EmailVerified = true
		}

	case errors.Is(err, models.ErrNotFound):
		if role == models.RoleAdmin {
			return fail(models.ErrNotFound, "admin_not_found", email)
		}
		user, err = s.create(ctx, role, email, identity)
		if err != nil {
			return nil, err
		}

	default:
		s.logger.Error("failed to load user for oauth", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	resp, err := s.sessions.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventOAuthSignin,
		UserID:    user.ID,
		Role:      string(role),
		IPAddress: in.IPAddress,
		Success:   true,
		Metadata:  map[string]string{"provider": identity.Provider},
	})
	return resp, nil
}

func (s *OAuthService) create(ctx context.Context, role models.Role, email string, identity *models.ExternalIdentity) (*models.User, error) {
	user, err := s.repo.Create(ctx, &models.User{
		Email:                  email,
		Name:                   s.validator.SanitizeName(identity.Name),
		Role:                   role,
		EmailVerified:          true,
		ExternalIdentityLinked: true,
		VerificationState:      models.DefaultVerificationState(role),
	})
	if err == nil {
		return user, nil
	}

	// A concurrent signup may have created the account first.
	if errors.Is(err, models.ErrConflict) {
		existing, getErr := s.repo.GetByEmail(ctx, email)
		if getErr == nil {
			if accessErr := checkAccountAccess(existing, role); accessErr != nil {
				return nil, accessErr
			}
			return existing, nil
		}
	}

	s.logger.Error("failed to create oauth user", slog.Any("error", err))
	return nil, models.ErrInternalServer
}
