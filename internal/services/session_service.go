package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/BradenHooton/stayhub/internal/auth"
	"github.com/BradenHooton/stayhub/internal/models"
	pkglogger "github.com/BradenHooton/stayhub/pkg/logger"
)

// SessionService issues token pairs and keeps the per-user refresh state that
// decides which refresh token is honored.
type SessionService struct {
	repo        UserRepository
	refreshRepo RefreshTokenRepository
	tokens      TokenIssuer
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewSessionService(repo UserRepository, refreshRepo RefreshTokenRepository, tokens TokenIssuer, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *SessionService {
	return &SessionService{
		repo:        repo,
		refreshRepo: refreshRepo,
		tokens:      tokens,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Issue mints an access and refresh token for user and records the refresh token
// as the only one honored. Any refresh token issued earlier stops working.
func (s *SessionService) Issue(ctx context.Context, user *models.User) (*AuthResponse, error) {
	resp, state, err := s.mint(user)
	if err != nil {
		return nil, err
	}
	if err := s.refreshRepo.Save(ctx, state); err != nil {
		s.logger.Error("failed to save refresh token state", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return resp, nil
}

// Refresh exchanges the current refresh token for a new pair. A token is honored only
// while its ID matches the stored state, so every rotation, logout, block or password
// reset retires it. The swap is conditional on the presented ID, so a reset or a
// concurrent replay that lands between the check and the write wins.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.tokens.ValidateToken(refreshToken)
	if err != nil || claims.Type != models.TokenTypeRefresh {
		return nil, s.refreshFailed(ctx, "", "invalid_token")
	}
	userID := claims.UserID()

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, s.refreshFailed(ctx, userID, "user_not_found")
		}
		s.logger.Error("failed to load user for refresh", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if user.IsBlocked {
		return nil, s.refreshFailed(ctx, userID, "account_blocked")
	}
	if auth.IssuedBeforePasswordChange(claims, user) {
		return nil, s.refreshFailed(ctx, userID, "password_changed")
	}

	state, err := s.refreshRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, s.refreshFailed(ctx, userID, "session_invalidated")
		}
		s.logger.Error("failed to load refresh token state", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if state.TokenID != claims.ID {
		return nil, s.refreshFailed(ctx, userID, "token_superseded")
	}

	resp, next, err := s.mint(user)
	if err != nil {
		return nil, err
	}
	if err := s.refreshRepo.Rotate(ctx, claims.ID, next); err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			return nil, s.refreshFailed(ctx, userID, "token_superseded")
		}
		s.logger.Error("failed to rotate refresh token state", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{EventType: pkglogger.EventRefresh, UserID: userID, Role: string(user.Role), Success: true})
	return resp, nil
}

func (s *SessionService) mint(user *models.User) (*AuthResponse, *models.RefreshTokenState, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	refresh, err := s.tokens.GenerateRefreshToken(user.ID, user.Role)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	resp := &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refresh.Token,
		TokenType:    "Bearer",
		ExpiresAt:    refresh.ExpiresAt,
		User:         userModelToResponse(user),
	}
	return resp, &models.RefreshTokenState{UserID: user.ID, TokenID: refresh.ID, ExpiresAt: refresh.ExpiresAt}, nil
}

// Invalidate retires every outstanding refresh token for userID.
func (s *SessionService) Invalidate(ctx context.Context, userID string) error {
	if err := s.refreshRepo.Invalidate(ctx, userID); err != nil {
		s.logger.Error("failed to invalidate refresh tokens", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

// Logout ends every session of userID.
func (s *SessionService) Logout(ctx context.Context, userID string) error {
	if err := s.Invalidate(ctx, userID); err != nil {
		return err
	}
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{EventType: pkglogger.EventLogout, UserID: userID, Success: true})
	return nil
}

func (s *SessionService) refreshFailed(ctx context.Context, userID, reason string) error {
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType:     pkglogger.EventRefresh,
		UserID:        userID,
		Success:       false,
		FailureReason: reason,
	})
	return models.ErrUnauthorized
}
