package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/stayhub/internal/models"
	pkglogger "github.com/BradenHooton/stayhub/pkg/logger"
)

// AdminService lets administrators block and unblock accounts of any role.
type AdminService struct {
	repo        UserRepository
	sessions    *SessionService
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewAdminService(repo UserRepository, sessions *SessionService, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AdminService {
	return &AdminService{repo: repo, sessions: sessions, logger: logger, auditLogger: auditLogger}
}

// Block stops userID from signing in and retires its refresh tokens. Admins cannot
// block themselves.
func (s *AdminService) Block(ctx context.Context, adminID, userID string) (*UserResponse, error) {
	if adminID == userID {
		return nil, fmt.Errorf("%w: administrators cannot block themselves", models.ErrConflict)
	}
	user, err := s.setBlocked(ctx, adminID, userID, true)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Invalidate(ctx, userID); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AdminService) Unblock(ctx context.Context, adminID, userID string) (*UserResponse, error) {
	return s.setBlocked(ctx, adminID, userID, false)
}

func (s *AdminService) setBlocked(ctx context.Context, adminID, userID string, blocked bool) (*UserResponse, error) {
	if _, err := requireAdmin(ctx, s.repo, adminID); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", models.ErrNotFound)
		}
		s.logger.Error("failed to load user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if user.IsBlocked != blocked {
		if err := s.repo.SetBlocked(ctx, userID, blocked); err != nil {
			s.logger.Error("failed to update blocked flag", slog.String("user_id", userID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		user.IsBlocked = blocked
	}

	event := pkglogger.EventAccountUnblocked
	if blocked {
		event = pkglogger.EventAccountBlocked
	}
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{EventType: event, UserID: userID, ActorID: adminID, Role: string(user.Role), Success: true})

	return userModelToResponse(user), nil
}
