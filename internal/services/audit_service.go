package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/stayhub/internal/models"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditPage returns the page ListForUser actually serves for the requested bounds.
func AuditPage(limit, offset int) (int, int) {
	return clampPage(limit, offset, defaultAuditLimit, maxAuditLimit)
}

func clampPage(limit, offset, def, ceiling int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	return min(limit, ceiling), max(offset, 0)
}

// AuditService exposes the audit trail to administrators.
type AuditService struct {
	audit  AuditRepository
	users  UserRepository
	logger *slog.Logger
}

func NewAuditService(audit AuditRepository, users UserRepository, logger *slog.Logger) *AuditService {
	return &AuditService{audit: audit, users: users, logger: logger}
}

// ListForUser returns events concerning userID, newest first.
func (s *AuditService) ListForUser(ctx context.Context, adminID, userID string, limit, offset int) ([]*models.AuditRecord, error) {
	if _, err := requireAdmin(ctx, s.users, adminID); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", models.ErrNotFound)
		}
		s.logger.Error("failed to load user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	limit, offset = AuditPage(limit, offset)
	records, err := s.audit.ListByUserID(ctx, userID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list audit events", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return records, nil
}
