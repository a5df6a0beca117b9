package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/BradenHooton/stayhub/internal/models"
	pkglogger "github.com/BradenHooton/stayhub/pkg/logger"
)

const (
	defaultPendingLimit = 50
	maxPendingLimit     = 200
)

// hostTransitions lists the states each target state may be entered from.
var hostTransitions = map[models.VerificationState][]models.VerificationState{
	models.VerificationPendingReview: {models.VerificationUnverified, models.VerificationRejected},
	models.VerificationVerified:      {models.VerificationPendingReview},
	models.VerificationRejected:      {models.VerificationPendingReview},
}

// HostVerificationService moves hosts through
// unverified -> pending_review -> verified | rejected, and rejected -> pending_review.
type HostVerificationService struct {
	repo        UserRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewHostVerificationService(repo UserRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *HostVerificationService {
	return &HostVerificationService{repo: repo, logger: logger, auditLogger: auditLogger}
}

// Status returns the current verification state of hostID.
func (s *HostVerificationService) Status(ctx context.Context, hostID string) (*UserResponse, error) {
	host, err := s.loadHost(ctx, hostID)
	if err != nil {
		return nil, err
	}
	return userModelToResponse(host), nil
}

// SubmitForReview is called by the host itself.
func (s *HostVerificationService) SubmitForReview(ctx context.Context, hostID string) (*UserResponse, error) {
	host, err := s.loadHost(ctx, hostID)
	if err != nil {
		return nil, err
	}
	if host.IsBlocked {
		return nil, fmt.Errorf("%w: account is blocked", models.ErrForbidden)
	}
	return s.transition(ctx, host, models.VerificationPendingReview, hostID, pkglogger.EventHostSubmitted)
}

func (s *HostVerificationService) Approve(ctx context.Context, adminID, hostID string) (*UserResponse, error) {
	return s.review(ctx, adminID, hostID, models.VerificationVerified, pkglogger.EventHostApproved)
}

func (s *HostVerificationService) Reject(ctx context.Context, adminID, hostID string) (*UserResponse, error) {
	return s.review(ctx, adminID, hostID, models.VerificationRejected, pkglogger.EventHostRejected)
}

// PendingHostsPage returns the page ListPending actually serves for the requested bounds.
func PendingHostsPage(limit, offset int) (int, int) {
	return clampPage(limit, offset, defaultPendingLimit, maxPendingLimit)
}

// ListPending returns hosts awaiting review, oldest submission first.
func (s *HostVerificationService) ListPending(ctx context.Context, adminID string, limit, offset int) ([]*UserResponse, error) {
	if _, err := requireAdmin(ctx, s.repo, adminID); err != nil {
		return nil, err
	}
	limit, offset = PendingHostsPage(limit, offset)

	hosts, err := s.repo.ListByVerificationStates(ctx, []models.VerificationState{models.VerificationPendingReview}, limit, offset)
	if err != nil {
		s.logger.Error("failed to list pending hosts", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	resp := make([]*UserResponse, len(hosts))
	for i, h := range hosts {
		resp[i] = userModelToResponse(h)
	}
	return resp, nil
}

func (s *HostVerificationService) review(ctx context.Context, adminID, hostID string, to models.VerificationState, event string) (*UserResponse, error) {
	if _, err := requireAdmin(ctx, s.repo, adminID); err != nil {
		return nil, err
	}
	host, err := s.loadHost(ctx, hostID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, host, to, adminID, event)
}

func (s *HostVerificationService) transition(ctx context.Context, host *models.User, to models.VerificationState, actorID, event string) (*UserResponse, error) {
	from := hostTransitions[to]
	if !slices.Contains(from, host.VerificationState) {
		return nil, fmt.Errorf("%w: cannot move host from %s to %s", models.ErrConflict, host.VerificationState, to)
	}

	updated, err := s.repo.TransitionVerificationState(ctx, host.ID, from, to)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: host verification state changed concurrently", models.ErrConflict)
		}
		s.logger.Error("failed to update host verification state", slog.String("host_id", host.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: event,
		UserID:    host.ID,
		ActorID:   actorID,
		Success:   true,
		Metadata:  map[string]string{"from": string(host.VerificationState), "to": string(to)},
	})
	return userModelToResponse(updated), nil
}

func (s *HostVerificationService) loadHost(ctx context.Context, hostID string) (*models.User, error) {
	host, err := s.repo.GetByID(ctx, hostID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: host not found", models.ErrNotFound)
		}
		s.logger.Error("failed to load host", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if host.Role != models.RoleHost {
		return nil, fmt.Errorf("%w: host not found", models.ErrNotFound)
	}
	return host, nil
}

// requireAdmin loads the acting account and insists it is an unblocked admin.
func requireAdmin(ctx context.Context, repo UserRepository, adminID string) (*models.User, error) {
	admin, err := repo.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown actor", models.ErrForbidden)
		}
		return nil, models.ErrInternalServer
	}
	if admin.Role != models.RoleAdmin || admin.IsBlocked {
		return nil, fmt.Errorf("%w: admin privileges required", models.ErrForbidden)
	}
	return admin, nil
}
