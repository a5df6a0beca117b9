package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/stayhub/internal/auth"
	"github.com/BradenHooton/stayhub/internal/services"
	pkghttp "github.com/BradenHooton/stayhub/pkg/http"
)

type HostVerificationServiceInterface interface {
	Status(ctx context.Context, hostID string) (*services.UserResponse, error)
	SubmitForReview(ctx context.Context, hostID string) (*services.UserResponse, error)
	Approve(ctx context.Context, adminID, hostID string) (*services.UserResponse, error)
	Reject(ctx context.Context, adminID, hostID string) (*services.UserResponse, error)
	ListPending(ctx context.Context, adminID string, limit, offset int) ([]*services.UserResponse, error)
}

// HostHandler serves the signed-in host's own verification endpoints.
type HostHandler struct {
	service HostVerificationServiceInterface
}

func NewHostHandler(service HostVerificationServiceInterface) *HostHandler {
	return &HostHandler{service: service}
}

// Status handles GET /host/verification
func (h *HostHandler) Status(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r.Context())
	if user == nil {
		pkghttp.WriteUnauthorized(w, "authentication required")
		return
	}

	resp, err := h.service.Status(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Submit handles POST /host/verification/submit
func (h *HostHandler) Submit(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r.Context())
	if user == nil {
		pkghttp.WriteUnauthorized(w, "authentication required")
		return
	}

	resp, err := h.service.SubmitForReview(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}
