package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/BradenHooton/stayhub/internal/auth"
	"github.com/BradenHooton/stayhub/internal/models"
	"github.com/BradenHooton/stayhub/internal/services"
	pkghttp "github.com/BradenHooton/stayhub/pkg/http"
	"github.com/go-chi/chi/v5"
)

type AdminServiceInterface interface {
	Block(ctx context.Context, adminID, userID string) (*services.UserResponse, error)
	Unblock(ctx context.Context, adminID, userID string) (*services.UserResponse, error)
}

type AuditServiceInterface interface {
	ListForUser(ctx context.Context, adminID, userID string, limit, offset int) ([]*models.AuditRecord, error)
}

// AdminHandler serves host review and account moderation. Mounted behind
// AuthMiddleware and RequireRole(admin).
type AdminHandler struct {
	admin AdminServiceInterface
	hosts HostVerificationServiceInterface
	audit AuditServiceInterface
}

func NewAdminHandler(admin AdminServiceInterface, hosts HostVerificationServiceInterface, audit AuditServiceInterface) *AdminHandler {
	return &AdminHandler{admin: admin, hosts: hosts, audit: audit}
}

type PendingHostsResponse struct {
	Hosts  []*services.UserResponse `json:"hosts"`
	Limit  int                      `json:"limit"`
	Offset int                      `json:"offset"`
}

// ListPendingHosts handles GET /admin/hosts/pending?limit=N&offset=M
func (h *AdminHandler) ListPendingHosts(w http.ResponseWriter, r *http.Request) {
	adminID, ok := actorID(w, r)
	if !ok {
		return
	}

	limit, offset := services.PendingHostsPage(queryInt(r, "limit", 0), queryInt(r, "offset", 0))

	hosts, err := h.hosts.ListPending(r.Context(), adminID, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, PendingHostsResponse{Hosts: hosts, Limit: limit, Offset: offset})
}

type AuditEventsResponse struct {
	Events []*models.AuditRecord `json:"events"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// UserAuditEvents handles GET /admin/users/{id}/audit?limit=N&offset=M
func (h *AdminHandler) UserAuditEvents(w http.ResponseWriter, r *http.Request) {
	adminID, ok := actorID(w, r)
	if !ok {
		return
	}

	limit, offset := services.AuditPage(queryInt(r, "limit", 0), queryInt(r, "offset", 0))

	events, err := h.audit.ListForUser(r.Context(), adminID, chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, AuditEventsResponse{Events: events, Limit: limit, Offset: offset})
}

// ApproveHost handles POST /admin/hosts/{id}/approve
func (h *AdminHandler) ApproveHost(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.hosts.Approve)
}

// RejectHost handles POST /admin/hosts/{id}/reject
func (h *AdminHandler) RejectHost(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.hosts.Reject)
}

// BlockUser handles POST /admin/users/{id}/block
func (h *AdminHandler) BlockUser(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.admin.Block)
}

// UnblockUser handles POST /admin/users/{id}/unblock
func (h *AdminHandler) UnblockUser(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.admin.Unblock)
}

func (h *AdminHandler) act(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, adminID, targetID string) (*services.UserResponse, error)) {
	adminID, ok := actorID(w, r)
	if !ok {
		return
	}
	targetID := chi.URLParam(r, "id")
	if targetID == "" {
		pkghttp.WriteBadRequest(w, "missing id")
		return
	}

	resp, err := fn(r.Context(), adminID, targetID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

func actorID(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := auth.GetUserFromContext(r.Context())
	if user == nil {
		pkghttp.WriteUnauthorized(w, "authentication required")
		return "", false
	}
	return user.ID, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}
