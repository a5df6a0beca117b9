package routes

import (
	"net/http"

	"github.com/BradenHooton/stayhub/internal/auth"
	"github.com/BradenHooton/stayhub/internal/handlers"
	"github.com/BradenHooton/stayhub/internal/middleware"
	"github.com/BradenHooton/stayhub/internal/models"
	"github.com/go-chi/chi/v5"
)

// Handlers bundles everything RegisterRoutes mounts.
type Handlers struct {
	Auth    map[models.Role]*handlers.AuthHandler
	Session *handlers.SessionHandler
	Host    *handlers.HostHandler
	Admin   *handlers.AdminHandler
	Health  http.HandlerFunc
}

// RegisterRoutes mounts /{user,host,admin}/auth, the shared session endpoints,
// host verification and the admin console. authenticate must be AuthMiddleware.
func RegisterRoutes(router chi.Router, h Handlers, authenticate func(http.Handler) http.Handler, limit middleware.RateLimitConfig) {
	rateLimited := middleware.RateLimitByIP(limit)
	requireAdmin := auth.RequireRole(models.RoleAdmin)

	router.Get("/health", h.Health)

	for _, role := range models.Roles {
		ah, ok := h.Auth[role]
		if !ok {
			continue
		}
		router.Route("/"+string(role)+"/auth", func(r chi.Router) {
			r.Use(rateLimited)
			r.Post("/signin", ah.Signin)
			r.Post("/verify-email", ah.VerifyEmail)
			r.Post("/resend-otp", ah.ResendOTP)
			r.Post("/forgot-password", ah.ForgotPassword)
			r.Post("/reset-password", ah.ResetPassword)
			r.Post("/oauth/google", ah.GoogleOAuth)

			// New administrators are created by existing ones.
			if role == models.RoleAdmin {
				r.With(authenticate, requireAdmin).Post("/signup", ah.Signup)
			} else {
				r.Post("/signup", ah.Signup)
			}
		})
	}

	router.With(rateLimited).Post("/auth/refresh", h.Session.Refresh)

	router.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/auth/logout", h.Session.Logout)

		r.Route("/host/verification", func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleHost))
			r.Get("/", h.Host.Status)
			r.Post("/submit", h.Host.Submit)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Get("/hosts/pending", h.Admin.ListPendingHosts)
			r.Post("/hosts/{id}/approve", h.Admin.ApproveHost)
			r.Post("/hosts/{id}/reject", h.Admin.RejectHost)
			r.Post("/users/{id}/block", h.Admin.BlockUser)
			r.Post("/users/{id}/unblock", h.Admin.UnblockUser)
			r.Get("/users/{id}/audit", h.Admin.UserAuditEvents)
		})
	})
}
