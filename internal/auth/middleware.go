package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/BradenHooton/stayhub/internal/models"
	pkghttp "github.com/BradenHooton/stayhub/pkg/http"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	claimsContextKey contextKey = "claims"
	userContextKey   contextKey = "user"
)

// TokenValidator verifies a bearer token.
type TokenValidator interface {
	ValidateToken(tokenString string) (*models.TokenClaims, error)
}

// UserRepository loads the account behind a token.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// AuthMiddleware accepts only access tokens and reloads the account on every request,
// so blocking an account or resetting its password takes effect immediately.
func AuthMiddleware(tv TokenValidator, users UserRepository) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := BearerToken(r)
			if !ok {
				pkghttp.WriteUnauthorized(w, "missing or malformed authorization header")
				return
			}

			claims, err := tv.ValidateToken(tokenString)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "invalid or expired token")
				return
			}
			if claims.Type != models.TokenTypeAccess {
				pkghttp.WriteUnauthorized(w, "refresh tokens cannot be used for API access")
				return
			}

			user, err := users.GetByID(r.Context(), claims.UserID())
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteUnauthorized(w, "account no longer exists")
					return
				}
				pkghttp.WriteInternalError(w, "internal server error")
				return
			}
			if user.IsBlocked {
				pkghttp.WriteForbidden(w, "account is blocked")
				return
			}
			if IssuedBeforePasswordChange(claims, user) {
				pkghttp.WriteUnauthorized(w, "token predates the latest password change")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user, claims)))
		})
	}
}

// RequireRole admits only accounts whose stored role is one of roles.
// It must run after AuthMiddleware.
func RequireRole(roles ...models.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUserFromContext(r.Context())
			if user == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}
			if !slices.Contains(roles, user.Role) {
				pkghttp.WriteForbidden(w, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IssuedBeforePasswordChange reports whether claims were minted before the user's
// password last changed. iat has millisecond precision, so the change time is truncated to match.
func IssuedBeforePasswordChange(claims *models.TokenClaims, user *models.User) bool {
	if user.PasswordChangedAt == nil || claims.IssuedAt == nil {
		return false
	}
	return claims.IssuedAt.Time.Before(user.PasswordChangedAt.Truncate(jwt.TimePrecision))
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func GetClaimsFromContext(ctx context.Context) *models.TokenClaims {
	claims, _ := ctx.Value(claimsContextKey).(*models.TokenClaims)
	return claims
}

func GetUserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}

// WithUser stores an authenticated account in ctx.
func WithUser(ctx context.Context, user *models.User, claims *models.TokenClaims) context.Context {
	ctx = context.WithValue(ctx, claimsContextKey, claims)
	return context.WithValue(ctx, userContextKey, user)
}
