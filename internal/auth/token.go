package auth

import (
	"fmt"
	"time"

	"github.com/BradenHooton/stayhub/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// iat must separate tokens minted within the same second as a password change.
func init() {
	jwt.TimePrecision = time.Millisecond
}

// TokenManager signs and verifies HS256 access and refresh tokens.
type TokenManager struct {
	secret             []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	now                func() time.Time
}

func NewTokenManager(secret string, accessExpiry, refreshExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:             []byte(secret),
		accessTokenExpiry:  accessExpiry,
		refreshTokenExpiry: refreshExpiry,
		now:                time.Now,
	}
}

// GenerateAccessToken creates a short-lived token for API calls.
func (tm *TokenManager) GenerateAccessToken(userID string, role models.Role) (string, error) {
	issued, err := tm.sign(models.TokenTypeAccess, userID, role, tm.accessTokenExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return issued.Token, nil
}

// GenerateRefreshToken creates a long-lived token. Its ID must be recorded as the
// user's refresh state for the token to be honored.
func (tm *TokenManager) GenerateRefreshToken(userID string, role models.Role) (*models.IssuedToken, error) {
	issued, err := tm.sign(models.TokenTypeRefresh, userID, role, tm.refreshTokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return issued, nil
}

func (tm *TokenManager) sign(tokenType, userID string, role models.Role, ttl time.Duration) (*models.IssuedToken, error) {
	now := tm.now()
	expiresAt := now.Add(ttl)
	jti := uuid.New().String()

	claims := &models.TokenClaims{
		Type: tokenType,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return nil, err
	}
	return &models.IssuedToken{Token: signed, ID: jti, ExpiresAt: expiresAt}, nil
}

// ValidateToken verifies signature, expiry and shape and returns the claims.
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Type != models.TokenTypeAccess && claims.Type != models.TokenTypeRefresh {
		return nil, fmt.Errorf("%w: unknown token type", models.ErrUnauthorized)
	}
	if claims.Subject == "" || claims.ID == "" || !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: incomplete token claims", models.ErrUnauthorized)
	}

	return claims, nil
}
