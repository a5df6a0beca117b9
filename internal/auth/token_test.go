package auth

import (
	"testing"
	"time"

	"github.com/BradenHooton/stayhub/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

func TestTokenManager_AccessTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager(testSecret, 15*time.Minute, 24*time.Hour)

	token, err := tm.GenerateAccessToken("user-1", models.RoleHost)
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeAccess, claims.Type)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, models.RoleHost, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_RefreshTokenCarriesID(t *testing.T) {
	tm := NewTokenManager(testSecret, 15*time.Minute, 24*time.Hour)

	issued, err := tm.GenerateRefreshToken("user-1", models.RoleUser)
	require.NoError(t, err)

	claims, err := tm.ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeRefresh, claims.Type)
	assert.Equal(t, issued.ID, claims.ID)
	assert.WithinDuration(t, issued.ExpiresAt, claims.ExpiresAt.Time, time.Second)

	other, err := tm.GenerateRefreshToken("user-1", models.RoleUser)
	require.NoError(t, err)
	assert.NotEqual(t, issued.ID, other.ID)
}

func TestTokenManager_RejectsExpiredToken(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Minute, time.Hour)
	issuedAt := time.Now().Add(-2 * time.Minute)
	tm.now = func() time.Time { return issuedAt }

	token, err := tm.GenerateAccessToken("user-1", models.RoleUser)
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.ValidateToken(token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestTokenManager_RejectsForeignSignature(t *testing.T) {
	issuer := NewTokenManager("another-secret-that-is-long-enough", time.Minute, time.Hour)
	verifier := NewTokenManager(testSecret, time.Minute, time.Hour)

	token, err := issuer.GenerateAccessToken("user-1", models.RoleUser)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestTokenManager_RejectsUnknownRoleAndType(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Minute, time.Hour)
	now := time.Now()

	sign := func(claims *models.TokenClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return s
	}
	registered := jwt.RegisteredClaims{
		ID:        "jti",
		Subject:   "user-1",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}

	_, err := tm.ValidateToken(sign(&models.TokenClaims{Type: "session", Role: models.RoleUser, RegisteredClaims: registered}))
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = tm.ValidateToken(sign(&models.TokenClaims{Type: models.TokenTypeAccess, Role: "root", RegisteredClaims: registered}))
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestCodeGenerator_GeneratesSixDigits(t *testing.T) {
	gen := NewCodeGenerator()
	seen := make(map[string]bool)

	for i := 0; i < 50; i++ {
		code, err := gen.Generate()
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9]{6}$`, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 40)
}
