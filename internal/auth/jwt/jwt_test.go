package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Phantom-bronze/UserModule/internal/common/config"
)

const testSecret = "test-secret-key-that-is-long-enough-123"

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(config.JWTConfig{
		SecretKey:       testSecret,
		AccessDuration:  30 * time.Minute,
		RefreshDuration: 7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(config.JWTConfig{})
	assert.Error(t, err)

	_, err = NewService(config.JWTConfig{SecretKey: "short", AccessDuration: time.Minute, RefreshDuration: time.Hour})
	assert.Error(t, err)

	_, err = NewService(config.JWTConfig{SecretKey: testSecret, AccessDuration: 0, RefreshDuration: time.Hour})
	assert.Error(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestService(t)

	token, err := svc.GenerateAccessToken(TokenSubject{
		UserID:   "user-1",
		Email:    "admin@example.com",
		Role:     "admin",
		TenantID: "tenant-1",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.NotEmpty(t, claims.ID)
}

func TestRefreshTokenOmitsAuthzContext(t *testing.T) {
	svc := newTestService(t)

	token, err := svc.GenerateRefreshToken(TokenSubject{
		UserID:   "user-1",
		Email:    "admin@example.com",
		Role:     "admin",
		TenantID: "tenant-1",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Empty(t, claims.Role)
	assert.Empty(t, claims.TenantID)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
}

func TestTokenTypeConfusionRejected(t *testing.T) {
	svc := newTestService(t)
	sub := TokenSubject{UserID: "user-1", Email: "a@example.com"}

	access, err := svc.GenerateAccessToken(sub)
	require.NoError(t, err)
	refresh, err := svc.GenerateRefreshToken(sub)
	require.NoError(t, err)

	// A refresh token is not an access token and vice versa.
	_, err = svc.ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidationFailuresAreUniform(t *testing.T) {
	svc := newTestService(t)

	other, err := NewService(config.JWTConfig{
		SecretKey:       "another-secret-key-that-is-long-enough",
		AccessDuration:  30 * time.Minute,
		RefreshDuration: time.Hour,
	})
	require.NoError(t, err)
	foreign, err := other.GenerateAccessToken(TokenSubject{UserID: "u", Email: "e@example.com"})
	require.NoError(t, err)

	expiredSvc, err := NewService(config.JWTConfig{
		SecretKey:       testSecret,
		AccessDuration:  time.Nanosecond,
		RefreshDuration: time.Hour,
	})
	require.NoError(t, err)
	expired, err := expiredSvc.GenerateAccessToken(TokenSubject{UserID: "u", Email: "e@example.com"})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	for name, token := range map[string]string{
		"garbage":      "not.a.token",
		"empty":        "",
		"wrong secret": foreign,
		"expired":      expired,
	} {
		_, err := svc.ValidateAccessToken(token)
		assert.ErrorIs(t, err, ErrInvalidCredentials, name)
	}
}

func TestTokenIDsAreUnique(t *testing.T) {
	svc := newTestService(t)
	sub := TokenSubject{UserID: "user-1", Email: "a@example.com"}

	seen := map[string]bool{}
	for i := 0; i < 16; i++ {
		token, err := svc.GenerateRefreshToken(sub)
		require.NoError(t, err)
		claims, err := svc.ValidateRefreshToken(token)
		require.NoError(t, err)
		assert.False(t, seen[claims.ID])
		seen[claims.ID] = true
	}
}
