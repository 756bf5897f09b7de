package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerifyToken(t *testing.T) {
	svc := NewAuthService("secret", time.Hour)

	token, err := svc.SignToken("user-1")
	require.NoError(t, err)

	userID, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewAuthService("secret-a", time.Hour).SignToken("user-1")
	require.NoError(t, err)

	_, err = NewAuthService("secret-b", time.Hour).VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	svc := NewAuthService("secret", -time.Minute)
	token, err := svc.SignToken("user-1")
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenFromRequest(t *testing.T) {
	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: "cookie-token"})
		assert.Equal(t, "cookie-token", TokenFromRequest(req))
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer header-token")
		assert.Equal(t, "header-token", TokenFromRequest(req))
	})

	t.Run("cookie wins over header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: "cookie-token"})
		req.Header.Set("Authorization", "Bearer header-token")
		assert.Equal(t, "cookie-token", TokenFromRequest(req))
	})

	t.Run("absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.Empty(t, TokenFromRequest(req))
	})
}
