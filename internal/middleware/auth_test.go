package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventory-payments/internal/apperr"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID = "0b1c2d3e-4f50-4a6b-8c7d-9e0f1a2b3c4d"

func newContext(header string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, UserID(c))
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	appErr, ok := apperr.As(err)
	require.True(t, ok, "expected *apperr.Error, got %v", err)
	assert.Equal(t, status, appErr.Status)
}

func TestAuthMiddleware(t *testing.T) {
	verifier := NewTokenVerifier("secret", "authenticated")
	token, err := verifier.Sign(testUserID, "user", time.Hour)
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		c, rec := newContext("Bearer " + token)
		require.NoError(t, AuthMiddleware(verifier)(okHandler)(c))
		assert.Equal(t, testUserID, rec.Body.String())
		assert.Equal(t, "user", c.Get(RoleKey))
	})

	t.Run("missing header", func(t *testing.T) {
		c, _ := newContext("")
		assertStatus(t, AuthMiddleware(verifier)(okHandler)(c), http.StatusUnauthorized)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, _ := NewTokenVerifier("other", "authenticated").Sign(testUserID, "user", time.Hour)
		c, _ := newContext("Bearer " + other)
		assertStatus(t, AuthMiddleware(verifier)(okHandler)(c), http.StatusUnauthorized)
	})

	t.Run("wrong audience", func(t *testing.T) {
		other, _ := NewTokenVerifier("secret", "anon").Sign(testUserID, "user", time.Hour)
		c, _ := newContext("Bearer " + other)
		assertStatus(t, AuthMiddleware(verifier)(okHandler)(c), http.StatusUnauthorized)
	})

	t.Run("expired", func(t *testing.T) {
		expired, _ := verifier.Sign(testUserID, "user", -time.Minute)
		c, _ := newContext("Bearer " + expired)
		assertStatus(t, AuthMiddleware(verifier)(okHandler)(c), http.StatusUnauthorized)
	})
}

func TestRequireRole(t *testing.T) {
	verifier := NewTokenVerifier("secret", "")
	staff, _ := verifier.Sign(testUserID, "staff", time.Hour)
	user, _ := verifier.Sign(testUserID, "user", time.Hour)
	h := AuthMiddleware(verifier)(RequireRole("staff", "admin")(okHandler))

	c, _ := newContext("Bearer " + staff)
	assert.NoError(t, h(c))

	c, _ = newContext("Bearer " + user)
	assertStatus(t, h(c), http.StatusForbidden)
}

type stubLimiter struct {
	allowed bool
	err     error
}

func (s stubLimiter) Allow(context.Context, string) (bool, error) {
	return s.allowed, s.err
}

func TestRateLimit(t *testing.T) {
	c, _ := newContext("")
	assert.NoError(t, RateLimit("webhook", stubLimiter{allowed: true})(okHandler)(c))

	c, _ = newContext("")
	assertStatus(t, RateLimit("webhook", stubLimiter{})(okHandler)(c), http.StatusTooManyRequests)

	c, _ = newContext("")
	assert.NoError(t, RateLimit("webhook", stubLimiter{err: errors.New("redis down")})(okHandler)(c),
		"limiter failures let traffic through")
}
