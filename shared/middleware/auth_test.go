package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef-test"

func newRouter(am *AuthMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/open", func(c *gin.Context) { c.String(http.StatusOK, Actor(c)) })
	r.GET("/admin", am.RequireAuth(), am.RequireRole(RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, Actor(c))
	})
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestNewAuthMiddlewareRejectsShortSecret(t *testing.T) {
	_, err := NewAuthMiddleware("short")
	assert.Error(t, err)
}

func TestRequireAuth(t *testing.T) {
	am, err := NewAuthMiddleware(testSecret)
	require.NoError(t, err)
	r := newRouter(am)

	token, exp, err := am.IssueToken("admin-1", "admin@example.com", time.Hour)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	w := get(r, "/admin", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-1", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, get(r, "/admin", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/admin", "garbage").Code)

	other, _ := NewAuthMiddleware("another-secret-value-123")
	forged, _, err := other.IssueToken("admin-1", "admin@example.com", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/admin", forged).Code)
}

func TestExpiredToken(t *testing.T) {
	am, err := NewAuthMiddleware(testSecret)
	require.NoError(t, err)
	am.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := am.IssueToken("admin-1", "admin@example.com", time.Hour)
	require.NoError(t, err)

	am.now = time.Now
	_, err = am.ParseToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestRequireRole(t *testing.T) {
	am, err := NewAuthMiddleware(testSecret)
	require.NoError(t, err)
	r := newRouter(am)

	claims := AdminClaims{
		Role: "viewer",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "viewer-1",
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, get(r, "/admin", token).Code)
}

func TestActorFallsBack(t *testing.T) {
	am, err := NewAuthMiddleware(testSecret)
	require.NoError(t, err)
	r := newRouter(am)

	w := get(r, "/open", "")
	assert.Equal(t, SystemActor, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("X-User-ID", "admin-7")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "admin-7", w.Body.String())
}

type revokedSet map[string]bool

func (r revokedSet) IsRevoked(_ context.Context, id string) (bool, error) {
	if r == nil {
		return false, errors.New("store down")
	}
	return r[id], nil
}

func TestRequireAuthRejectsRevokedToken(t *testing.T) {
	am, err := NewAuthMiddleware(testSecret)
	require.NoError(t, err)

	token, _, err := am.IssueToken("admin-1", "admin@example.com", time.Hour)
	require.NoError(t, err)
	claims, err := am.ParseToken(token)
	require.NoError(t, err)
	require.NotEmpty(t, claims.ID)

	revoked := revokedSet{}
	r := newRouter(am.WithRevocations(revoked))
	assert.Equal(t, http.StatusOK, get(r, "/admin", token).Code)

	revoked[claims.ID] = true
	assert.Equal(t, http.StatusUnauthorized, get(r, "/admin", token).Code)

	am.WithRevocations(revokedSet(nil))
	assert.Equal(t, http.StatusServiceUnavailable, get(r, "/admin", token).Code)
}
