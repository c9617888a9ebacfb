package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dan9191/card-transfer-service/internal/config"
	"github.com/Dan9191/card-transfer-service/internal/middleware"
	"github.com/Dan9191/card-transfer-service/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func protected(t *testing.T) (http.Handler, *int64, *string) {
	var gotUserID int64
	var gotRole string
	cfg := &config.Config{JWTSecret: testSecret}
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := middleware.UserID(r.Context())
		require.True(t, ok)
		gotUserID = id
		gotRole = middleware.Role(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return middleware.AuthMiddleware(cfg)(inner), &gotUserID, &gotRole
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	handler, userID, role := protected(t)

	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":    "alice",
		"userId": int64(42),
		"role":   models.RoleUser,
		"exp":    jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), *userID)
	assert.Equal(t, models.RoleUser, *role)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	handler, _, _ := protected(t)

	expired := signToken(t, testSecret, jwt.MapClaims{
		"userId": int64(42),
		"exp":    jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	wrongKey := signToken(t, "other-secret", jwt.MapClaims{
		"userId": int64(42),
		"exp":    jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-token"},
		{"expired token", "Bearer " + expired},
		{"wrong signing key", "Bearer " + wrongKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	cfg := &config.Config{JWTSecret: testSecret}
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := middleware.AuthMiddleware(cfg)(middleware.RequireAdmin(inner))

	userToken := signToken(t, testSecret, jwt.MapClaims{
		"userId": int64(1),
		"role":   models.RoleUser,
		"exp":    jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	adminToken := signToken(t, testSecret, jwt.MapClaims{
		"userId": int64(2),
		"role":   models.RoleAdmin,
		"exp":    jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
