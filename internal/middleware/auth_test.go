package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"forum_backend/internal/auth"
	"forum_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(tokens *auth.TokenManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/me", AuthMiddleware(tokens), func(c *gin.Context) {
		isAdmin, _ := c.Get(contextkeys.IsAdminKey)
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "is_admin": isAdmin})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	tokens := auth.NewTokenManager("middleware-secret", time.Hour)
	r := newAuthRouter(tokens)

	token, err := tokens.GenerateToken(42, true)
	require.NoError(t, err)

	tests := []struct {
		name       string
		target     string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"bearer header", "/me", "Bearer " + token, http.StatusOK, `{"user_id":42,"is_admin":true}`},
		{"query token", "/me?token=" + token, "", http.StatusOK, `{"user_id":42,"is_admin":true}`},
		{"missing", "/me", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "/me", "Basic " + token, http.StatusUnauthorized, ""},
		{"forged", "/me", "Bearer " + token + "x", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRequestIDMiddleware_ReusesHeader(t *testing.T) {
	r := newAuthRouter(auth.NewTokenManager("s", time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
