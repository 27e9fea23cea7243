package middleware

import (
	"forum_backend/internal/auth"
	"forum_backend/internal/logger"
	"forum_backend/pkg/apperrors"
	"forum_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware verifies the Bearer JWT and stores the caller on the
// context. The token may also come from the "token" query parameter, which
// browsers need for the WebSocket handshake.
func AuthMiddleware(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := auth.TokenFromRequest(c.Request)
		if tokenStr == "" {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authorization header missing or invalid"))
			return
		}

		claims, err := tokens.ParseToken(tokenStr)
		if err != nil {
			logger.CtxDebug(c.Request.Context(), "rejected token", "error", err)
			apperrors.HandleError(c, apperrors.ErrInvalidToken)
			return
		}

		c.Set(contextkeys.UserIDKey, claims.UserID)
		c.Set(contextkeys.IsAdminKey, claims.IsAdmin)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

// GetUserID returns the authenticated user id, or 0.
func GetUserID(c *gin.Context) uint {
	id, _ := c.Get(contextkeys.UserIDKey)
	userID, _ := id.(uint)
	return userID
}
