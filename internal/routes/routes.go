package routes

import (
	"net/http"

	"forum_backend/internal/handlers"
	"forum_backend/internal/logger"
	"forum_backend/ws"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the REST API under /api/v1 and the realtime socket
// at /ws. authMW guards everything except /health.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	wsHandler *ws.WebSocketHandler,
	authMW gin.HandlerFunc,
) {
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := ginRouter.Group("/api/v1")
	{
		appHandlers.CommentHandler.RegisterRoutes(api, authMW)
		appHandlers.NotificationHandler.RegisterRoutes(api, authMW)
		appHandlers.PostHandler.RegisterRoutes(api, authMW)
	}

	wsGroup := ginRouter.Group("/ws")
	wsGroup.Use(authMW)
	{
		wsGroup.GET("", wsHandler.ServeWS)
	}
	logger.Info("WebSocket route /ws registered")
}
