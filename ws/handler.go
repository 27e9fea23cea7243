package ws

import (
	"context"
	"net/http"

	"forum_backend/internal/logger"
	"forum_backend/internal/middleware"
	"forum_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	// Browsers authenticate with a token, not cookies.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type WebSocketHandler struct {
	Hub *Hub
}

func NewWebSocketHandler(hub *Hub) *WebSocketHandler {
	return &WebSocketHandler{
		Hub: hub,
	}
}

// ServeWS upgrades an authenticated request. It must run behind
// AuthMiddleware, which rejects a bad token with 401 before any upgrade.
func (h *WebSocketHandler) ServeWS(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("User not authenticated"))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.CtxWithError(c.Request.Context(), "websocket upgrade failed", err)
		return
	}

	connID := uuid.NewString()
	// The request context ends with this handler; the socket outlives it.
	ctx := logger.WithConnectionID(context.WithoutCancel(c.Request.Context()), connID)

	client := newClient(ctx, h.Hub, conn, connID, userID)
	h.Hub.Register(client)

	go client.writePump()
	go client.readPump()
}
