package ws

import (
	"context"
	"encoding/json"
	"time"

	"forum_backend/internal/events"
	"forum_backend/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

// Client is one authenticated socket.
type Client struct {
	ID     string
	UserID uint

	conn *websocket.Conn
	send chan []byte
	hub  *Hub
	ctx  context.Context

	// rooms is guarded by hub.mu.
	rooms map[events.Audience]struct{}
}

func newClient(ctx context.Context, hub *Hub, conn *websocket.Conn, id string, userID uint) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, hub.cfg.SendBuffer),
		hub:    hub,
		ctx:    ctx,
		rooms:  make(map[events.Audience]struct{}),
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	pongWait := c.hub.cfg.PingInterval * 10 / 9
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msgBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.CtxWarn(c.ctx, "websocket read error", "error", err)
			}
			return
		}

		var msg events.ControlMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			logger.CtxDebug(c.ctx, "failed to parse control message", "error", err)
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.CtxDebug(c.ctx, "websocket write error", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage applies a room control message. There is no acknowledgement.
func (c *Client) handleMessage(msg events.ControlMessage) {
	switch msg.Action {
	case events.ActionJoinPost, events.ActionLeavePost:
		var data events.PostRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.PostID == 0 {
			logger.CtxDebug(c.ctx, "invalid room payload", "action", msg.Action)
			return
		}
		if msg.Action == events.ActionJoinPost {
			c.hub.JoinPost(c, data.PostID)
		} else {
			c.hub.LeavePost(c, data.PostID)
		}
		logger.CtxDebug(c.ctx, "room membership changed", "action", msg.Action, "post_id", data.PostID)

	default:
		logger.CtxDebug(c.ctx, "unhandled action", "action", msg.Action)
	}
}
