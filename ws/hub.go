// Package ws is the realtime fan-out directory: it tracks which sockets
// belong to which audience and pushes encoded events to them.
package ws

import (
	"context"
	"sync"
	"time"

	"forum_backend/internal/events"
	"forum_backend/internal/logger"
)

// Bridge forwards frames to other server instances.
type Bridge interface {
	Forward(ctx context.Context, audience events.Audience, frame []byte) error
}

type HubConfig struct {
	// SendBuffer is the per-socket queue length. A socket whose queue is
	// full when an event arrives is evicted.
	SendBuffer   int
	PingInterval time.Duration
}

func (c HubConfig) withDefaults() HubConfig {
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 54 * time.Second
	}
	return c
}

// Hub is safe for concurrent use. Publish never blocks on a socket.
type Hub struct {
	cfg HubConfig

	clients    map[*Client]struct{}
	rooms      map[events.Audience]map[*Client]struct{}
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex

	bridge Bridge
}

func NewHub(cfg HubConfig) *Hub {
	return &Hub{
		cfg:        cfg.withDefaults(),
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[events.Audience]map[*Client]struct{}),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// SetBridge enables cross-instance forwarding. Call before Run.
func (h *Hub) SetBridge(b Bridge) {
	h.bridge = b
}

// Run processes disconnects until ctx is done, then closes every socket.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.unregister:
			h.remove(client)

		case <-ctx.Done():
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for c := range h.clients {
				clients = append(clients, c)
			}
			h.mu.RUnlock()

			for _, c := range clients {
				h.remove(c)
			}
			logger.Info("realtime hub stopped", "closed_clients", len(clients))
			return
		}
	}
}

// Register adds the client and joins it to its own user room.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = struct{}{}
	h.join(client, events.UserAudience(client.UserID))

	logger.CtxDebug(client.ctx, "websocket client registered", "total", len(h.clients))
}

// Unregister queues the client for removal by Run.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		h.remove(client)
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	for audience := range client.rooms {
		h.leave(client, audience)
	}
	delete(h.clients, client)
	close(client.send)

	logger.CtxDebug(client.ctx, "websocket client unregistered", "total", len(h.clients))
}

// JoinPost subscribes the client to a post room. Joining twice is a no-op.
func (h *Hub) JoinPost(client *Client, postID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	h.join(client, events.PostAudience(postID))
}

// LeavePost unsubscribes the client from a post room. Leaving a room the
// client is not in is a no-op.
func (h *Hub) LeavePost(client *Client, postID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leave(client, events.PostAudience(postID))
}

func (h *Hub) join(client *Client, audience events.Audience) {
	members, ok := h.rooms[audience]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[audience] = members
	}
	members[client] = struct{}{}
	client.rooms[audience] = struct{}{}
}

func (h *Hub) leave(client *Client, audience events.Audience) {
	delete(client.rooms, audience)

	members, ok := h.rooms[audience]
	if !ok {
		return
	}
	delete(members, client)
	if len(members) == 0 {
		delete(h.rooms, audience)
	}
}

// Publish encodes the event once and queues it on every local member of
// audience, then forwards it to the other instances through the bridge.
func (h *Hub) Publish(audience events.Audience, eventType string, payload any) {
	frame, err := events.Encode(eventType, payload)
	if err != nil {
		logger.Error("failed to encode realtime event", "event", eventType, "error", err)
		return
	}

	delivered := h.deliver(audience, frame)
	logger.EventLog(audience.String(), eventType, delivered)

	if h.bridge != nil {
		go h.forward(audience, eventType, frame)
	}
}

// DeliverRemote hands a frame received from another instance to the local
// members of audience.
func (h *Hub) DeliverRemote(audience events.Audience, frame []byte) {
	delivered := h.deliver(audience, frame)
	if delivered > 0 {
		logger.Debug("remote realtime event delivered", "audience", audience.String(), "delivered", delivered)
	}
}

func (h *Hub) forward(audience events.Audience, eventType string, frame []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := h.bridge.Forward(ctx, audience, frame); err != nil {
		logger.Warn("failed to forward realtime event", "audience", audience.String(), "event", eventType, "error", err)
	}
}

func (h *Hub) deliver(audience events.Audience, frame []byte) int {
	var slow []*Client
	delivered := 0

	h.mu.RLock()
	for client := range h.rooms[audience] {
		select {
		case client.send <- frame:
			delivered++
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		logger.CtxWarn(client.ctx, "websocket client evicted: send buffer full", "audience", audience.String())
		h.remove(client)
	}
	return delivered
}

// AudienceSize reports how many local sockets are in audience.
func (h *Hub) AudienceSize(audience events.Audience) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[audience])
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var _ events.Publisher = (*Hub)(nil)
