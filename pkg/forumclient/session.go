package forumclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"forum_backend/internal/events"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrNotConnected  = errors.New("session not connected")
)

type SessionConfig struct {
	// URL of the socket endpoint, e.g. ws://localhost:4000/ws.
	URL   string
	Token string

	Dialer *websocket.Dialer
	Logger *slog.Logger

	// MaxReconnects is the number of dials after a lost connection. Zero means 5.
	MaxReconnects  uint64
	ReconnectDelay time.Duration

	// OnReconnect runs after every successful reconnect. Events sent while
	// the socket was down are not replayed, so callers re-fetch here.
	OnReconnect func(ctx context.Context)
}

// Session keeps one socket open and feeds every frame into a Store.
type Session struct {
	cfg   SessionConfig
	store *Store
	log   *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	rooms  map[uint]struct{}
	closed bool
}

func NewSession(cfg SessionConfig, store *Store) *Session {
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = 5
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = time.Second
	}
	return &Session{
		cfg:   cfg,
		store: store,
		log:   cfg.Logger.With("component", "forumclient.session"),
		rooms: make(map[uint]struct{}),
	}
}

// Connect performs the handshake once. On error the caller keeps working
// from REST snapshots only.
func (s *Session) Connect(ctx context.Context) error {
	conn, err := s.dial(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		conn.Close()
		return ErrSessionClosed
	}
	s.conn = conn
	return nil
}

func (s *Session) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.cfg.Token)

	conn, resp, err := s.cfg.Dialer.DialContext(ctx, s.cfg.URL, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, backoff.Permanent(fmt.Errorf("handshake rejected: %w", err))
		}
		return nil, fmt.Errorf("handshake failed: %w", err)
	}
	return conn, nil
}

// Run reads frames until ctx is done or the connection is lost for good.
// A lost connection is retried with a fixed delay; on success every joined
// post room is joined again and OnReconnect is called.
func (s *Session) Run(ctx context.Context) error {
	for {
		conn := s.current()
		if conn == nil {
			return ErrNotConnected
		}

		err := s.readLoop(ctx, conn)
		if ctx.Err() != nil || s.isClosed() {
			return ctx.Err()
		}
		s.log.Warn("connection lost, reconnecting", "error", err)

		if err := s.reconnect(ctx); err != nil {
			return err
		}
	}
}

func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		frame, err := events.Decode(data)
		if err != nil {
			s.log.Debug("ignoring malformed frame", "error", err)
			continue
		}
		if err := s.store.Apply(frame); err != nil {
			s.log.Debug("ignoring undecodable event", "type", frame.Type, "error", err)
		}
	}
}

func (s *Session) reconnect(ctx context.Context) error {
	attempt := 0
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.cfg.ReconnectDelay), s.cfg.MaxReconnects-1),
		ctx,
	)

	var conn *websocket.Conn
	err := backoff.Retry(func() error {
		attempt++
		c, err := s.dial(ctx)
		if err != nil {
			s.log.Debug("reconnect attempt failed", "attempt", attempt, "error", err)
			return err
		}
		conn = c
		return nil
	}, policy)
	if err != nil {
		return fmt.Errorf("reconnect gave up after %d attempts: %w", attempt, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return ErrSessionClosed
	}
	s.conn = conn
	rooms := make([]uint, 0, len(s.rooms))
	for id := range s.rooms {
		rooms = append(rooms, id)
	}
	s.mu.Unlock()

	for _, postID := range rooms {
		if err := s.send(events.ActionJoinPost, postID); err != nil {
			s.log.Warn("failed to rejoin post room", "post_id", postID, "error", err)
		}
	}

	s.log.Info("reconnected", "attempts", attempt, "rooms", len(rooms))
	if s.cfg.OnReconnect != nil {
		s.cfg.OnReconnect(ctx)
	}
	return nil
}

// JoinPost subscribes to a post room. Every JoinPost needs a LeavePost.
func (s *Session) JoinPost(postID uint) error {
	s.mu.Lock()
	s.rooms[postID] = struct{}{}
	s.mu.Unlock()
	return s.send(events.ActionJoinPost, postID)
}

func (s *Session) LeavePost(postID uint) error {
	s.mu.Lock()
	delete(s.rooms, postID)
	s.mu.Unlock()
	return s.send(events.ActionLeavePost, postID)
}

func (s *Session) send(action string, postID uint) error {
	msg, err := events.EncodeControl(action, postID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}
	return s.conn.WriteMessage(websocket.TextMessage, msg)
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.conn == nil {
		return nil
	}
	_ = s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}

func (s *Session) current() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
