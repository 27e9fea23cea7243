package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"forum_backend/internal/app"
	"forum_backend/internal/auth"
	"forum_backend/internal/config"
	"forum_backend/internal/events"
	"forum_backend/internal/logger"
	"forum_backend/internal/services"
	"forum_backend/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "test-secret-key-for-forum-backend"

type TestServer struct {
	Server *httptest.Server
	DB     *gorm.DB
	Hub    *ws.Hub
	Tokens *auth.TokenManager
	Clock  *StepClock
}

// NewTestServer starts the full router over a fresh SQLite database. The
// hub runs until the test ends.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	gin.SetMode(gin.TestMode)
	logger.Init("test")

	cfg := &config.Config{}
	cfg.Server.Env = "test"
	cfg.JWT.Secret = testJWTSecret
	cfg.ApplyDefaults()

	db := NewTestDB(t)
	hub := ws.NewHub(ws.HubConfig{SendBuffer: cfg.Realtime.SendBuffer, PingInterval: cfg.PingInterval()})
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.TokenTTL())
	clock := NewStepClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	router := app.SetupRouter(cfg, db, hub, tokens, services.WithClock(clock.Now))
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
		cancel()
	})

	return &TestServer{
		Server: server,
		DB:     db,
		Hub:    hub,
		Tokens: tokens,
		Clock:  clock,
	}
}

// SendRequest performs a JSON request and returns the response with its
// body already read.
func (ts *TestServer) SendRequest(t *testing.T, method, path, token string, body interface{}) (*http.Response, string) {
	t.Helper()
	url := ts.Server.URL + path

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err, "failed to encode request body")
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	require.NoError(t, err, "failed to build request")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := ts.Server.Client().Do(req)
	require.NoError(t, err, "failed to send request")
	defer res.Body.Close()

	resBodyBytes, err := io.ReadAll(res.Body)
	require.NoError(t, err, "failed to read response body")

	return res, string(resBodyBytes)
}

// WSURL is the socket endpoint of the test server.
func (ts *TestServer) WSURL() string {
	return "ws" + strings.TrimPrefix(ts.Server.URL, "http") + "/ws"
}

// DialWS opens an authenticated socket and waits until the hub has
// registered it.
func (ts *TestServer) DialWS(t *testing.T, token string) *websocket.Conn {
	t.Helper()

	before := ts.Hub.ClientCount()
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := websocket.DefaultDialer.Dial(ts.WSURL(), header)
	require.NoError(t, err, "websocket handshake failed")
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return ts.Hub.ClientCount() > before },
		2*time.Second, 10*time.Millisecond, "hub never registered the socket")
	return conn
}

// JoinPost sends join-post and waits until the membership is visible.
func (ts *TestServer) JoinPost(t *testing.T, conn *websocket.Conn, postID uint) {
	t.Helper()

	before := ts.Hub.AudienceSize(events.PostAudience(postID))
	msg, err := events.EncodeControl(events.ActionJoinPost, postID)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))

	require.Eventually(t, func() bool { return ts.Hub.AudienceSize(events.PostAudience(postID)) > before },
		2*time.Second, 10*time.Millisecond, "hub never joined the post room")
}

// ReadEvent returns the next frame on conn or fails after timeout.
func ReadEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) events.Frame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err, "no event received")

	frame, err := events.Decode(data)
	require.NoError(t, err)
	return frame
}

// ReadEventOfType skips frames until one of eventType arrives.
func ReadEventOfType(t *testing.T, conn *websocket.Conn, eventType string, timeout time.Duration) events.Frame {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		require.Positive(t, remaining, "no %s event received", eventType)
		frame := ReadEvent(t, conn, remaining)
		if frame.Type == eventType {
			return frame
		}
	}
}
