package http

import (
	"encoding/json"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wsAdapter "github.com/trackline/issue-board-backend/internal/adapters/primary/websocket"
	"github.com/trackline/issue-board-backend/internal/auth"
	"github.com/trackline/issue-board-backend/internal/config"
	"github.com/trackline/issue-board-backend/internal/core/domain"
)

func newTestWebSocketHandler(t *testing.T) (*WebSocketHandler, *wsAdapter.Hub, *auth.TokenManager) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := wsAdapter.NewHub(logger)
	go hub.Run()

	tm := auth.NewTokenManager("test-secret", time.Hour)
	cfg := &config.Config{
		WebSocket: config.WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingInterval:    50 * time.Millisecond,
			PongWait:        100 * time.Millisecond,
			SendBuffer:      16,
		},
		App: config.AppConfig{Environment: "development"},
	}

	return NewWebSocketHandler(hub, tm, cfg, logger), hub, tm
}

func TestWebSocketHandler_RejectsMissingToken(t *testing.T) {
	handler, _, _ := newTestWebSocketHandler(t)

	req := httptest.NewRequest(stdhttp.MethodGet, "/ws", nil)
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, req)

	assert.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)
}

func TestWebSocketHandler_RejectsInvalidToken(t *testing.T) {
	handler, _, _ := newTestWebSocketHandler(t)

	req := httptest.NewRequest(stdhttp.MethodGet, "/ws?token=not-a-token", nil)
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, req)

	assert.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)
}

func TestWebSocketHandler_DropsSilentPeerAfterPongTimeout(t *testing.T) {
	handler, hub, tm := newTestWebSocketHandler(t)

	server := httptest.NewServer(handler)
	defer server.Close()

	userID := uuid.New()
	token, err := tm.GenerateToken(userID, "alice")
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.IsUserConnected(userID)
	}, time.Second, 10*time.Millisecond)

	// The peer goes silent: it never reads, so the server's pings are never
	// answered. Once the pong window lapses the read deadline fires and the
	// hub must drop the connection.
	require.Eventually(t, func() bool {
		return !hub.IsUserConnected(userID)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketHandler_AnswersTextPingWithTextPong(t *testing.T) {
	handler, hub, tm := newTestWebSocketHandler(t)

	server := httptest.NewServer(handler)
	defer server.Close()

	userID := uuid.New()
	token, err := tm.GenerateToken(userID, "bob")
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.IsUserConnected(userID)
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))

	// Control pings from the server are answered by the dialer's default
	// handler, so the next data frame is the text pong.
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(payload))
}

func TestWebSocketHandler_DeliversEventsAfterUpgrade(t *testing.T) {
	handler, hub, tm := newTestWebSocketHandler(t)

	server := httptest.NewServer(handler)
	defer server.Close()

	userID := uuid.New()
	token, err := tm.GenerateToken(userID, "alice")
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.IsUserConnected(userID)
	}, time.Second, 10*time.Millisecond)

	event := domain.Event{
		Type: domain.EventTypeNotification,
		Data: domain.EventData{
			EventType: domain.NotificationIssueAssigned,
			Message:   "You have been assigned to issue: test",
		},
	}
	delivered := hub.SendToUser(userID, event)
	assert.Equal(t, 1, delivered)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var received domain.Event
	require.NoError(t, json.Unmarshal(payload, &received))
	assert.Equal(t, domain.EventTypeNotification, received.Type)
	assert.Equal(t, domain.NotificationIssueAssigned, received.Data.EventType)
}
