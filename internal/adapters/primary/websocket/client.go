package websocket

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/trackline/issue-board-backend/internal/core/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	defaultPingInterval = 30 * time.Second
	defaultSendBuffer   = 256
)

// Heartbeat frames. Besides websocket control frames, both sides accept the
// bare text tokens "ping"/"pong"; this dual framing is part of the wire
// protocol and must interoperate, not be normalized to JSON.
var (
	pingToken = []byte("ping")
	pongToken = []byte("pong")
)

// Options configures per-connection behavior.
type Options struct {
	// PingInterval is how often the server pings the peer.
	PingInterval time.Duration
	// PongWait is how long the connection may go without any sign of life
	// (pong, text heartbeat, or data frame) before it is considered dead.
	PongWait time.Duration
	// SendBuffer is the capacity of the outbound event queue.
	SendBuffer int
}

func (o Options) withDefaults() Options {
	if o.PingInterval <= 0 {
		o.PingInterval = defaultPingInterval
	}
	if o.PongWait <= 0 {
		o.PongWait = 2 * o.PingInterval
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = defaultSendBuffer
	}
	return o
}

// Client is one live connection of one authenticated user. It is owned by
// the hub: created on a successful authenticated handshake, destroyed on
// close, error or heartbeat timeout.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound events.
	Send chan domain.Event

	// pong requests triggered by text "ping" frames from the peer.
	pong chan struct{}

	// User ID for this connection.
	UserID uuid.UUID

	opts Options

	// closeOnce ensures the Send channel is only closed once.
	closeOnce sync.Once

	// mu guards closed; enqueue must never race with CloseSend.
	mu     sync.RWMutex
	closed bool

	logger *slog.Logger
}

// NewClient creates a client for an already-authenticated connection.
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, opts Options, logger *slog.Logger) *Client {
	opts = opts.withDefaults()
	return &Client{
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan domain.Event, opts.SendBuffer),
		pong:   make(chan struct{}, 1),
		UserID: userID,
		opts:   opts,
		logger: logger.With("user_id", userID.String()),
	}
}

// CloseSend safely closes the Send channel exactly once.
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.Send)
		c.mu.Unlock()
	})
}

// enqueue queues an event for delivery without blocking. It reports false if
// the connection is shutting down or its buffer is full.
func (c *Client) enqueue(event domain.Event) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return false
	}
	select {
	case c.Send <- event:
		return true
	default:
		return false
	}
}

// refreshDeadline extends the liveness window after any sign of life.
func (c *Client) refreshDeadline() {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.opts.PongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
	}
}

// ReadPump pumps messages from the websocket connection and enforces the
// heartbeat. This method runs in its own goroutine; when it returns the
// connection is unregistered and closed.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.refreshDeadline()

	c.Conn.SetPongHandler(func(string) error {
		c.refreshDeadline()
		return nil
	})
	c.Conn.SetPingHandler(func(appData string) error {
		c.refreshDeadline()
		return c.Conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.refreshDeadline()
		c.handleIncomingMessage(message)
	}
}

// WritePump pushes queued events and emits heartbeat pings. This method runs
// in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel. Send close message.
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.writeJSON(event); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-c.pong:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, pongToken); err != nil {
				c.logger.Debug("failed to send pong", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// writeJSON writes a JSON message to the websocket connection
func (c *Client) writeJSON(event domain.Event) error {
	w, err := c.Conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(w).Encode(event); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

// handleIncomingMessage processes frames received from the client. Text
// heartbeat tokens are served inline; anything else is expected to be JSON.
// Malformed or unknown frames are logged and dropped without closing the
// connection.
func (c *Client) handleIncomingMessage(message []byte) {
	trimmed := bytes.TrimSpace(message)

	if bytes.Equal(trimmed, pingToken) {
		select {
		case c.pong <- struct{}{}:
		default:
			// A pong is already queued; one answer is enough.
		}
		return
	}
	if bytes.Equal(trimmed, pongToken) {
		// Liveness already refreshed in ReadPump.
		return
	}

	var msg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		c.logger.Warn("dropping malformed client frame", "error", err)
		return
	}

	// Clients currently have nothing to say beyond heartbeats; log and move on.
	c.logger.Debug("received unknown message type", "type", msg.Type)
}
