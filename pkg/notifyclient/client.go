package notifyclient

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// State is the connection lifecycle state of a Client.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnectScheduled
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnectScheduled:
		return "RECONNECT_SCHEDULED"
	default:
		return "UNKNOWN"
	}
}

const (
	defaultBaseDelay    = 2 * time.Second
	defaultMaxAttempts  = 5
	defaultPingInterval = 30 * time.Second
	clientWriteWait     = 10 * time.Second
)

var (
	pingToken = []byte("ping")
	pongToken = []byte("pong")
)

// Event is the top-level wire message pushed by the server.
type Event struct {
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData is the notification body inside a wire event. Issue is left as
// raw JSON so consumers can decode it into their own representation.
type EventData struct {
	EventType string          `json:"event_type"`
	Issue     json.RawMessage `json:"issue,omitempty"`
	Action    string          `json:"action,omitempty"`
	Assigner  string          `json:"assigner,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// Options configures a Client.
type Options struct {
	// URL is the websocket endpoint, e.g. "ws://host/api/v1/ws".
	URL string
	// BaseDelay is the linear backoff unit: attempt n waits BaseDelay * n.
	BaseDelay time.Duration
	// MaxAttempts is how many reconnects are tried before giving up until the
	// next explicit Connect.
	MaxAttempts int
	// PingInterval is how often the client emits a heartbeat ping.
	PingInterval time.Duration
	Logger       *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.BaseDelay <= 0 {
		o.BaseDelay = defaultBaseDelay
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.PingInterval <= 0 {
		o.PingInterval = defaultPingInterval
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// Client maintains one websocket connection to the notification stream.
// Listeners are registered on the bus once and survive reconnects; the
// reconnect state machine recovers from abnormal closes with linear backoff
// and gives up after MaxAttempts until Connect is called again.
type Client struct {
	opts Options
	bus  *Bus

	mu             sync.Mutex
	state          State
	conn           *websocket.Conn
	attempts       int
	token          string
	reconnectTimer *time.Timer

	// writeMu serializes data-frame writes: the heartbeat ticker and the read
	// loop's ping answers share one connection, and gorilla/websocket allows
	// only one concurrent writer.
	writeMu sync.Mutex
}

// NewClient creates a client that dispatches incoming events to bus.
func NewClient(opts Options, bus *Bus) *Client {
	return &Client{
		opts:  opts.withDefaults(),
		bus:   bus,
		state: StateDisconnected,
	}
}

// Bus returns the listener bus events are dispatched to.
func (c *Client) Bus() *Bus {
	return c.bus
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect starts the connection using the given auth token. It is a no-op
// while a connection attempt is in flight or established; otherwise it
// cancels any pending reconnect, resets the attempt counter and dials.
func (c *Client) Connect(token string) {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		return
	}
	c.token = token
	c.attempts = 0
	c.cancelTimerLocked()
	c.state = StateConnecting
	c.mu.Unlock()

	go c.dial()
}

// Disconnect closes the connection with the normal-closure code and
// suppresses any pending or future auto-reconnect. Idempotent.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.attempts = c.opts.MaxAttempts
	c.cancelTimerLocked()
	c.state = StateDisconnected
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(clientWriteWait)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	}
}

// cancelTimerLocked stops a pending reconnect timer. Caller holds c.mu.
func (c *Client) cancelTimerLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

// dial performs one connection attempt. Runs outside the lock.
func (c *Client) dial() {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	endpoint := c.opts.URL + "?token=" + url.QueryEscape(token)
	conn, resp, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		c.opts.Logger.Warn("connection attempt failed", "error", err)
		c.scheduleReconnect()
		return
	}

	c.mu.Lock()
	if c.state != StateConnecting {
		// Disconnect won the race while we were dialing.
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.state = StateConnected
	c.attempts = 0
	c.mu.Unlock()

	c.opts.Logger.Info("connected", "url", c.opts.URL)

	done := make(chan struct{})
	go c.heartbeat(conn, done)
	c.readLoop(conn, done)
}

// heartbeat emits the literal ping token until the connection ends.
func (c *Client) heartbeat(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.writeToken(conn, pingToken); err != nil {
				c.opts.Logger.Debug("heartbeat write failed", "error", err)
				return
			}
		}
	}
}

// writeToken emits one heartbeat text frame under the write lock.
func (c *Client) writeToken(conn *websocket.Conn, token []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(clientWriteWait))
	return conn.WriteMessage(websocket.TextMessage, token)
}

// readLoop consumes frames in arrival order until the connection ends, then
// decides whether to reconnect.
func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	var readErr error
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			readErr = err
			break
		}
		c.handleFrame(conn, message)
	}
	_ = conn.Close()

	c.mu.Lock()
	if c.state != StateConnected {
		// Disconnect already ran; nothing to recover.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if websocket.IsCloseError(readErr, websocket.CloseNormalClosure) {
		c.state = StateDisconnected
		c.mu.Unlock()
		c.opts.Logger.Info("connection closed")
		return
	}
	// Transition straight to the scheduled state under the same lock: a
	// Connect landing between CONNECTED and the timer arming must not race a
	// second dial into existence.
	c.opts.Logger.Warn("connection lost", "error", readErr)
	c.scheduleReconnectLocked()
	c.mu.Unlock()
}

// scheduleReconnect arms the next attempt with linear backoff, or gives up
// once the budget is spent.
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scheduleReconnectLocked()
}

// scheduleReconnectLocked is scheduleReconnect with c.mu already held.
func (c *Client) scheduleReconnectLocked() {
	if c.attempts >= c.opts.MaxAttempts {
		c.state = StateDisconnected
		c.opts.Logger.Warn("reconnect attempts exhausted", "attempts", c.attempts)
		return
	}

	c.attempts++
	delay := c.opts.BaseDelay * time.Duration(c.attempts)
	c.state = StateReconnectScheduled
	c.opts.Logger.Info("reconnect scheduled", "attempt", c.attempts, "delay", delay)

	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if c.state != StateReconnectScheduled {
			c.mu.Unlock()
			return
		}
		c.reconnectTimer = nil
		c.state = StateConnecting
		c.mu.Unlock()
		c.dial()
	})
}

// handleFrame processes one inbound frame. Heartbeat tokens are served
// inline; everything else is expected to be a JSON event. Malformed or
// unknown frames are logged and dropped without closing the connection.
func (c *Client) handleFrame(conn *websocket.Conn, message []byte) {
	trimmed := bytes.TrimSpace(message)

	if bytes.Equal(trimmed, pongToken) {
		return
	}
	if bytes.Equal(trimmed, pingToken) {
		if err := c.writeToken(conn, pongToken); err != nil {
			c.opts.Logger.Debug("failed to answer ping", "error", err)
		}
		return
	}

	var event Event
	if err := json.Unmarshal(trimmed, &event); err != nil {
		c.opts.Logger.Warn("dropping malformed frame", "error", err)
		return
	}
	if event.Type != TopicNotification {
		c.opts.Logger.Debug("dropping unknown message type", "type", event.Type)
		return
	}

	if event.Data.EventType != "" {
		c.bus.Dispatch(event.Data.EventType, event.Data)
	}
	c.bus.Dispatch(TopicNotification, event.Data)
}
