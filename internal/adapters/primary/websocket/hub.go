package websocket

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/trackline/issue-board-backend/internal/core/domain"
	"github.com/trackline/issue-board-backend/internal/core/ports"
)

// Hub is the connection registry: it maps authenticated users to their live
// websocket connections and fans events out to them. A single user can have
// multiple connections (multiple tabs/devices); all of them receive pushes.
type Hub struct {
	// clients maps user IDs to their active connections
	clients map[uuid.UUID]map[*Client]bool

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// mu protects the clients map. Registry mutations go through the Run
	// loop; read paths (SendToUser, ConnectionsFor) run from any goroutine.
	mu sync.RWMutex

	logger *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// Run starts the hub's registration loop. This MUST be run as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)
		}
	}
}

// registerClient adds a client to the registry. Registering the same client
// twice is a no-op (map semantics).
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true

	h.logger.Info("client registered",
		"user_id", client.UserID,
		"total_connections", len(h.clients[client.UserID]),
	)
}

// unregisterClient removes exactly one client; no-op if it was never
// registered or already removed.
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userClients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, exists := userClients[client]; !exists {
		return
	}

	delete(userClients, client)
	if len(userClients) == 0 {
		delete(h.clients, client.UserID)
	}

	client.CloseSend()

	h.logger.Info("client unregistered", "user_id", client.UserID)
}

// ConnectionsFor returns a snapshot of the user's live connections. The
// returned slice is a copy; callers never see the live map.
func (h *Hub) ConnectionsFor(userID uuid.UUID) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	userClients, ok := h.clients[userID]
	if !ok {
		return nil
	}

	snapshot := make([]*Client, 0, len(userClients))
	for client := range userClients {
		snapshot = append(snapshot, client)
	}
	return snapshot
}

// SendToUser attempts delivery of the event to every live connection of the
// user and returns the number of successful sends. A connection whose send
// buffer is full or that is shutting down counts as a failed delivery; it
// never blocks the loop or the caller.
func (h *Hub) SendToUser(userID uuid.UUID, event domain.Event) int {
	clients := h.ConnectionsFor(userID)
	if len(clients) == 0 {
		return 0
	}

	delivered := 0
	for _, client := range clients {
		if client.enqueue(event) {
			delivered++
			continue
		}
		h.logger.Warn("dropping event for slow or closed connection",
			"user_id", userID,
			"event_type", event.Data.EventType,
		)
	}

	h.logger.Debug("event fan-out",
		"user_id", userID,
		"event_type", event.Data.EventType,
		"connections", len(clients),
		"delivered", delivered,
	)
	return delivered
}

// IsUserConnected checks if a user has any active connections
func (h *Hub) IsUserConnected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.clients[userID]
	return ok && len(clients) > 0
}

// ClientCount returns the total number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, userClients := range h.clients {
		count += len(userClients)
	}
	return count
}

// UserCount returns the number of distinct users with at least one connection.
func (h *Hub) UserCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
