// Package notifyclient is an importable client for the real-time notification
// stream. It maintains a websocket connection with heartbeat and automatic
// reconnection, and dispatches incoming events to subscribed listeners.
package notifyclient

import (
	"log/slog"
	"sync"
)

// TopicNotification receives every structured message, regardless of its
// specific event type. Consumers may subscribe to either granularity.
const TopicNotification = "notification"

// Handler is a listener callback invoked with the event payload.
type Handler func(data EventData)

// Subscription is the handle returned by Subscribe. Unsubscribing by handle
// identity makes duplicate removal a no-op and keeps distinct subscriptions
// of the same function independent.
type Subscription struct {
	bus   *Bus
	event string
	id    uint64
}

// Unsubscribe removes the listener. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.bus.remove(s.event, s.id)
}

type listener struct {
	id uint64
	fn Handler
}

// Bus is an in-process publish/subscribe registry keyed by event name.
// Callbacks for one event run in registration order; a panicking callback
// never stops the remaining ones nor reaches the dispatcher.
type Bus struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[string][]listener
	logger    *slog.Logger
}

// NewBus creates an empty listener bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		listeners: make(map[string][]listener),
		logger:    logger,
	}
}

// Subscribe registers fn for the named event and returns its handle.
func (b *Bus) Subscribe(event string, fn Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.listeners[event] = append(b.listeners[event], listener{id: b.nextID, fn: fn})

	return &Subscription{bus: b, event: event, id: b.nextID}
}

// remove deletes the listener with the given id, preserving order.
func (b *Bus) remove(event string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.listeners[event]
	for i, l := range current {
		if l.id == id {
			b.listeners[event] = append(current[:i:i], current[i+1:]...)
			return
		}
	}
}

// Dispatch invokes every listener of the named event in registration order.
func (b *Bus) Dispatch(event string, data EventData) {
	b.mu.RLock()
	snapshot := make([]listener, len(b.listeners[event]))
	copy(snapshot, b.listeners[event])
	b.mu.RUnlock()

	for _, l := range snapshot {
		b.invoke(event, l, data)
	}
}

// invoke runs one callback inside a recover boundary.
func (b *Bus) invoke(event string, l listener, data EventData) {
	defer func() {
		if r := recover(); r != nil && b.logger != nil {
			b.logger.Error("listener panicked", "event", event, "panic", r)
		}
	}()
	l.fn(data)
}

// ListenerCount reports the number of listeners for the named event.
func (b *Bus) ListenerCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[event])
}
