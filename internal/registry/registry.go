// Package registry implements the in-process, per-recipient pub/sub used
// for live UI updates. It is deliberately not durable and not
// cross-instance safe; horizontal scaling needs an external transport.
package registry

import (
	"sync"

	"go.uber.org/zap"
)

// Event is one named occurrence delivered to listeners.
type Event struct {
	Name    string `json:"name"`
	Payload any    `json:"payload"`
}

// ListenerFunc receives events for a single recipient.
type ListenerFunc func(event Event)

// Registry fans events out to per-recipient listeners. Listeners for one
// recipient are invoked synchronously in registration order. Emitting to
// a recipient with no listeners is a silent drop; there is no queuing or
// replay.
type Registry interface {
	AddListener(recipient string, fn ListenerFunc) (unsubscribe func())
	RemoveListener(recipient string, token uint64)
	Emit(recipient string, event Event)
	Broadcast(event Event)
}

type listenerEntry struct {
	token uint64
	fn    ListenerFunc
}

// InMemoryRegistry is the single-process Registry implementation. One
// instance is constructed in the composition root and injected everywhere.
type InMemoryRegistry struct {
	mu        sync.RWMutex
	listeners map[string][]listenerEntry
	nextToken uint64
	logger    *zap.Logger
}

var _ Registry = (*InMemoryRegistry)(nil)

func NewInMemoryRegistry(logger *zap.Logger) *InMemoryRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryRegistry{
		listeners: make(map[string][]listenerEntry),
		logger:    logger,
	}
}

// AddListener registers fn for a recipient and returns an idempotent
// unsubscribe function. Multiple listeners per recipient are allowed; one
// browser session each.
func (r *InMemoryRegistry) AddListener(recipient string, fn ListenerFunc) func() {
	r.mu.Lock()
	r.nextToken++
	token := r.nextToken
	r.listeners[recipient] = append(r.listeners[recipient], listenerEntry{token: token, fn: fn})
	r.mu.Unlock()

	return func() {
		r.RemoveListener(recipient, token)
	}
}

// RemoveListener drops one listener. It is a no-op when the recipient or
// token is unknown.
func (r *InMemoryRegistry) RemoveListener(recipient string, token uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, ok := r.listeners[recipient]
	if !ok {
		return
	}

	for i, entry := range entries {
		if entry.token == token {
			entries = append(entries[:i], entries[i+1:]...)
			break
		}
	}

	if len(entries) == 0 {
		delete(r.listeners, recipient)
		return
	}
	r.listeners[recipient] = entries
}

// Emit delivers the event to every listener of the recipient in
// registration order.
func (r *InMemoryRegistry) Emit(recipient string, event Event) {
	r.mu.RLock()
	entries := make([]listenerEntry, len(r.listeners[recipient]))
	copy(entries, r.listeners[recipient])
	r.mu.RUnlock()

	for _, entry := range entries {
		r.invoke(recipient, entry, event)
	}
}

// Broadcast emits the event to every currently-registered recipient.
func (r *InMemoryRegistry) Broadcast(event Event) {
	r.mu.RLock()
	recipients := make([]string, 0, len(r.listeners))
	for recipient := range r.listeners {
		recipients = append(recipients, recipient)
	}
	r.mu.RUnlock()

	for _, recipient := range recipients {
		r.Emit(recipient, event)
	}
}

// invoke shields the registry from listener panics; a panicking listener
// must not starve its siblings.
func (r *InMemoryRegistry) invoke(recipient string, entry listenerEntry, event Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("listener panic",
				zap.String("recipient", recipient),
				zap.String("event", event.Name),
				zap.Any("panic", rec),
			)
		}
	}()

	entry.fn(event)
}
