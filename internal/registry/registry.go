// Package registry tracks live subscriber connections and fans messages
// out to them with per-user addressing and crash-safe cleanup.
package registry

import (
	"log/slog"
	"sync"

	"github.com/hydrotech/groundwater-serve/internal/observability"
)

// Conn is one subscriber connection. Send must be safe for concurrent use;
// the registry calls it from many goroutines at once.
type Conn interface {
	Send(Message) error
	Close() error
}

// Registry owns the active connection set and the user index. All mutation
// is serialized behind a single mutex. Broadcasts snapshot the set under
// the lock and deliver outside it, so a slow consumer never blocks
// registration or other sends.
//
// Invariant: every connection in a user's index entry is also in the active
// set, and a user key exists only while it has at least one connection.
type Registry struct {
	logger  *slog.Logger
	metrics *observability.Metrics

	mu    sync.Mutex
	conns map[Conn]string   // conn -> user id, "" while anonymous
	users map[string][]Conn // user id -> that user's connections
}

// New builds an empty registry.
func New(logger *slog.Logger, metrics *observability.Metrics) *Registry {
	return &Registry{
		logger:  logger,
		metrics: metrics,
		conns:   make(map[Conn]string),
		users:   make(map[string][]Conn),
	}
}

// Connect registers a connection, bound to a user when userID is non-empty.
// Registering the same connection twice is a no-op.
func (r *Registry) Connect(c Conn, userID string) {
	r.mu.Lock()
	if _, ok := r.conns[c]; ok {
		r.mu.Unlock()
		return
	}
	r.conns[c] = userID
	if userID != "" {
		r.users[userID] = append(r.users[userID], c)
	}
	active := len(r.conns)
	r.updateGaugesLocked()
	r.mu.Unlock()

	r.logger.Info("connection registered", "user_id", userID, "active", active)
}

// Identify binds an anonymous connection to a user. Connections that are
// unknown or already identified are left untouched.
func (r *Registry) Identify(c Conn, userID string) {
	if userID == "" {
		return
	}
	r.mu.Lock()
	current, ok := r.conns[c]
	if !ok || current != "" {
		r.mu.Unlock()
		return
	}
	r.conns[c] = userID
	r.users[userID] = append(r.users[userID], c)
	r.updateGaugesLocked()
	r.mu.Unlock()

	r.logger.Info("connection identified", "user_id", userID)
}

// Disconnect removes a connection from the active set and its user's index,
// dropping the user key when its last connection goes. Safe to call
// repeatedly: later calls are no-ops.
func (r *Registry) Disconnect(c Conn) {
	r.mu.Lock()
	userID, ok := r.conns[c]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.conns, c)
	if userID != "" {
		kept := r.users[userID][:0]
		for _, existing := range r.users[userID] {
			if existing != c {
				kept = append(kept, existing)
			}
		}
		if len(kept) == 0 {
			delete(r.users, userID)
		} else {
			r.users[userID] = kept
		}
	}
	active := len(r.conns)
	r.updateGaugesLocked()
	r.mu.Unlock()

	r.logger.Info("connection removed", "user_id", userID, "active", active)
}

// SendTo delivers one message to one connection. Failures are logged and
// counted, never returned.
func (r *Registry) SendTo(c Conn, msg Message) {
	if err := c.Send(msg); err != nil {
		r.metrics.DeliveryFailures.Inc()
		r.logger.Error("send failed", "type", msg.Type(), "error", err)
		return
	}
	r.metrics.MessagesDelivered.Inc()
}

// SendToUser delivers a message to every connection of a user. Best effort:
// failures are logged per connection and the rest still receive the message.
func (r *Registry) SendToUser(userID string, msg Message) {
	r.mu.Lock()
	conns := make([]Conn, len(r.users[userID]))
	copy(conns, r.users[userID])
	r.mu.Unlock()

	for _, c := range conns {
		r.SendTo(c, msg)
	}
}

// Broadcast delivers a message to every active connection. Connections
// whose send fails are evicted and closed after the delivery pass, so one
// dead consumer cannot starve the rest.
func (r *Registry) Broadcast(msg Message) {
	r.mu.Lock()
	snapshot := make([]Conn, 0, len(r.conns))
	for c := range r.conns {
		snapshot = append(snapshot, c)
	}
	r.mu.Unlock()

	var failed []Conn
	for _, c := range snapshot {
		if err := c.Send(msg); err != nil {
			r.metrics.DeliveryFailures.Inc()
			r.logger.Warn("broadcast delivery failed, evicting connection", "type", msg.Type(), "error", err)
			failed = append(failed, c)
			continue
		}
		r.metrics.MessagesDelivered.Inc()
	}
	r.metrics.BroadcastsTotal.Inc()

	for _, c := range failed {
		r.Disconnect(c)
		_ = c.Close()
	}
}

// ActiveCount returns the number of registered connections.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// UserCount returns the number of distinct identified users.
func (r *Registry) UserCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *Registry) updateGaugesLocked() {
	r.metrics.ActiveConnections.Set(float64(len(r.conns)))
	r.metrics.IdentifiedUsers.Set(float64(len(r.users)))
}
