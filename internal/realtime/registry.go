package realtime

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-api-realtime/internal/domain"
	"github.com/go-api-realtime/internal/infrastructure/metrics"
)

type binding struct {
	identity domain.Identity
	conn     Conn
}

// Registry maps user ids to their live connections. All methods are safe for
// concurrent use; sends happen outside the lock.
type Registry struct {
	mu      sync.RWMutex
	byConn  map[string]*binding
	byUser  map[int64]map[string]*binding
	metrics *metrics.Metrics
}

func NewRegistry(m *metrics.Metrics) *Registry {
	return &Registry{
		byConn:  make(map[string]*binding),
		byUser:  make(map[int64]map[string]*binding),
		metrics: m,
	}
}

// Register binds conn to identity. Anonymous identities cannot be registered.
func (r *Registry) Register(identity domain.Identity, conn Conn) error {
	if identity.Anonymous() {
		return fmt.Errorf("register anonymous connection: %w", domain.ErrUnauthorized)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byConn[conn.ID()]; exists {
		return fmt.Errorf("connection %s already registered: %w", conn.ID(), domain.ErrConflict)
	}
	b := &binding{identity: identity, conn: conn}
	r.byConn[conn.ID()] = b
	conns, ok := r.byUser[identity.UserID]
	if !ok {
		conns = make(map[string]*binding)
		r.byUser[identity.UserID] = conns
	}
	conns[conn.ID()] = b
	r.metrics.SetLiveConnections(len(r.byConn))
	return nil
}

// Unregister removes the connection. It reports whether anything was removed.
func (r *Registry) Unregister(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(connID) != nil
}

func (r *Registry) removeLocked(connID string) *binding {
	b, ok := r.byConn[connID]
	if !ok {
		return nil
	}
	delete(r.byConn, connID)
	if conns := r.byUser[b.identity.UserID]; conns != nil {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.byUser, b.identity.UserID)
		}
	}
	r.metrics.SetLiveConnections(len(r.byConn))
	return b
}

// Push sends payload to every live connection of userID on destination and
// returns how many sends succeeded. A connection that fails a send is
// evicted and closed.
func (r *Registry) Push(userID int64, destination string, payload []byte) int {
	r.mu.RLock()
	targets := make([]Conn, 0, len(r.byUser[userID]))
	for _, b := range r.byUser[userID] {
		targets = append(targets, b.conn)
	}
	r.mu.RUnlock()

	frame := Frame{Command: CommandMessage, Destination: destination, Body: payload}
	delivered := 0
	for _, c := range targets {
		if err := c.Send(frame); err != nil {
			slog.Warn("push failed, evicting connection", "user_id", userID, "conn_id", c.ID(), "err", err)
			r.metrics.Push(destination, false)
			r.Unregister(c.ID())
			_ = c.Close()
			continue
		}
		r.metrics.Push(destination, true)
		delivered++
	}
	return delivered
}

// DisconnectSession closes every connection opened with sessionID and
// returns how many were closed.
func (r *Registry) DisconnectSession(sessionID string) int {
	r.mu.Lock()
	var victims []Conn
	for id, b := range r.byConn {
		if b.identity.SessionID == sessionID {
			victims = append(victims, b.conn)
			r.removeLocked(id)
		}
	}
	r.mu.Unlock()

	for _, c := range victims {
		_ = c.Send(Frame{Command: CommandError, Headers: map[string]string{"message": "session ended"}})
		_ = c.Close()
	}
	return len(victims)
}

// Connections returns the number of live connections for userID.
func (r *Registry) Connections(userID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID])
}

// Len returns the total number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
