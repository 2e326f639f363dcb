package core

import "sync"

// Registry maps live connections to at most one room.
// It never touches rooms; the coordinator keeps both sides consistent.
type Registry interface {
	// Register adds a connection with no room.
	Register(c *Client) error
	// Bind records that connID belongs to roomID.
	Bind(connID, roomID string) error
	// Unbind clears the room of connID. It is a no-op if unbound.
	Unbind(connID string)
	// Lookup returns the room connID is bound to.
	Lookup(connID string) (string, bool)
	// Retire marks connID as closing so it can no longer be bound, and returns its room.
	Retire(connID string) (string, bool)
	// Remove forgets connID and returns the room it was bound to.
	Remove(connID string) (string, bool)
	// Client returns the delivery sink of a live connection.
	Client(connID string) (*Client, bool)
	// Each calls fn for every live connection.
	Each(fn func(*Client))
	// Len returns the number of registered connections.
	Len() int
}

type connEntry struct {
	client  *Client
	roomID  string
	retired bool
}

// ConnRegistry is the in-memory Registry.
type ConnRegistry struct {
	mu    sync.RWMutex
	conns map[string]*connEntry
}

// NewRegistry returns an empty connection registry.
func NewRegistry() *ConnRegistry {
	return &ConnRegistry{conns: make(map[string]*connEntry)}
}

func (r *ConnRegistry) Register(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.conns[c.ID]; exists {
		return ErrAlreadyRegistered
	}
	r.conns[c.ID] = &connEntry{client: c}
	return nil
}

func (r *ConnRegistry) Bind(connID, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[connID]
	if !ok || e.retired {
		return ErrUnknownConnection
	}
	if e.roomID != "" {
		return ErrAlreadyInRoom
	}
	e.roomID = roomID
	return nil
}

func (r *ConnRegistry) Unbind(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[connID]; ok {
		e.roomID = ""
	}
}

func (r *ConnRegistry) Lookup(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[connID]
	if !ok || e.roomID == "" {
		return "", false
	}
	return e.roomID, true
}

func (r *ConnRegistry) Retire(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[connID]
	if !ok {
		return "", false
	}
	e.retired = true
	return e.roomID, e.roomID != ""
}

func (r *ConnRegistry) Remove(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[connID]
	if !ok {
		return "", false
	}
	delete(r.conns, connID)
	return e.roomID, e.roomID != ""
}

func (r *ConnRegistry) Client(connID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[connID]
	if !ok || e.retired {
		return nil, false
	}
	return e.client, true
}

func (r *ConnRegistry) Each(fn func(*Client)) {
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.conns))
	for _, e := range r.conns {
		if !e.retired {
			clients = append(clients, e.client)
		}
	}
	r.mu.RUnlock()

	for _, c := range clients {
		fn(c)
	}
}

func (r *ConnRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

var _ Registry = (*ConnRegistry)(nil)
