package registry

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrUnknownConnection is returned by Join when the connection id is not a
// live registered connection. Callers treat it as "already disconnected", not
// as a hard failure.
var ErrUnknownConnection = errors.New("registry: unknown connection")

// connection is the per-connection record. rooms is the set of room ids this
// connection currently belongs to, kept as a reverse index so Unregister can
// purge memberships without scanning every room.
type connection struct {
	rooms map[string]struct{}
}

// Registry holds all live connections and room member sets.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*connection
	rooms map[string]map[string]struct{} // room id -> set of member connection ids
	newID func() string                  // injectable for deterministic tests
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		conns: make(map[string]*connection),
		rooms: make(map[string]map[string]struct{}),
		newID: uuid.NewString,
	}
}

// Register allocates and stores a new live connection, returning its id.
// It always succeeds.
func (r *Registry) Register() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	r.conns[id] = &connection{rooms: make(map[string]struct{})}
	return id
}

// Unregister removes the connection and purges it from every room it belongs
// to, in one atomic step relative to concurrent reads. Calling it again for
// the same id is a no-op.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[id]
	if !ok {
		return
	}
	for room := range c.rooms {
		r.removeMember(room, id)
	}
	delete(r.conns, id)
}

// IsLive reports whether id is a registered live connection.
func (r *Registry) IsLive(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[id]
	return ok
}

// ConnCount returns the number of live connections.
func (r *Registry) ConnCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// removeMember drops id from room's member set and deletes the room when it
// becomes empty. Callers must hold r.mu.
func (r *Registry) removeMember(room, id string) {
	members, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
}
