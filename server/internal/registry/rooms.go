package registry

// Join adds the connection to the room's member set, creating the room if it
// does not exist yet. Joining a room the connection is already in is a no-op:
// a client may legitimately re-issue a join after a transient ambiguity.
// Returns ErrUnknownConnection if id is not a live connection.
func (r *Registry) Join(room, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[id]
	if !ok {
		return ErrUnknownConnection
	}

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[room] = members
	}
	members[id] = struct{}{}
	c.rooms[room] = struct{}{}
	return nil
}

// Leave removes the connection from the room's member set if present.
// Leaving a room the connection never joined, or with an unknown connection
// id, is a no-op.
func (r *Registry) Leave(room, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeMember(room, id)
	if c, ok := r.conns[id]; ok {
		delete(c.rooms, room)
	}
}

// MembersOf returns a point-in-time snapshot of the room's member connection
// ids. The returned slice is a copy; mutating it has no effect on the registry.
func (r *Registry) MembersOf(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[room]
	out := make([]string, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

// Rooms returns the ids of all rooms that currently have at least one member.
func (r *Registry) Rooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.rooms))
	for room := range r.rooms {
		out = append(out, room)
	}
	return out
}

// RoomCount returns the number of non-empty rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
