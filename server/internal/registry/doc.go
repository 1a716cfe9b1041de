// Package registry tracks live observer connections and their room
// memberships for logrelay-server.
//
// Registry is the authoritative answer to "is this connection alive" and
// "who is in this room". Both concerns live behind a single RWMutex: room
// cardinality is one room per active preview, so a global lock is cheap, and
// it makes the disconnect path atomic — a concurrent MembersOf never observes
// a half-purged connection.
//
// Rooms are created implicitly on first Join and deleted when their last
// member leaves or disconnects.
package registry
