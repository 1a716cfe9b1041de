// Package hub implements the broadcast dispatcher for logrelay-server.
//
// Hub owns one buffered outbox per observer connection and fans published
// events out to the current members of a room. Fan-out is message passing:
// an event is marshalled once and enqueued on each member's outbox with a
// non-blocking send, so a slow consumer can never stall the dispatcher or the
// registries. A member whose outbox is full is disconnected asynchronously —
// the same cleanup path a transport failure takes.
//
// Fan-out is serialized under the hub mutex, which gives every member of a
// room the same relative event order for sequential publishes.
package hub
