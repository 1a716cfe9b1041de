package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/logrelay/logrelay/pkg/types"
	"github.com/logrelay/logrelay/server/internal/metrics"
	"github.com/logrelay/logrelay/server/internal/registry"
)

// DefaultSendBuffer is the per-connection outbox depth used when the
// configured value is zero.
const DefaultSendBuffer = 64

// Hub is the broadcast dispatcher. It pairs the registry's membership state
// with one outbound queue per connection and pushes published events to every
// current member of a room.
type Hub struct {
	reg     *registry.Registry
	bufSize int

	mu       sync.Mutex // serializes fan-out and guards outboxes
	outboxes map[string]chan []byte
}

// New creates a Hub on top of reg. sendBuffer is the outbox depth per
// connection; zero or negative selects DefaultSendBuffer.
func New(reg *registry.Registry, sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	return &Hub{
		reg:      reg,
		bufSize:  sendBuffer,
		outboxes: make(map[string]chan []byte),
	}
}

// Connect registers a new connection and allocates its outbox. The transport
// layer drains the returned channel; it is closed by Disconnect, which is the
// signal to shut the underlying connection down.
func (h *Hub) Connect() (id string, outbox <-chan []byte) {
	out := make(chan []byte, h.bufSize)

	h.mu.Lock()
	id = h.reg.Register()
	h.outboxes[id] = out
	h.mu.Unlock()

	metrics.ActiveConnections.Inc()
	slog.Debug("hub: connection registered", "conn", id)
	return id, out
}

// Disconnect removes the connection from every room, unregisters it, and
// closes its outbox. Idempotent: disconnecting an unknown or already-removed
// connection is a no-op. The removal is immediate at the registry level even
// if in-flight pushes to the connection are still draining.
func (h *Hub) Disconnect(id string) {
	h.mu.Lock()
	out, ok := h.outboxes[id]
	if ok {
		delete(h.outboxes, id)
		h.reg.Unregister(id)
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	close(out)
	metrics.ActiveConnections.Dec()
	metrics.ActiveRooms.Set(float64(h.reg.RoomCount()))
	slog.Debug("hub: connection removed", "conn", id)
}

// Join subscribes the connection to a room. Idempotent; returns
// registry.ErrUnknownConnection if the connection is not live.
func (h *Hub) Join(room, id string) error {
	if err := h.reg.Join(room, id); err != nil {
		return err
	}
	metrics.ActiveRooms.Set(float64(h.reg.RoomCount()))
	slog.Info("hub: joined room", "conn", id, "room", room)
	return nil
}

// Leave unsubscribes the connection from a room. Always succeeds.
func (h *Hub) Leave(room, id string) {
	h.reg.Leave(room, id)
	metrics.ActiveRooms.Set(float64(h.reg.RoomCount()))
	slog.Info("hub: left room", "conn", id, "room", room)
}

// PublishLog delivers entry to every current member of room. Sequential calls
// for the same room are observed by every member in the same relative order.
func (h *Hub) PublishLog(room string, entry types.LogEntry) {
	metrics.EventsPublished.WithLabelValues("log").Inc()
	h.publish(room, types.LogMessage(room, entry))
}

// PublishError delivers se to every current member of room as an out-of-band
// stream error. Membership is not changed and member connections stay open.
func (h *Hub) PublishError(room string, se types.StreamError) {
	metrics.EventsPublished.WithLabelValues("stream_error").Inc()
	h.publish(room, types.ErrorMessage(room, se))
}

// publish marshals msg once, snapshots the room's members, and enqueues the
// payload on each member's outbox. The send is non-blocking: a full outbox
// means the consumer is dead or hopelessly behind, so the event is dropped
// for that member and its disconnect cleanup runs asynchronously. No network
// I/O happens under the hub mutex.
func (h *Hub) publish(room string, msg types.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("hub: marshal event", "room", room, "err", err)
		return
	}

	var stalled []string

	h.mu.Lock()
	for _, id := range h.reg.MembersOf(room) {
		out, ok := h.outboxes[id]
		if !ok {
			// Member disconnected between the snapshot and this send.
			continue
		}
		select {
		case out <- data:
			metrics.EventsDelivered.Inc()
		default:
			stalled = append(stalled, id)
		}
	}
	h.mu.Unlock()

	for _, id := range stalled {
		metrics.EventsDropped.Inc()
		slog.Warn("hub: outbox full, disconnecting member", "conn", id, "room", room)
		go h.Disconnect(id)
	}
}

// Registry exposes the underlying registry for read-only callers such as the
// ingest API's room listing.
func (h *Hub) Registry() *registry.Registry {
	return h.reg
}
