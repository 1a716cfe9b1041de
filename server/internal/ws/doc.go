// Package ws is the WebSocket transport for logrelay-server.
//
// Each upgraded connection gets a registry identity and an outbox from the
// hub. The read pump decodes join/leave envelopes and drives membership; the
// write pump drains the outbox onto the wire with write deadlines and
// ping/pong liveness. Either pump exiting funnels into hub.Disconnect, which
// purges the connection from both registries.
//
// Client→server frames:
//
//	{"action": "join",  "room": "preview-42"}
//	{"action": "leave", "room": "preview-42"}
//
// Server→client frames are the envelopes described in pkg/types. The endpoint
// is mounted at /ws/rooms by the server. The upgrader accepts all origins;
// apply origin restrictions at the reverse proxy level.
package ws
