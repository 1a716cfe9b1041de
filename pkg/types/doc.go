// Package types defines shared Go types used by both the server and the tail
// client: the log entry and stream error values carried through the relay, and
// the JSON envelopes exchanged over the WebSocket transport.
package types
