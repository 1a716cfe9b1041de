// Package api implements the HTTP ingest surface for logrelay-server, used by
// the producer side (the build/preview process) to publish into rooms:
//
//	POST /api/v1/rooms/{room}/logs   publish one log entry
//	POST /api/v1/rooms/{room}/error  publish a stream error
//	GET  /api/v1/rooms               active rooms with member counts
//	GET  /api/v1/rooms/{room}        one room's member count
//	GET  /api/v1/health              connection/room counts and uptime
//
// Publishing is fire-and-forget: a 202 means the event was handed to the
// dispatcher, not that any observer received it.
package api
