// Package auth provides API key authentication for the producer ingest API.
// Observer WebSocket connections are authenticated upstream (reverse proxy /
// session layer) and are not covered here.
package auth
