// Package session implements the observer-side state machine for tailing a
// room on logrelay-server.
//
// A Session owns the desired state ("which room should I be in") separately
// from the actual transport connection and reconciles the two: Connect dials
// and joins, a supervising loop reads pushed events, and on unsolicited
// transport loss the loop redials with exponential backoff and re-issues the
// join for the desired room. The rejoin is required because the server purges
// all memberships of a dropped connection and a fresh transport is a new
// connection identity.
//
// Received log entries accumulate in an ordered, append-only sequence. The
// sequence may contain gaps across a reconnect (missed entries are never
// backfilled) but is never reordered, and locally buffered entries are never
// replayed.
package session
