// Package notify delivers published stream errors to configured webhook
// targets (Slack, Teams, or plain HTTP POST). Repeat errors for the same
// (room, code) pair are suppressed within a cooldown window. Delivery is
// asynchronous and failures are logged, never propagated to the publisher.
package notify
