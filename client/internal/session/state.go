package session

// State is the connection state of a Session.
type State int

const (
	// Disconnected means the session is not connected. Initial state, and
	// terminal after an explicit Disconnect.
	Disconnected State = iota

	// Connecting means the session is establishing its first connection.
	Connecting

	// Connected means the session is connected and joined to its room.
	Connected

	// Reconnecting means the transport was lost and the session is
	// attempting to reconnect and rejoin.
	Reconnecting
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}
