package types

// Client→server actions.
const (
	ActionJoin  = "join"
	ActionLeave = "leave"
)

// Server→client events.
const (
	EventLog         = "log"
	EventStreamError = "stream_error"
)

// ClientMessage is the envelope an observer sends over the WebSocket to change
// its room membership. Both actions are idempotent on the server side.
type ClientMessage struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

// ServerMessage is the envelope pushed to every member of a room. Exactly one
// of Entry or Error is set, according to Event.
type ServerMessage struct {
	Event string       `json:"event"`
	Room  string       `json:"room"`
	Entry *LogEntry    `json:"entry,omitempty"`
	Error *StreamError `json:"error,omitempty"`
}

// LogMessage wraps entry in a server envelope for room.
func LogMessage(room string, entry LogEntry) ServerMessage {
	return ServerMessage{Event: EventLog, Room: room, Entry: &entry}
}

// ErrorMessage wraps se in a server envelope for room.
func ErrorMessage(room string, se StreamError) ServerMessage {
	return ServerMessage{Event: EventStreamError, Room: room, Error: &se}
}
