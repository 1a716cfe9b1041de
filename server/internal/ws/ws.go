package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/logrelay/logrelay/pkg/types"
	"github.com/logrelay/logrelay/server/internal/hub"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxFrameSize bounds inbound client frames; join/leave envelopes are tiny.
	maxFrameSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins — callers should apply CORS at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server upgrades HTTP requests to WebSocket observer connections and bridges
// them to the hub.
type Server struct {
	hub *hub.Hub
}

// New creates a Server on top of h.
func New(h *hub.Hub) *Server {
	return &Server{hub: h}
}

// ServeHTTP upgrades the connection, registers it with the hub, and serves it
// until either side closes. Blocks for the lifetime of the connection.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	id, outbox := s.hub.Connect()
	defer s.hub.Disconnect(id)

	go s.writePump(conn, outbox)
	s.readPump(conn, id) // blocks until the connection closes
}

// readPump reads client frames, applies join/leave envelopes to the hub, and
// detects disconnects. Blocks until the connection closes.
func (s *Server) readPump(conn *websocket.Conn, id string) {
	defer conn.Close()
	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg types.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("ws: bad client frame", "conn", id, "err", err)
			continue
		}
		if msg.Room == "" {
			slog.Warn("ws: envelope without room", "conn", id, "action", msg.Action)
			continue
		}

		switch msg.Action {
		case types.ActionJoin:
			if err := s.hub.Join(msg.Room, id); err != nil {
				// Only possible when the connection raced its own disconnect.
				slog.Warn("ws: join failed", "conn", id, "room", msg.Room, "err", err)
			}
		case types.ActionLeave:
			s.hub.Leave(msg.Room, id)
		default:
			slog.Warn("ws: unknown action", "conn", id, "action", msg.Action)
		}
	}
}

// writePump drains the connection's outbox onto the wire and sends periodic
// ping frames. When the outbox is closed (disconnect), it sends a close frame
// and exits. Runs in its own goroutine per connection.
func (s *Server) writePump(conn *websocket.Conn, outbox <-chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-outbox:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if !ok {
				// Outbox was closed — the hub removed this connection.
				conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
