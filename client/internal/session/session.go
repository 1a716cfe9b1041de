package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/logrelay/logrelay/client/internal/config"
	"github.com/logrelay/logrelay/pkg/types"
)

// dialFunc is the function used to open a WebSocket connection.
// Abstracted so tests can inject a counting or failing dialer.
type dialFunc func(ctx context.Context, url string, header http.Header) (*websocket.Conn, error)

// Session tails one room on logrelay-server. Create with New, start with
// Connect, stop with Disconnect. Safe for concurrent use.
type Session struct {
	cfg    config.TailConfig
	dialFn dialFunc

	mu      sync.Mutex
	state   State
	lastErr string
	entries []types.LogEntry
	room    string // desired room, drives rejoin after reconnect
	conn    *websocket.Conn
	cancel  context.CancelFunc
	done    chan struct{}
	closed  bool

	updates chan State
	follow  chan types.LogEntry
}

// New creates a Session using the given tail config.
func New(cfg config.TailConfig) *Session {
	return &Session{
		cfg:     cfg,
		dialFn:  defaultDial,
		updates: make(chan State, 16),
		follow:  make(chan types.LogEntry, 256),
	}
}

// Connect dials the server, joins room, and starts the supervising receive
// loop. Calling Connect while the session is already active is a no-op. On
// failure the error is recorded, the session stays Disconnected, and the
// error is returned; there is no automatic retry of the initial connect.
// A Disconnect that arrives while Connect is still dialing wins: the fresh
// connection is closed and the session stays Disconnected.
func (s *Session) Connect(ctx context.Context, room string) error {
	s.mu.Lock()
	if s.state != Disconnected {
		s.mu.Unlock()
		return nil
	}
	s.setStateLocked(Connecting)
	s.room = room
	s.closed = false
	s.mu.Unlock()

	conn, err := s.dial(ctx)
	if err != nil {
		s.fail(fmt.Errorf("connect: %w", err))
		return fmt.Errorf("session: connect: %w", err)
	}

	if err := s.join(conn, room); err != nil {
		conn.Close()
		s.fail(fmt.Errorf("join %q: %w", room, err))
		return fmt.Errorf("session: join %q: %w", room, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	if s.closed {
		// A Disconnect raced the dial; the stop wins.
		s.setStateLocked(Disconnected)
		s.mu.Unlock()
		cancel()
		conn.Close()
		return nil
	}
	s.conn = conn
	s.cancel = cancel
	s.done = done
	s.lastErr = ""
	s.setStateLocked(Connected)
	s.mu.Unlock()

	slog.Info("session: connected", "room", room, "url", s.cfg.ServerURL)
	go s.run(runCtx, conn, done)
	return nil
}

// Disconnect leaves the room best-effort, closes the transport, and moves the
// session to Disconnected regardless of whether the leave succeeded. Calling
// it on an inactive session is a no-op.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.state == Disconnected {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conn := s.conn
	room := s.room
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if conn != nil {
		// Best effort: the server purges membership on close anyway.
		conn.WriteJSON(types.ClientMessage{Action: types.ActionLeave, Room: room}) //nolint:errcheck
		conn.Close()
	}
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	s.mu.Lock()
	s.conn = nil
	s.setStateLocked(Disconnected)
	s.mu.Unlock()
	slog.Info("session: disconnected", "room", room)
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the current session error, or empty when healthy. It carries
// connect/join failures, the transient "reconnecting" condition, and the last
// received stream error.
func (s *Session) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Entries returns a copy of the ordered log sequence accumulated so far.
func (s *Session) Entries() []types.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.LogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Updates returns a channel carrying state transitions. Sends are best
// effort: when the channel buffer is full, transitions are dropped rather
// than blocking the session.
func (s *Session) Updates() <-chan State {
	return s.updates
}

// Follow returns a channel carrying log entries as they arrive. Like Updates,
// sends are best effort; Entries remains the authoritative ordered sequence.
func (s *Session) Follow() <-chan types.LogEntry {
	return s.follow
}

// SetReconnect replaces the reconnect backoff settings, typically after a
// config reload. They take effect on the next transport loss; a backoff
// schedule already in progress keeps running on the old settings.
func (s *Session) SetReconnect(rc config.ReconnectConfig) {
	s.mu.Lock()
	s.cfg.Reconnect = rc
	s.mu.Unlock()
}

// --- internal ---------------------------------------------------------------

// run is the supervising loop: it drains pushed events from the connection
// and, on unsolicited transport loss, reconnects with backoff and rejoins the
// desired room. It exits when the session is explicitly disconnected or ctx
// is cancelled.
func (s *Session) run(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		err := s.receive(conn)
		conn.Close()

		if ctx.Err() != nil || s.isClosed() {
			s.mu.Lock()
			s.setStateLocked(Disconnected)
			s.mu.Unlock()
			return
		}

		// Unsolicited loss: surface a transient error and reconcile.
		s.mu.Lock()
		s.lastErr = "reconnecting"
		s.setStateLocked(Reconnecting)
		s.mu.Unlock()
		slog.Warn("session: connection lost, will reconnect", "err", err)

		// The backoff schedule is rebuilt per loss so settings applied via
		// SetReconnect since the last drop are honored.
		bo := newBackoff(s.reconnectSettings())
		next, ok := s.reconnect(ctx, bo)
		if !ok {
			s.mu.Lock()
			s.setStateLocked(Disconnected)
			s.mu.Unlock()
			return
		}
		conn = next
	}
}

// reconnect redials and rejoins until it succeeds or the session stops.
// Returns the fresh connection, or ok=false when ctx was cancelled or the
// session was explicitly disconnected.
func (s *Session) reconnect(ctx context.Context, bo *backoff) (*websocket.Conn, bool) {
	for {
		wait := bo.next()
		slog.Info("session: reconnect attempt scheduled", "wait", wait)
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(wait):
		}

		conn, err := s.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, false
			}
			slog.Warn("session: redial failed", "err", err)
			continue
		}

		room := s.desiredRoom()
		if err := s.join(conn, room); err != nil {
			slog.Warn("session: rejoin failed", "room", room, "err", err)
			conn.Close()
			continue
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return nil, false
		}
		s.conn = conn
		s.lastErr = ""
		s.setStateLocked(Connected)
		s.mu.Unlock()

		bo.reset()
		slog.Info("session: reconnected and rejoined", "room", room)
		return conn, true
	}
}

// receive reads pushed envelopes until the connection fails. Log entries are
// appended in arrival order; a stream error is recorded as the session error
// without changing the connection state.
func (s *Session) receive(conn *websocket.Conn) error {
	for {
		var msg types.ServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		switch msg.Event {
		case types.EventLog:
			if msg.Entry == nil {
				continue
			}
			s.mu.Lock()
			s.entries = append(s.entries, *msg.Entry)
			s.mu.Unlock()
			select {
			case s.follow <- *msg.Entry:
			default:
			}

		case types.EventStreamError:
			if msg.Error == nil {
				continue
			}
			s.mu.Lock()
			s.lastErr = "stream error: " + msg.Error.Error()
			s.mu.Unlock()
			slog.Warn("session: stream error received",
				"room", msg.Room, "code", msg.Error.Code, "message", msg.Error.Message)

		default:
			slog.Debug("session: unknown event ignored", "event", msg.Event)
		}
	}
}

// dial opens a WebSocket connection to the configured server, attaching the
// auth header when configured.
func (s *Session) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if s.cfg.Auth.Mode == "apikey" && s.cfg.Auth.Key() != "" {
		header.Set(s.cfg.Auth.EffectiveHeader(), s.cfg.Auth.Key())
	}
	return s.dialFn(ctx, s.cfg.ServerURL, header)
}

// join sends the join envelope for room. A successful write is treated as
// confirmation; the server applies joins in read order, so every event
// published after the server processes the frame is delivered.
func (s *Session) join(conn *websocket.Conn, room string) error {
	return conn.WriteJSON(types.ClientMessage{Action: types.ActionJoin, Room: room})
}

// fail records err and returns the session to Disconnected.
func (s *Session) fail(err error) {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.setStateLocked(Disconnected)
	s.mu.Unlock()
}

func (s *Session) desiredRoom() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

func (s *Session) reconnectSettings() config.ReconnectConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Reconnect
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// setStateLocked updates the state and notifies Updates. Callers hold s.mu.
func (s *Session) setStateLocked(st State) {
	if s.state == st {
		return
	}
	s.state = st
	select {
	case s.updates <- st:
	default:
	}
}

func defaultDial(ctx context.Context, url string, header http.Header) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	return conn, err
}
