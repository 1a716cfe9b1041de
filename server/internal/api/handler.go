package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/logrelay/logrelay/pkg/types"
	"github.com/logrelay/logrelay/server/internal/hub"
	"github.com/logrelay/logrelay/server/internal/notify"
)

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	hub      *hub.Hub
	notifier *notify.Notifier
	mux      *http.ServeMux
	started  time.Time
	now      func() time.Time // injectable for deterministic tests
}

// New creates a Handler wired to the given hub and notifier and registers all
// routes.
func New(h *hub.Hub, n *notify.Notifier) *Handler {
	a := &Handler{
		hub:      h,
		notifier: n,
		mux:      http.NewServeMux(),
		started:  time.Now(),
		now:      time.Now,
	}

	a.mux.HandleFunc("/api/v1/health", a.health)
	a.mux.HandleFunc("/api/v1/rooms", a.listRooms)
	a.mux.HandleFunc("/api/v1/rooms/", a.roomSubtree) // extracts {room} and the action

	return a
}

func (a *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health.
func (a *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reg := a.hub.Registry()
	jsonResp(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Connections: reg.ConnCount(),
		Rooms:       reg.RoomCount(),
		Uptime:      a.now().Sub(a.started).Truncate(time.Second).String(),
	})
}

// listRooms returns GET /api/v1/rooms — all rooms with at least one member.
func (a *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reg := a.hub.Registry()
	rooms := reg.Rooms()
	sort.Strings(rooms)

	out := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, RoomResponse{Room: room, Members: len(reg.MembersOf(room))})
	}
	jsonResp(w, http.StatusOK, out)
}

// roomSubtree dispatches /api/v1/rooms/{room} and /api/v1/rooms/{room}/{action}.
func (a *Handler) roomSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/rooms/")
	if rest == "" {
		a.listRooms(w, r)
		return
	}

	room, action, _ := strings.Cut(rest, "/")
	if room == "" {
		// Reachable despite mux path cleaning, e.g. via an escaped slash.
		jsonErr(w, http.StatusBadRequest, "room id is required")
		return
	}
	switch action {
	case "":
		a.getRoom(w, r, room)
	case "logs":
		a.publishLog(w, r, room)
	case "error":
		a.publishError(w, r, room)
	default:
		jsonErr(w, http.StatusNotFound, "not found")
	}
}

// getRoom returns GET /api/v1/rooms/{room}.
func (a *Handler) getRoom(w http.ResponseWriter, r *http.Request, room string) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, RoomResponse{
		Room:    room,
		Members: len(a.hub.Registry().MembersOf(room)),
	})
}

// publishLog handles POST /api/v1/rooms/{room}/logs.
// The timestamp defaults to now and isError is always re-derived server-side;
// everything else is passed through unchanged.
func (a *Handler) publishLog(w http.ResponseWriter, r *http.Request, room string) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var entry types.LogEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = a.now().UTC()
	}
	entry.IsError = types.DeriveIsError(entry.Type, entry.Level)
	if err := entry.Validate(); err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	a.hub.PublishLog(room, entry)
	jsonResp(w, http.StatusAccepted, acceptedResponse{Status: "accepted"})
}

// publishError handles POST /api/v1/rooms/{room}/error.
func (a *Handler) publishError(w http.ResponseWriter, r *http.Request, room string) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var se types.StreamError
	if err := json.NewDecoder(r.Body).Decode(&se); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if se.Code == "" {
		jsonErr(w, http.StatusBadRequest, "stream error: code is required")
		return
	}

	a.hub.PublishError(room, se)
	if a.notifier != nil {
		a.notifier.StreamErrorPublished(room, se)
	}
	jsonResp(w, http.StatusAccepted, acceptedResponse{Status: "accepted"})
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
