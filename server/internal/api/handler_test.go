package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/logrelay/logrelay/pkg/types"
	"github.com/logrelay/logrelay/server/internal/api"
	"github.com/logrelay/logrelay/server/internal/hub"
	"github.com/logrelay/logrelay/server/internal/registry"
)

const room = "preview-42"

// fixture wires a hub with one member of room and returns the test server,
// the hub, and the member's outbox.
func fixture(t *testing.T) (*httptest.Server, *hub.Hub, <-chan []byte) {
	t.Helper()

	h := hub.New(registry.New(), 16)
	id, outbox := h.Connect()
	if err := h.Join(room, id); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(api.New(h, nil))
	t.Cleanup(srv.Close)
	return srv, h, outbox
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// recvEnvelope reads one pushed envelope from the outbox.
func recvEnvelope(t *testing.T, outbox <-chan []byte) types.ServerMessage {
	t.Helper()
	select {
	case data := <-outbox:
		var m types.ServerMessage
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no envelope delivered")
		return types.ServerMessage{}
	}
}

func TestPublishLog_DeliveredToMember(t *testing.T) {
	srv, _, outbox := fixture(t)

	resp := post(t, srv.URL+"/api/v1/rooms/"+room+"/logs",
		`{"message":"Build started","type":"stdout","level":"info"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202", resp.StatusCode)
	}

	m := recvEnvelope(t, outbox)
	if m.Event != types.EventLog || m.Entry == nil {
		t.Fatalf("envelope: got %+v", m)
	}
	if m.Entry.Message != "Build started" {
		t.Errorf("message: got %q", m.Entry.Message)
	}
	if m.Entry.Timestamp.IsZero() {
		t.Error("timestamp must default to now")
	}
	if m.Entry.IsError {
		t.Error("stdout/info entry must not be marked as error")
	}
}

func TestPublishLog_IsErrorDerivedServerSide(t *testing.T) {
	srv, _, outbox := fixture(t)

	// The producer claims isError=false on an error-level entry; the server
	// re-derives it.
	post(t, srv.URL+"/api/v1/rooms/"+room+"/logs",
		`{"message":"boom","type":"stderr","level":"error","isError":false}`)

	m := recvEnvelope(t, outbox)
	if !m.Entry.IsError {
		t.Error("isError: got false, want derived true")
	}
}

func TestPublishLog_Invalid(t *testing.T) {
	srv, _, _ := fixture(t)
	url := srv.URL + "/api/v1/rooms/" + room + "/logs"

	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"empty message", `{"message":"","type":"stdout","level":"info"}`},
		{"unknown channel", `{"message":"x","type":"file","level":"info"}`},
		{"unknown level", `{"message":"x","type":"stdout","level":"debug"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := post(t, url, tt.body); resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestPublishError_DeliveredToMember(t *testing.T) {
	srv, h, outbox := fixture(t)

	resp := post(t, srv.URL+"/api/v1/rooms/"+room+"/error",
		`{"code":"build_failed","message":"exit status 1"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202", resp.StatusCode)
	}

	m := recvEnvelope(t, outbox)
	if m.Event != types.EventStreamError || m.Error == nil || m.Error.Code != "build_failed" {
		t.Fatalf("envelope: got %+v", m)
	}

	// Publishing an error never changes membership.
	if n := len(h.Registry().MembersOf(room)); n != 1 {
		t.Errorf("members: got %d, want 1", n)
	}
}

func TestPublishError_MissingCode(t *testing.T) {
	srv, _, _ := fixture(t)
	resp := post(t, srv.URL+"/api/v1/rooms/"+room+"/error", `{"message":"no code"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}

func TestListRooms(t *testing.T) {
	srv, _, _ := fixture(t)

	resp, err := http.Get(srv.URL + "/api/v1/rooms")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var rooms []api.RoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Room != room || rooms[0].Members != 1 {
		t.Errorf("rooms: got %+v", rooms)
	}
}

func TestGetRoom(t *testing.T) {
	srv, _, _ := fixture(t)

	resp, err := http.Get(srv.URL + "/api/v1/rooms/" + room)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var rr api.RoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rr.Members != 1 {
		t.Errorf("members: got %d, want 1", rr.Members)
	}

	// A room nobody joined reports zero members rather than 404: rooms exist
	// implicitly.
	resp2, err := http.Get(srv.URL + "/api/v1/rooms/never-joined")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp2.Body.Close()
	if err := json.NewDecoder(resp2.Body).Decode(&rr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rr.Members != 0 {
		t.Errorf("never-joined members: got %d, want 0", rr.Members)
	}
}

func TestHealth(t *testing.T) {
	srv, _, _ := fixture(t)

	resp, err := http.Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var hr api.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if hr.Status != "ok" || hr.Connections != 1 || hr.Rooms != 1 {
		t.Errorf("health: got %+v", hr)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, _ := fixture(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/rooms/" + room + "/logs"},
		{http.MethodPost, "/api/v1/rooms"},
		{http.MethodDelete, "/api/v1/health"},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(tt.method, srv.URL+tt.path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tt.method, tt.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: got %d, want 405", tt.method, tt.path, resp.StatusCode)
		}
	}
}

func TestEmptyRoomID(t *testing.T) {
	srv, h, _ := fixture(t)

	// An escaped slash survives the mux's path cleaning and leaves an empty
	// room segment; nothing may be published into the "" room.
	resp := post(t, srv.URL+"/api/v1/rooms/%2Flogs",
		`{"message":"x","type":"stdout","level":"info"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
	if n := len(h.Registry().MembersOf("")); n != 0 {
		t.Errorf("empty-room members: got %d, want 0", n)
	}
}

func TestUnknownRoomAction(t *testing.T) {
	srv, _, _ := fixture(t)
	resp := post(t, srv.URL+"/api/v1/rooms/"+room+"/replay", `{}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}
