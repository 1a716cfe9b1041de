package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/logrelay/logrelay/pkg/types"
	"github.com/logrelay/logrelay/server/internal/config"
)

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestShouldNotify_Cooldown(t *testing.T) {
	base := time.Now()
	n := New(config.NotifyConfig{Cooldown: 5 * time.Minute})

	n.now = fixedClock(base)
	if !n.shouldNotify("preview-42", "build_failed") {
		t.Fatal("first notification must pass")
	}
	if n.shouldNotify("preview-42", "build_failed") {
		t.Error("repeat within cooldown must be suppressed")
	}

	// A different code or room is tracked independently.
	if !n.shouldNotify("preview-42", "oom") {
		t.Error("different code must pass")
	}
	if !n.shouldNotify("preview-7", "build_failed") {
		t.Error("different room must pass")
	}

	// After the window elapses, the same key fires again.
	n.now = fixedClock(base.Add(5*time.Minute + time.Second))
	if !n.shouldNotify("preview-42", "build_failed") {
		t.Error("notification after cooldown must pass")
	}
}

// captureServer records webhook POST bodies.
type captureServer struct {
	mu     sync.Mutex
	bodies [][]byte
}

func (c *captureServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies = append(c.bodies, body)
		c.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
}

func (c *captureServer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bodies)
}

func TestDeliver_HTTPWebhook(t *testing.T) {
	capture := &captureServer{}
	srv := httptest.NewServer(capture.handler())
	defer srv.Close()
	t.Setenv("TEST_WEBHOOK_URL", srv.URL)

	n := New(config.NotifyConfig{
		Cooldown: time.Minute,
		Webhooks: []config.WebhookConfig{{Type: "http", URLEnv: "TEST_WEBHOOK_URL"}},
	})

	n.deliver(Notification{Room: "preview-42", Code: "build_failed", Message: "exit status 1"})

	if capture.count() != 1 {
		t.Fatalf("webhook calls: got %d, want 1", capture.count())
	}

	var payload map[string]Notification
	if err := json.Unmarshal(capture.bodies[0], &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	note := payload["stream_error"]
	if note.Room != "preview-42" || note.Code != "build_failed" {
		t.Errorf("payload: got %+v", note)
	}
}

func TestDeliver_SlackPayloadShape(t *testing.T) {
	capture := &captureServer{}
	srv := httptest.NewServer(capture.handler())
	defer srv.Close()
	t.Setenv("TEST_SLACK_URL", srv.URL)

	n := New(config.NotifyConfig{
		Webhooks: []config.WebhookConfig{{Type: "slack", URLEnv: "TEST_SLACK_URL"}},
	})
	n.deliver(Notification{Room: "preview-42", Code: "oom", Message: "killed"})

	var payload map[string]string
	if err := json.Unmarshal(capture.bodies[0], &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload["text"] == "" {
		t.Error("slack payload must carry a text field")
	}
}

func TestStreamErrorPublished_EndToEnd(t *testing.T) {
	capture := &captureServer{}
	srv := httptest.NewServer(capture.handler())
	defer srv.Close()
	t.Setenv("TEST_WEBHOOK_URL", srv.URL)

	n := New(config.NotifyConfig{
		Cooldown: time.Minute,
		Webhooks: []config.WebhookConfig{{Type: "http", URLEnv: "TEST_WEBHOOK_URL"}},
	})

	se := types.StreamError{Code: "build_failed", Message: "exit status 1"}
	n.StreamErrorPublished("preview-42", se)
	n.StreamErrorPublished("preview-42", se) // suppressed by cooldown

	deadline := time.Now().Add(2 * time.Second)
	for capture.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("webhook was never called")
		}
		time.Sleep(5 * time.Millisecond)
	}
	// Give the second (suppressed) call a chance to misfire.
	time.Sleep(50 * time.Millisecond)
	if capture.count() != 1 {
		t.Errorf("webhook calls: got %d, want 1", capture.count())
	}
}

func TestNoWebhooks_NoOp(t *testing.T) {
	n := New(config.NotifyConfig{Cooldown: time.Minute})
	n.StreamErrorPublished("preview-42", types.StreamError{Code: "x", Message: "y"})
}

func TestDeliver_UnresolvedURLSkipped(t *testing.T) {
	n := New(config.NotifyConfig{
		Webhooks: []config.WebhookConfig{{Type: "http", URLEnv: "DOES_NOT_EXIST_URL"}},
	})
	// Must not panic or attempt delivery.
	n.deliver(Notification{Room: "preview-42", Code: "x"})
}
