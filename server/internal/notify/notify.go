package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/logrelay/logrelay/pkg/types"
	"github.com/logrelay/logrelay/server/internal/config"
)

// Notification is the payload sent to plain HTTP webhook targets.
type Notification struct {
	Room    string    `json:"room"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

// Notifier fans stream errors out to webhook targets with per-(room, code)
// cooldown. Safe for concurrent use.
type Notifier struct {
	webhooks []config.WebhookConfig
	cooldown time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
	client   *http.Client
	now      func() time.Time // injectable for deterministic tests
}

// New creates a Notifier from the server notify configuration. A Notifier
// with no webhooks is valid — StreamErrorPublished becomes a no-op.
func New(cfg config.NotifyConfig) *Notifier {
	return &Notifier{
		webhooks: cfg.Webhooks,
		cooldown: cfg.Cooldown,
		lastSent: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
}

// StreamErrorPublished reports that se was published to room. If the
// (room, code) pair is outside its cooldown window, webhook delivery is
// triggered asynchronously.
func (n *Notifier) StreamErrorPublished(room string, se types.StreamError) {
	if len(n.webhooks) == 0 {
		return
	}
	if !n.shouldNotify(room, se.Code) {
		slog.Debug("notify: suppressed by cooldown", "room", room, "code", se.Code)
		return
	}
	go n.deliver(Notification{
		Room:    room,
		Code:    se.Code,
		Message: se.Message,
		SentAt:  n.now().UTC(),
	})
}

// shouldNotify checks and updates the cooldown state for key (room, code).
func (n *Notifier) shouldNotify(room, code string) bool {
	key := room + ":" + code

	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	if last, ok := n.lastSent[key]; ok && now.Sub(last) <= n.cooldown {
		return false
	}
	n.lastSent[key] = now
	return true
}

// deliver sends the notification to all configured targets.
// Errors are logged but do not affect the caller.
func (n *Notifier) deliver(note Notification) {
	for _, wh := range n.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = n.sendSlack(url, note)
		case "teams":
			err = n.sendTeams(url, note)
		case "http":
			err = n.sendHTTP(url, note)
		default:
			slog.Warn("notify: unknown webhook type — skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("notify: webhook delivery failed",
				"type", wh.Type,
				"room", note.Room,
				"code", note.Code,
				"err", err,
			)
		} else {
			slog.Debug("notify: webhook delivered",
				"type", wh.Type,
				"room", note.Room,
				"code", note.Code,
			)
		}
	}
}

func (n *Notifier) sendSlack(url string, note Notification) error {
	body, _ := json.Marshal(map[string]string{
		"text": fmt.Sprintf("*[stream error]* room %s — %s: %s", note.Room, note.Code, note.Message),
	})
	return n.post(url, body)
}

func (n *Notifier) sendTeams(url string, note Notification) error {
	payload := map[string]interface{}{
		"@type":    "MessageCard",
		"@context": "http://schema.org/extensions",
		"summary":  note.Code,
		"title":    fmt.Sprintf("logrelay stream error: %s", note.Room),
		"text":     fmt.Sprintf("%s: %s", note.Code, note.Message),
	}
	body, _ := json.Marshal(payload)
	return n.post(url, body)
}

func (n *Notifier) sendHTTP(url string, note Notification) error {
	body, _ := json.Marshal(map[string]interface{}{"stream_error": note})
	return n.post(url, body)
}

func (n *Notifier) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
