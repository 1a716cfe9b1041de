package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPPort   = 8080
	DefaultSendBuffer = 64
	DefaultCooldown   = 5 * time.Minute
)

// Config holds the server configuration parsed from the `server:` section of
// the config file.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the ingest API, WebSocket endpoint, and metrics
	// listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Auth configures producer authentication on the ingest API.
	Auth AuthConfig `yaml:"auth"`

	// Stream controls broadcast delivery behaviour.
	Stream StreamConfig `yaml:"stream"`

	// Notify holds webhook targets for published stream errors.
	Notify NotifyConfig `yaml:"notify"`
}

// AuthConfig controls producer authentication on the ingest API.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected
	// API key. Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header name to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// StreamConfig controls broadcast delivery behaviour.
type StreamConfig struct {
	// SendBuffer is the per-connection outbound queue depth. A member whose
	// queue overflows is treated as dead and disconnected. Default: 64.
	SendBuffer int `yaml:"send_buffer"`
}

// NotifyConfig holds webhook delivery targets for stream errors.
type NotifyConfig struct {
	// Cooldown suppresses repeat notifications for the same (room, code)
	// within this window. Default: 5m.
	Cooldown time.Duration `yaml:"cooldown"`

	// Webhooks is the list of delivery targets.
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads and parses the config file at path. Missing fields are filled
// with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Stream: StreamConfig{
				SendBuffer: DefaultSendBuffer,
			},
			Notify: NotifyConfig{
				Cooldown: DefaultCooldown,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}
	if cfg.Server.Stream.SendBuffer <= 0 {
		return fmt.Errorf("server.stream.send_buffer must be positive")
	}
	if cfg.Server.Notify.Cooldown < 0 {
		return fmt.Errorf("server.notify.cooldown must not be negative")
	}
	for _, wh := range cfg.Server.Notify.Webhooks {
		switch wh.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("server.notify webhook type %q unknown: want slack|teams|http", wh.Type)
		}
	}
	return nil
}
