package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultServerURL      = "ws://localhost:8080/ws/rooms"
	DefaultInitialBackoff = 1 * time.Second
	DefaultMaxBackoff     = 60 * time.Second
	DefaultMultiplier     = 2.0
)

// Config is the top-level configuration for logrelay-tail, parsed from the
// `tail:` section of the config file.
type Config struct {
	Tail TailConfig `yaml:"tail"`
}

// TailConfig holds all client-side settings.
type TailConfig struct {
	// ServerURL is the WebSocket endpoint of logrelay-server.
	ServerURL string `yaml:"server_url"`

	// Room is the default room to tail; the -room flag overrides it.
	Room string `yaml:"room"`

	// Auth configures an optional header sent on the WebSocket handshake,
	// for deployments that terminate auth in front of the relay.
	Auth AuthConfig `yaml:"auth"`

	// Reconnect tunes the automatic reconnection backoff.
	Reconnect ReconnectConfig `yaml:"reconnect"`
}

// AuthConfig specifies the handshake authentication header.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// Header is the HTTP header name to send the key in.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`

	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
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

// ReconnectConfig tunes the truncated exponential backoff used between
// reconnection attempts after an unsolicited transport loss.
type ReconnectConfig struct {
	// InitialBackoff is the delay before the first reconnect attempt.
	InitialBackoff time.Duration `yaml:"initial_backoff"`

	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration `yaml:"max_backoff"`

	// Multiplier is the growth factor between attempts.
	Multiplier float64 `yaml:"multiplier"`
}

// Load reads and parses the config file at path. Missing fields are filled
// with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tail config: read %q: %w", path, err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("tail config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("tail config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config pre-populated with default values. Exposed so the
// CLI can run without a config file at all.
func Defaults() *Config {
	return &Config{
		Tail: TailConfig{
			ServerURL: DefaultServerURL,
			Reconnect: ReconnectConfig{
				InitialBackoff: DefaultInitialBackoff,
				MaxBackoff:     DefaultMaxBackoff,
				Multiplier:     DefaultMultiplier,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if !strings.HasPrefix(cfg.Tail.ServerURL, "ws://") && !strings.HasPrefix(cfg.Tail.ServerURL, "wss://") {
		return fmt.Errorf("tail.server_url %q must start with ws:// or wss://", cfg.Tail.ServerURL)
	}
	switch cfg.Tail.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("tail.auth.mode %q unknown: want apikey|none", cfg.Tail.Auth.Mode)
	}
	rc := cfg.Tail.Reconnect
	if rc.InitialBackoff <= 0 {
		return fmt.Errorf("tail.reconnect.initial_backoff must be positive")
	}
	if rc.MaxBackoff < rc.InitialBackoff {
		return fmt.Errorf("tail.reconnect.max_backoff must be >= initial_backoff")
	}
	if rc.Multiplier < 1 {
		return fmt.Errorf("tail.reconnect.multiplier must be >= 1")
	}
	return nil
}
