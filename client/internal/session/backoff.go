package session

import (
	"math/rand"
	"time"

	"github.com/logrelay/logrelay/client/internal/config"
)

// backoff implements truncated exponential backoff with jitter, tuned by the
// reconnect section of the tail config.
type backoff struct {
	initial    time.Duration
	max        time.Duration
	multiplier float64
	current    time.Duration
}

func newBackoff(cfg config.ReconnectConfig) *backoff {
	b := &backoff{
		initial:    cfg.InitialBackoff,
		max:        cfg.MaxBackoff,
		multiplier: cfg.Multiplier,
	}
	if b.initial <= 0 {
		b.initial = config.DefaultInitialBackoff
	}
	if b.max < b.initial {
		b.max = config.DefaultMaxBackoff
	}
	if b.multiplier < 1 {
		b.multiplier = config.DefaultMultiplier
	}
	b.current = b.initial
	return b
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// Apply ±25 % jitter.
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	// Advance for next call.
	b.current = time.Duration(float64(b.current) * b.multiplier)
	if b.current > b.max {
		b.current = b.max
	}
	return d
}

func (b *backoff) reset() {
	b.current = b.initial
}
