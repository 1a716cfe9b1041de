package types

import (
	"fmt"
	"time"
)

// Channel identifies which output stream of the producer process a log line
// came from.
type Channel string

const (
	ChannelStdout Channel = "stdout"
	ChannelStderr Channel = "stderr"
)

// Level is the severity of a log entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// LogEntry is one line of build or preview output. Entries are immutable
// values: produced once by the build process and passed through the relay
// unchanged.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Type      Channel   `json:"type"`
	Level     Level     `json:"level"`

	// IsError is derived from Level and Type; see DeriveIsError.
	IsError bool `json:"isError"`
}

// NewLogEntry builds a LogEntry with the timestamp set to now and IsError
// derived from the channel and level.
func NewLogEntry(msg string, ch Channel, lvl Level) LogEntry {
	return LogEntry{
		Timestamp: time.Now().UTC(),
		Message:   msg,
		Type:      ch,
		Level:     lvl,
		IsError:   DeriveIsError(ch, lvl),
	}
}

// DeriveIsError reports whether an entry on the given channel at the given
// level counts as an error: anything at error level, plus everything written
// to stderr.
func DeriveIsError(ch Channel, lvl Level) bool {
	return lvl == LevelError || ch == ChannelStderr
}

// Validate checks that the entry carries a known channel and level and a
// non-empty message.
func (e LogEntry) Validate() error {
	if e.Message == "" {
		return fmt.Errorf("log entry: message is empty")
	}
	switch e.Type {
	case ChannelStdout, ChannelStderr:
	default:
		return fmt.Errorf("log entry: type %q unknown: want stdout|stderr", e.Type)
	}
	switch e.Level {
	case LevelInfo, LevelWarning, LevelError:
	default:
		return fmt.Errorf("log entry: level %q unknown: want info|warning|error", e.Level)
	}
	return nil
}

// StreamError is an out-of-band signal to all room members that the producer
// side failed. It is delivered as a normal event and does not alter membership.
type StreamError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface so a StreamError can be surfaced
// directly as a session error.
func (e StreamError) Error() string {
	return e.Code + ": " + e.Message
}
