// Package transport describes the bidirectional connection between a live
// session and a remote speech model.
package transport

import (
	"context"

	"github.com/lachanso/safebuddy/core/audio"
	"github.com/lachanso/safebuddy/core/events"
)

// Config carries everything the remote service needs for session setup.
type Config struct {
	Model             string
	SystemInstruction string
	Voice             string
	Language          string

	InputSampleRate  int
	OutputSampleRate int

	InputTranscription  bool
	OutputTranscription bool
}

// DefaultConfig returns the audio layout the live session captures and plays.
func DefaultConfig() Config {
	return Config{
		InputSampleRate:     audio.DefaultSampleRate,
		OutputSampleRate:    audio.OutputSampleRate,
		InputTranscription:  true,
		OutputTranscription: true,
	}
}

// Transport opens connections to a live speech service.
type Transport interface {
	// Open connects and sends the session setup. deliver receives every
	// inbound event in arrival order from a single goroutine. Open returns
	// before the remote side has acknowledged the setup; acknowledgement
	// arrives as events.Opened.
	Open(ctx context.Context, config Config, deliver func(events.Event)) (Conn, error)
}

// Conn is one open connection.
type Conn interface {
	Send(frame audio.Frame) error
	// Close is idempotent. A connection closed locally delivers no further
	// events after Close returns.
	Close() error
}

// Preflighter is implemented by transports that can validate credentials and
// model availability before any device is acquired.
type Preflighter interface {
	Preflight(ctx context.Context) error
}
