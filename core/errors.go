package live

import (
	"errors"
	"fmt"

	"github.com/lachanso/safebuddy/core/audio"
)

var (
	ErrSessionClosed  = errors.New("session closed")
	ErrPlaybackClosed = errors.New("playback closed")
)

// DecodeError is returned for inbound audio that cannot be decoded. It is
// logged and never ends a session.
type DecodeError = audio.DecodeError

// DeviceAcquisitionError reports that a microphone or output context could
// not be obtained. The transport is never opened after one.
type DeviceAcquisitionError struct {
	Device string
	Err    error
}

func (e *DeviceAcquisitionError) Error() string {
	return fmt.Sprintf("failed to acquire %s: %v", e.Device, e.Err)
}

func (e *DeviceAcquisitionError) Unwrap() error { return e.Err }

// TransportConnectError reports a failure before the remote service accepted
// the session.
type TransportConnectError struct {
	Err error
}

func (e *TransportConnectError) Error() string {
	return fmt.Sprintf("failed to connect: %v", e.Err)
}

func (e *TransportConnectError) Unwrap() error { return e.Err }

// TransportRuntimeError reports a failure of an open session.
type TransportRuntimeError struct {
	Err error
}

func (e *TransportRuntimeError) Error() string {
	return fmt.Sprintf("live connection failed: %v", e.Err)
}

func (e *TransportRuntimeError) Unwrap() error { return e.Err }

// PlaybackSchedulingError reports a chunk the output context refused.
type PlaybackSchedulingError struct {
	At  float64
	Err error
}

func (e *PlaybackSchedulingError) Error() string {
	return fmt.Sprintf("failed to schedule playback at %.3fs: %v", e.At, e.Err)
}

func (e *PlaybackSchedulingError) Unwrap() error { return e.Err }
