package audio

import "context"

// Frame is one outbound chunk of captured audio in transport-safe form.
type Frame struct {
	Data     string
	MIMEType string
}

// Constraints are requested from capture devices; providers apply what they
// support and ignore the rest.
type Constraints struct {
	SampleRate       int
	Channels         int
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

func DefaultCaptureConstraints() Constraints {
	return Constraints{
		SampleRate:       DefaultSampleRate,
		Channels:         1,
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
	}
}

// Microphone is an acquired capture handle. Audio delivered to onAudio is raw
// little-endian PCM16 described by EncodingInfo.
type Microphone interface {
	EncodingInfo() EncodingInfo
	Start(onAudio func(pcm []byte)) error
	Stop() error
	Release() error
}

type MicrophoneProvider interface {
	AcquireMicrophone(ctx context.Context, constraints Constraints) (Microphone, error)
}

// OutputContext plays scheduled buffers against its own monotonic clock.
type OutputContext interface {
	SampleRate() int
	// CurrentTime is the device clock in seconds.
	CurrentTime() float64
	// Schedule queues buffer to start at the given device time. onEnded runs
	// once when the unit finishes playing naturally, never after Stop and
	// never from within Schedule itself.
	Schedule(buffer Buffer, at float64, onEnded func()) (PlaybackUnit, error)
	Close() error
}

type PlaybackUnit interface {
	Stop() error
}

type OutputProvider interface {
	CreateOutputContext(ctx context.Context, sampleRate int) (OutputContext, error)
}
