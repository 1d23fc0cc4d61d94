package live

import (
	"github.com/lachanso/safebuddy/core/audio"
	"github.com/lachanso/safebuddy/core/speechtotext"
	"github.com/lachanso/safebuddy/core/transport"
)

type SessionOption func(*Session)

func WithMicrophoneProvider(provider audio.MicrophoneProvider) SessionOption {
	return func(s *Session) {
		s.microphones = provider
	}
}

func WithOutputProvider(provider audio.OutputProvider) SessionOption {
	return func(s *Session) {
		s.outputs = provider
	}
}

func WithTransport(t transport.Transport) SessionOption {
	return func(s *Session) {
		s.transport = t
	}
}

// WithTransportConfig replaces the whole setup config. Prefer the narrower
// options below unless the audio layout must change too.
func WithTransportConfig(config transport.Config) SessionOption {
	return func(s *Session) {
		s.config = config
	}
}

func WithModel(model string) SessionOption {
	return func(s *Session) {
		s.config.Model = model
	}
}

func WithSystemInstruction(instruction string) SessionOption {
	return func(s *Session) {
		s.config.SystemInstruction = instruction
	}
}

func WithVoice(voice string) SessionOption {
	return func(s *Session) {
		s.config.Voice = voice
	}
}

func WithLanguage(language string) SessionOption {
	return func(s *Session) {
		s.config.Language = language
	}
}

func WithCaptureConstraints(constraints audio.Constraints) SessionOption {
	return func(s *Session) {
		s.constraints = constraints
	}
}

// WithUserTranscriber makes transcriber the only source of user transcript
// text. It receives the same 16kHz audio the transport does.
func WithUserTranscriber(transcriber speechtotext.Transcriber) SessionOption {
	return func(s *Session) {
		s.transcriber = transcriber
	}
}
