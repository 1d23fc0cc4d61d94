package events

import "github.com/lachanso/safebuddy/core/conversations"

// KindTranscriptDelta identifies an append-only transcript piece.
const KindTranscriptDelta Kind = "transcript.delta"

// Origin names the component that produced a transcript delta.
type Origin string

const (
	// OriginTransport marks transcription produced by the live service.
	OriginTransport Origin = "transport"
	// OriginTranscriber marks transcription produced by a local speech-to-text
	// provider.
	OriginTranscriber Origin = "transcriber"
)

// TranscriptDelta carries a piece of speech transcription for one speaker.
type TranscriptDelta struct {
	Base
	Speaker conversations.Speaker
	Text    string
	Origin  Origin
}

// NewTranscriptDelta creates a transcript delta event from the live service.
func NewTranscriptDelta(speaker conversations.Speaker, text string) TranscriptDelta {
	return NewTranscriptDeltaFrom(OriginTransport, speaker, text)
}

// NewTranscriptDeltaFrom creates a transcript delta event with an explicit
// origin.
func NewTranscriptDeltaFrom(origin Origin, speaker conversations.Speaker, text string) TranscriptDelta {
	return TranscriptDelta{Base: NewBase(KindTranscriptDelta), Speaker: speaker, Text: text, Origin: origin}
}
