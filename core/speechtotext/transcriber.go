package speechtotext

import "context"

// Transcriber turns a stream of user audio into text.
type Transcriber interface {
	// Transcribe opens the stream. Callbacks in opts fire until StopStream is
	// called or ctx is cancelled.
	Transcribe(ctx context.Context, opts ...TranscriptionOption) error
	SendAudio(audio []byte) error
	StopStream() error
}
