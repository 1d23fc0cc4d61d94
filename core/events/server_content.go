package events

const (
	// KindAudioChunk identifies model audio output.
	KindAudioChunk Kind = "server_content.audio_chunk"
	// KindInterrupted identifies remote barge-in detection.
	KindInterrupted Kind = "server_content.interrupted"
	// KindTurnComplete identifies the end of the current exchange.
	KindTurnComplete Kind = "server_content.turn_complete"
)

// AudioChunk carries base64 encoded PCM16 produced by the model.
type AudioChunk struct {
	Base
	Data     string
	MIMEType string
}

// NewAudioChunk creates a model audio chunk event.
func NewAudioChunk(data, mimeType string) AudioChunk {
	return AudioChunk{Base: NewBase(KindAudioChunk), Data: data, MIMEType: mimeType}
}

// Interrupted marks that the user spoke over the model.
type Interrupted struct{ Base }

// NewInterrupted creates an interrupted event.
func NewInterrupted() Interrupted {
	return Interrupted{Base: NewBase(KindInterrupted)}
}

// TurnComplete marks the end of the current exchange.
type TurnComplete struct{ Base }

// NewTurnComplete creates a turn complete event.
func NewTurnComplete() TurnComplete {
	return TurnComplete{Base: NewBase(KindTurnComplete)}
}
