package geminiws

import (
	"encoding/json"
	"fmt"

	"github.com/lachanso/safebuddy/core/audio"
	"github.com/lachanso/safebuddy/core/conversations"
	"github.com/lachanso/safebuddy/core/events"
)

type clientSetup struct {
	Setup setup `json:"setup"`
}

type setup struct {
	Model                    string           `json:"model"`
	GenerationConfig         generationConfig `json:"generationConfig"`
	SystemInstruction        *content         `json:"systemInstruction,omitempty"`
	InputAudioTranscription  *struct{}        `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{}        `json:"outputAudioTranscription,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig  *voiceConfig `json:"voiceConfig,omitempty"`
	LanguageCode string       `json:"languageCode,omitempty"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type clientRealtimeInput struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	Audio *blob `json:"audio,omitempty"`
}

type serverMessage struct {
	SetupComplete *struct{}      `json:"setupComplete,omitempty"`
	ServerContent *serverContent `json:"serverContent,omitempty"`
	GoAway        *goAway        `json:"goAway,omitempty"`
}

type serverContent struct {
	ModelTurn           *content       `json:"modelTurn,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	InputTranscription  *transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *transcription `json:"outputTranscription,omitempty"`
}

type transcription struct {
	Text string `json:"text"`
}

type goAway struct {
	TimeLeft string `json:"timeLeft"`
}

// decodeServerMessage maps one server frame onto zero or more events. Inline
// audio keeps the base64 payload as received.
func decodeServerMessage(payload []byte) ([]events.Event, error) {
	var msg serverMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("decode server message: %w", err)
	}

	var out []events.Event
	if msg.SetupComplete != nil {
		out = append(out, events.NewOpened())
	}

	if sc := msg.ServerContent; sc != nil {
		if sc.ModelTurn != nil {
			for _, p := range sc.ModelTurn.Parts {
				if p.InlineData == nil || p.InlineData.Data == "" {
					continue
				}
				mimeType := p.InlineData.MIMEType
				if mimeType == "" {
					mimeType = audio.PCMMIMEType(audio.OutputSampleRate)
				}
				out = append(out, events.NewAudioChunk(p.InlineData.Data, mimeType))
			}
		}
		if sc.Interrupted {
			out = append(out, events.NewInterrupted())
		}
		if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
			out = append(out, events.NewTranscriptDelta(conversations.SpeakerUser, sc.InputTranscription.Text))
		}
		if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
			out = append(out, events.NewTranscriptDelta(conversations.SpeakerModel, sc.OutputTranscription.Text))
		}
		if sc.TurnComplete {
			out = append(out, events.NewTurnComplete())
		}
	}

	if msg.GoAway != nil {
		logger.Warn("gemini live server is going away", "timeLeft", msg.GoAway.TimeLeft)
	}

	return out, nil
}
