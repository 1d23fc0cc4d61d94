package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/lachanso/safebuddy/core/audio"
	"github.com/lachanso/safebuddy/core/conversations"
	"github.com/lachanso/safebuddy/core/events"
	"github.com/lachanso/safebuddy/core/transport"
	"google.golang.org/genai"
)

func TestTranslateMapsServerContentInOrder(t *testing.T) {
	msg := &genai.LiveServerMessage{
		ServerContent: &genai.LiveServerContent{
			ModelTurn: &genai.Content{Parts: []*genai.Part{
				{InlineData: &genai.Blob{Data: []byte{1, 0}, MIMEType: "audio/pcm;rate=24000"}},
				{Text: "ignored"},
				{InlineData: &genai.Blob{Data: []byte{2, 0}}},
			}},
			InputTranscription:  &genai.Transcription{Text: "xin"},
			OutputTranscription: &genai.Transcription{Text: "chào"},
			TurnComplete:        true,
		},
	}

	got := translate(msg)

	kinds := make([]events.Kind, 0, len(got))
	for _, event := range got {
		kinds = append(kinds, event.Kind())
	}
	want := []events.Kind{
		events.KindAudioChunk,
		events.KindAudioChunk,
		events.KindTranscriptDelta,
		events.KindTranscriptDelta,
		events.KindTurnComplete,
	}
	if len(kinds) != len(want) {
		t.Fatalf("expected kinds %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("expected kinds %v, got %v", want, kinds)
		}
	}

	user := got[2].(events.TranscriptDelta)
	if user.Speaker != conversations.SpeakerUser || user.Text != "xin" {
		t.Fatalf("unexpected user delta %+v", user)
	}
	chunk := got[1].(events.AudioChunk)
	if chunk.Data != audio.EncodeFrame([]byte{2, 0}) {
		t.Fatalf("unexpected chunk data %q", chunk.Data)
	}
	if chunk.MIMEType != "audio/pcm;rate=24000" {
		t.Fatalf("expected default output mime type, got %q", chunk.MIMEType)
	}
	model := got[3].(events.TranscriptDelta)
	if model.Speaker != conversations.SpeakerModel || model.Text != "chào" {
		t.Fatalf("unexpected model delta %+v", model)
	}
}

func TestTranslateSetupCompleteAndInterrupted(t *testing.T) {
	opened := translate(&genai.LiveServerMessage{SetupComplete: &genai.LiveServerSetupComplete{}})
	if len(opened) != 1 || opened[0].Kind() != events.KindOpened {
		t.Fatalf("expected a single opened event, got %v", opened)
	}

	interrupted := translate(&genai.LiveServerMessage{ServerContent: &genai.LiveServerContent{Interrupted: true}})
	if len(interrupted) != 1 || interrupted[0].Kind() != events.KindInterrupted {
		t.Fatalf("expected a single interrupted event, got %v", interrupted)
	}

	if got := translate(nil); len(got) != 0 {
		t.Fatalf("expected nil message to produce nothing, got %v", got)
	}
}

func TestConnectConfigRequestsAudioAndTranscription(t *testing.T) {
	config := transport.DefaultConfig()
	config.SystemInstruction = "Bạn là Lá Chắn Số"
	config.Voice = "Zephyr"
	config.Language = "vi-VN"

	got := connectConfig(config)

	if len(got.ResponseModalities) != 1 || got.ResponseModalities[0] != genai.ModalityAudio {
		t.Fatalf("expected audio modality, got %v", got.ResponseModalities)
	}
	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != config.SystemInstruction {
		t.Fatalf("expected system instruction to be set")
	}
	if got.SpeechConfig == nil || got.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName != "Zephyr" {
		t.Fatalf("expected prebuilt voice Zephyr")
	}
	if got.InputAudioTranscription == nil || got.OutputAudioTranscription == nil {
		t.Fatalf("expected both transcriptions enabled")
	}
}

func TestPreflightWithoutAPIKeyFails(t *testing.T) {
	client, err := NewClient(context.Background(), WithAPIKey(""), WithModel("model"))
	if err != nil {
		t.Fatalf("expected client without key to build, got %v", err)
	}

	if err := client.Preflight(context.Background()); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected missing api key error, got %v", err)
	}
	if _, err := client.Open(context.Background(), transport.DefaultConfig(), func(events.Event) {}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected open without key to fail, got %v", err)
	}
}
