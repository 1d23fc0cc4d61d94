package events

import (
	"errors"
	"testing"

	"github.com/lachanso/safebuddy/core/conversations"
)

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "opened", event: NewOpened(), expected: KindOpened},
		{name: "error", event: NewError("boom", nil), expected: KindError},
		{name: "closed", event: NewClosed("bye"), expected: KindClosed},
		{name: "audio chunk", event: NewAudioChunk("AAA=", "audio/pcm;rate=24000"), expected: KindAudioChunk},
		{name: "interrupted", event: NewInterrupted(), expected: KindInterrupted},
		{name: "turn complete", event: NewTurnComplete(), expected: KindTurnComplete},
		{name: "transcript delta", event: NewTranscriptDelta(conversations.SpeakerUser, "xin"), expected: KindTranscriptDelta},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
			if testCase.event.Timestamp().IsZero() {
				t.Fatalf("expected timestamp to be set")
			}
		})
	}
}

func TestErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("socket reset")
	event := NewError("receive failed", cause)

	if !errors.Is(event, cause) {
		t.Fatalf("expected error event to unwrap to its cause")
	}
	if got := event.Error(); got != "receive failed: socket reset" {
		t.Fatalf("unexpected error text %q", got)
	}
}

func TestTranscriptDeltaDefaultsToTransportOrigin(t *testing.T) {
	delta := NewTranscriptDelta(conversations.SpeakerModel, "chào")

	if delta.Origin != OriginTransport {
		t.Fatalf("expected transport origin, got %q", delta.Origin)
	}
	if delta.Speaker != conversations.SpeakerModel || delta.Text != "chào" {
		t.Fatalf("unexpected delta %+v", delta)
	}
}
