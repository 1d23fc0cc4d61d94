package live

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lachanso/safebuddy/core/conversations"
)

// finalizeOrder is the order turns are emitted in when both speakers have
// pending text.
var finalizeOrder = []conversations.Speaker{conversations.SpeakerUser, conversations.SpeakerModel}

// PartialTranscript is the in-progress text of a speaker's current turn.
type PartialTranscript struct {
	Speaker conversations.Speaker
	Text    string
}

type transcriptAccumulator struct {
	mu      sync.Mutex
	pending map[conversations.Speaker]*strings.Builder
}

func newTranscriptAccumulator() *transcriptAccumulator {
	return &transcriptAccumulator{pending: map[conversations.Speaker]*strings.Builder{}}
}

// appendDelta concatenates fragment verbatim and returns the speaker's
// pending text.
func (t *transcriptAccumulator) appendDelta(speaker conversations.Speaker, fragment string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	buffer, ok := t.pending[speaker]
	if !ok {
		buffer = &strings.Builder{}
		t.pending[speaker] = buffer
	}
	buffer.WriteString(fragment)
	return buffer.String()
}

// appendSegment adds a self-contained segment, separated from earlier text
// by a single space.
func (t *transcriptAccumulator) appendSegment(speaker conversations.Speaker, segment string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	buffer, ok := t.pending[speaker]
	if !ok {
		buffer = &strings.Builder{}
		t.pending[speaker] = buffer
	}
	if buffer.Len() > 0 {
		buffer.WriteByte(' ')
	}
	buffer.WriteString(segment)
	return buffer.String()
}

func (t *transcriptAccumulator) pendingText(speaker conversations.Speaker) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if buffer, ok := t.pending[speaker]; ok {
		return buffer.String()
	}
	return ""
}

// finalizeTurn emits one turn per speaker with non-blank pending text and
// clears every buffer.
func (t *transcriptAccumulator) finalizeTurn() []conversations.Turn {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	var turns []conversations.Turn
	for _, speaker := range finalizeOrder {
		buffer, ok := t.pending[speaker]
		if !ok {
			continue
		}
		if text := strings.TrimSpace(buffer.String()); text != "" {
			turns = append(turns, conversations.Turn{
				ID:          uuid.NewString(),
				Speaker:     speaker,
				Text:        text,
				FinalizedAt: now,
			})
		}
	}
	clear(t.pending)
	return turns
}
