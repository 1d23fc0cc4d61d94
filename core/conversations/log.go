// Package conversations holds the finalized record of a live voice
// conversation.
package conversations

import (
	"sync"
	"time"

	"github.com/jinzhu/copier"
)

type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerModel Speaker = "model"
)

func (s Speaker) String() string { return string(s) }

// Turn is one finalized utterance attributed to a single speaker. Turns are
// immutable once they reach the Log.
type Turn struct {
	ID          string
	Speaker     Speaker
	Text        string
	FinalizedAt time.Time
}

// Log is the append-only conversation history of a session.
type Log struct {
	mu    sync.RWMutex
	turns []Turn
}

func (l *Log) Append(turns ...Turn) {
	if len(turns) == 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, turns...)
}

// Snapshot returns a deep copy so callers can keep it while the log grows.
func (l *Log) Snapshot() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var snapshot []Turn
	if err := copier.CopyWithOption(&snapshot, l.turns, copier.Option{DeepCopy: true}); err != nil {
		snapshot = make([]Turn, len(l.turns))
		copy(snapshot, l.turns)
	}
	return snapshot
}
