package live

import (
	"sync"

	"github.com/google/uuid"
	"github.com/lachanso/safebuddy/core/audio"
)

// playbackScheduler queues model audio back to back on an output context.
type playbackScheduler struct {
	out audio.OutputContext

	mu     sync.Mutex
	clock  float64
	active map[string]audio.PlaybackUnit
	closed bool
}

func newPlaybackScheduler(out audio.OutputContext) *playbackScheduler {
	return &playbackScheduler{out: out, active: map[string]audio.PlaybackUnit{}}
}

// schedule starts buffer when the previous chunk ends, or now if the clock
// has fallen behind the device. Rejected chunks are dropped without moving
// the clock.
func (p *playbackScheduler) schedule(buffer audio.Buffer) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := max(p.clock, p.out.CurrentTime())
	if p.closed {
		return start, &PlaybackSchedulingError{At: start, Err: ErrPlaybackClosed}
	}

	id := uuid.NewString()
	unit, err := p.out.Schedule(buffer, start, func() { p.ended(id) })
	if err != nil {
		err := &PlaybackSchedulingError{At: start, Err: err}
		logger.Warn("dropping audio chunk", "error", err)
		return start, err
	}

	p.clock = start + buffer.Duration()
	p.active[id] = unit
	return start, nil
}

func (p *playbackScheduler) ended(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, id)
}

// interrupt silences everything queued and resets the clock so the next
// chunk plays immediately.
func (p *playbackScheduler) interrupt() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interruptLocked()
}

func (p *playbackScheduler) interruptLocked() {
	for id, unit := range p.active {
		if err := unit.Stop(); err != nil {
			logger.Debug("failed to stop playback unit", "id", id, "error", err)
		}
	}
	clear(p.active)
	p.clock = 0
}

func (p *playbackScheduler) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interruptLocked()
	p.closed = true
}
