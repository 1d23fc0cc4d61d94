package live

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/lachanso/safebuddy/core/audio"
	"github.com/lachanso/safebuddy/core/events"
	"github.com/lachanso/safebuddy/core/speechtotext"
	"github.com/lachanso/safebuddy/core/transport"
)

const inboundQueueCapacity = 64

// attempt owns every resource of one Start. Resources are reacquired per
// attempt and released exactly once.
type attempt struct {
	id      string
	baseCtx context.Context
	ctx     context.Context
	cancel  context.CancelFunc

	inbound    chan events.Event
	transcript *transcriptAccumulator
	stopHook   chan struct{}

	mu          sync.Mutex
	released    bool
	mic         audio.Microphone
	output      audio.OutputContext
	conn        transport.Conn
	capture     *capturePipeline
	playback    *playbackScheduler
	transcriber speechtotext.Transcriber
}

func newAttempt(ctx context.Context) *attempt {
	baseCtx := context.WithoutCancel(ctx)
	attemptCtx, cancel := context.WithCancel(baseCtx)
	return &attempt{
		id:         uuid.NewString(),
		baseCtx:    baseCtx,
		ctx:        attemptCtx,
		cancel:     cancel,
		inbound:    make(chan events.Event, inboundQueueCapacity),
		transcript: newTranscriptAccumulator(),
	}
}

// deliver queues an inbound event. Events arriving after release are
// discarded.
func (a *attempt) deliver(event events.Event) {
	select {
	case <-a.ctx.Done():
	case a.inbound <- event:
	}
}

// The set* methods report false once the attempt is released; the caller
// then owns the resource and must release it.

func (a *attempt) setMic(mic audio.Microphone) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return false
	}
	a.mic = mic
	return true
}

func (a *attempt) setOutput(output audio.OutputContext) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return false
	}
	a.output = output
	a.playback = newPlaybackScheduler(output)
	return true
}

func (a *attempt) setConn(conn transport.Conn) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return false
	}
	a.conn = conn
	return true
}

func (a *attempt) setCapture(capture *capturePipeline) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return false
	}
	a.capture = capture
	return true
}

func (a *attempt) setTranscriber(transcriber speechtotext.Transcriber) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return false
	}
	a.transcriber = transcriber
	return true
}

func (a *attempt) setStopHook(hook chan struct{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		close(hook)
		return
	}
	a.stopHook = hook
}

func (a *attempt) connection() transport.Conn {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn
}

func (a *attempt) scheduler() *playbackScheduler {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.playback
}

func (a *attempt) userTranscriber() speechtotext.Transcriber {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transcriber
}

// release tears everything down. Every step runs even when an earlier one
// fails; the failures are joined.
func (a *attempt) release() error {
	a.mu.Lock()
	if a.released {
		a.mu.Unlock()
		return nil
	}
	a.released = true
	mic, output, conn := a.mic, a.output, a.conn
	capture, playback, transcriber := a.capture, a.playback, a.transcriber
	stopHook := a.stopHook
	a.mu.Unlock()

	a.cancel()
	if stopHook != nil {
		close(stopHook)
	}

	var errs error
	if conn != nil {
		if err := conn.Close(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("failed to close transport: %w", err))
		}
	}
	if transcriber != nil {
		if err := transcriber.StopStream(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("failed to stop transcriber: %w", err))
		}
	}
	if capture != nil {
		if err := capture.stop(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("failed to stop capture: %w", err))
		}
	}
	if mic != nil {
		if err := mic.Release(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("failed to release microphone: %w", err))
		}
	}
	if playback != nil {
		playback.close()
	}
	if output != nil {
		if err := output.Close(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("failed to close output context: %w", err))
		}
	}
	return errs
}
