package live

import (
	"context"
	"sync"

	"github.com/lachanso/safebuddy/core/audio"
)

const (
	captureSampleRate = audio.DefaultSampleRate
	captureWindowSize = 4096
	captureQueueSize  = 16
)

// captureWindow is one fixed-size block of 16kHz mono audio.
type captureWindow struct {
	samples []float32
	pcm     []byte
}

// capturePipeline turns microphone callbacks into fixed windows. Device
// callbacks only convert and enqueue; a worker goroutine hands windows to
// onWindow so subscribers never run on the audio thread.
type capturePipeline struct {
	mic       audio.Microphone
	inputRate int
	onWindow  func(captureWindow)

	mu      sync.Mutex
	open    bool
	pending []float32

	windows  chan captureWindow
	stopCh   chan struct{}
	stopOnce sync.Once
	dropped  int
}

func newCapturePipeline(mic audio.Microphone, onWindow func(captureWindow)) *capturePipeline {
	inputRate := mic.EncodingInfo().SampleRate
	if inputRate <= 0 {
		inputRate = captureSampleRate
	}

	return &capturePipeline{
		mic:       mic,
		inputRate: inputRate,
		onWindow:  onWindow,
		windows:   make(chan captureWindow, captureQueueSize),
		stopCh:    make(chan struct{}),
	}
}

func (c *capturePipeline) start(ctx context.Context) error {
	c.mu.Lock()
	c.open = true
	c.mu.Unlock()

	go c.run(ctx)
	if err := c.mic.Start(c.onAudio); err != nil {
		c.halt()
		return err
	}
	return nil
}

func (c *capturePipeline) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case window := <-c.windows:
			if !c.isOpen() {
				return
			}
			c.onWindow(window)
		}
	}
}

func (c *capturePipeline) isOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *capturePipeline) onAudio(pcm []byte) {
	samples := audio.BytesToSamples(pcm)
	if c.inputRate != captureSampleRate {
		samples = audio.Resample(samples, c.inputRate, captureSampleRate)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return
	}

	c.pending = append(c.pending, samples...)
	for len(c.pending) >= captureWindowSize {
		window := make([]float32, captureWindowSize)
		copy(window, c.pending)
		c.pending = c.pending[captureWindowSize:]

		select {
		case c.windows <- captureWindow{samples: window, pcm: audio.FloatToPCM16(window)}:
		default:
			c.dropped++
			logger.Warn("capture queue full, dropping window", "dropped", c.dropped)
		}
	}
	if len(c.pending) == 0 {
		c.pending = nil
	}
}

// halt stops producing windows. Anything captured afterwards is dropped.
func (c *capturePipeline) halt() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.open = false
		c.pending = nil
		c.mu.Unlock()
		close(c.stopCh)
	})
}

func (c *capturePipeline) stop() error {
	c.halt()
	return c.mic.Stop()
}
