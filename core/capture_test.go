package live

import (
	"context"
	"sync"
	"testing"
)

type windowRecorder struct {
	mu      sync.Mutex
	windows []captureWindow
}

func (r *windowRecorder) record(window captureWindow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows = append(r.windows, window)
}

func (r *windowRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.windows)
}

func TestCaptureEmitsFixedWindows(t *testing.T) {
	mic := &fakeMicrophone{sampleRate: 16000}
	recorder := &windowRecorder{}
	capture := newCapturePipeline(mic, recorder.record)
	if err := capture.start(context.Background()); err != nil {
		t.Fatalf("expected capture to start, got %v", err)
	}
	defer capture.stop()

	mic.capture(make([]byte, 3000*2))
	mic.capture(make([]byte, 3000*2))
	waitFor(t, "first window", func() bool { return recorder.count() == 1 })

	mic.capture(make([]byte, 2192*2))
	waitFor(t, "second window", func() bool { return recorder.count() == 2 })

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	for i, window := range recorder.windows {
		if len(window.samples) != captureWindowSize || len(window.pcm) != captureWindowSize*2 {
			t.Fatalf("window %d has %d samples and %d bytes", i, len(window.samples), len(window.pcm))
		}
	}
}

func TestCaptureResamplesToSixteenKilohertz(t *testing.T) {
	mic := &fakeMicrophone{sampleRate: 48000}
	recorder := &windowRecorder{}
	capture := newCapturePipeline(mic, recorder.record)
	if err := capture.start(context.Background()); err != nil {
		t.Fatalf("expected capture to start, got %v", err)
	}
	defer capture.stop()

	mic.capture(make([]byte, captureWindowSize*3*2))

	waitFor(t, "resampled window", func() bool { return recorder.count() == 1 })
}

func TestCaptureDropsAudioAfterStop(t *testing.T) {
	mic := &fakeMicrophone{sampleRate: 16000}
	recorder := &windowRecorder{}
	capture := newCapturePipeline(mic, recorder.record)
	if err := capture.start(context.Background()); err != nil {
		t.Fatalf("expected capture to start, got %v", err)
	}
	onAudio := mic.onAudio

	if err := capture.stop(); err != nil {
		t.Fatalf("expected capture to stop, got %v", err)
	}
	onAudio(make([]byte, captureWindowSize*2))

	if got := recorder.count(); got != 0 {
		t.Fatalf("expected no windows after stop, got %d", got)
	}
	if _, stops, _ := mic.counts(); stops != 1 {
		t.Fatalf("expected microphone stopped once, got %d", stops)
	}
}
