package live

import (
	"errors"
	"testing"

	"github.com/lachanso/safebuddy/core/audio"
)

func silence(frames int) audio.Buffer {
	return audio.Buffer{SampleRate: audio.OutputSampleRate, Channels: [][]float32{make([]float32, frames)}}
}

func activeUnits(p *playbackScheduler) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

func TestPlaybackSchedulesBackToBack(t *testing.T) {
	out := &fakeOutputContext{now: 2}
	playback := newPlaybackScheduler(out)

	first, err := playback.schedule(silence(12000))
	if err != nil {
		t.Fatalf("expected schedule to succeed, got %v", err)
	}
	second, err := playback.schedule(silence(12000))
	if err != nil {
		t.Fatalf("expected schedule to succeed, got %v", err)
	}

	if first != 2 || second != 2.5 {
		t.Fatalf("expected starts 2 and 2.5, got %v and %v", first, second)
	}
	if got := activeUnits(playback); got != 2 {
		t.Fatalf("expected 2 active units, got %d", got)
	}
}

func TestPlaybackCatchesUpWithDeviceClock(t *testing.T) {
	out := &fakeOutputContext{}
	playback := newPlaybackScheduler(out)
	if _, err := playback.schedule(silence(2400)); err != nil {
		t.Fatalf("expected schedule to succeed, got %v", err)
	}

	out.setNow(5)
	start, err := playback.schedule(silence(2400))
	if err != nil {
		t.Fatalf("expected schedule to succeed, got %v", err)
	}

	if start != 5 {
		t.Fatalf("expected late chunk to start now, got %v", start)
	}
}

func TestPlaybackRemovesEndedUnits(t *testing.T) {
	out := &fakeOutputContext{}
	playback := newPlaybackScheduler(out)
	_, _ = playback.schedule(silence(2400))
	_, _ = playback.schedule(silence(2400))

	out.finish(0)

	if got := activeUnits(playback); got != 1 {
		t.Fatalf("expected 1 active unit, got %d", got)
	}
}

func TestPlaybackScheduleErrorKeepsClock(t *testing.T) {
	out := &fakeOutputContext{now: 1, scheduleErr: errors.New("device lost")}
	playback := newPlaybackScheduler(out)

	_, err := playback.schedule(silence(2400))
	var scheduleErr *PlaybackSchedulingError
	if !errors.As(err, &scheduleErr) {
		t.Fatalf("expected playback scheduling error, got %v", err)
	}

	out.mu.Lock()
	out.scheduleErr = nil
	out.mu.Unlock()
	start, err := playback.schedule(silence(2400))
	if err != nil {
		t.Fatalf("expected schedule to succeed, got %v", err)
	}
	if start != 1 {
		t.Fatalf("expected clock to stay at 1, got %v", start)
	}
}

func TestPlaybackInterruptStopsUnitsAndResetsClock(t *testing.T) {
	out := &fakeOutputContext{}
	playback := newPlaybackScheduler(out)
	_, _ = playback.schedule(silence(24000))
	_, _ = playback.schedule(silence(24000))

	playback.interrupt()

	for i, unit := range out.units {
		if !unit.isStopped() {
			t.Fatalf("expected unit %d stopped", i)
		}
	}
	if got := activeUnits(playback); got != 0 {
		t.Fatalf("expected no active units, got %d", got)
	}
	start, _ := playback.schedule(silence(2400))
	if start != 0 {
		t.Fatalf("expected next chunk to start immediately, got %v", start)
	}
}

func TestPlaybackRejectsChunksAfterClose(t *testing.T) {
	out := &fakeOutputContext{}
	playback := newPlaybackScheduler(out)
	playback.close()

	_, err := playback.schedule(silence(2400))

	if !errors.Is(err, ErrPlaybackClosed) {
		t.Fatalf("expected playback closed error, got %v", err)
	}
	if got := len(out.scheduled()); got != 0 {
		t.Fatalf("expected nothing scheduled, got %d", got)
	}
}
