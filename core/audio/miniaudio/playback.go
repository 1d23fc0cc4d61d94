package miniaudio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/google/uuid"
	"github.com/lachanso/safebuddy/core/audio"
)

const outputChannels = 1

type outputContext struct {
	device *malgo.Device
	config malgo.DeviceConfig

	mixer *mixer

	mu        sync.Mutex
	closeOnce sync.Once
}

func (c *outputContext) Init(audioContext *malgo.AllocatedContext, sampleRate int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sampleRate <= 0 {
		sampleRate = audio.OutputSampleRate
	}

	format := malgo.FormatF32
	c.config = malgo.DefaultDeviceConfig(malgo.Playback)
	c.config.SampleRate = uint32(sampleRate)
	c.config.Playback.Format = format
	c.config.Playback.Channels = outputChannels
	c.config.Alsa.NoMMap = 1
	c.config.PeriodSizeInFrames = uint32(sampleRate / 100) // ~10ms of audio
	c.config.Periods = 4

	c.mixer = newMixer(sampleRate, outputChannels)

	var err error
	if c.device, err = malgo.InitDevice(
		audioContext.Context,
		c.config,
		malgo.DeviceCallbacks{Data: func(pOutput, _ []byte, frameCount uint32) {
			c.mixer.render(pOutput, int(frameCount))
		}},
	); err != nil {
		return err
	}

	return nil
}

func (c *outputContext) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	return nil
}

func (c *outputContext) SampleRate() int     { return c.mixer.sampleRate }
func (c *outputContext) CurrentTime() float64 { return c.mixer.currentTime() }

func (c *outputContext) Schedule(buffer audio.Buffer, at float64, onEnded func()) (audio.PlaybackUnit, error) {
	c.mu.Lock()
	started := c.device != nil && c.device.IsStarted()
	c.mu.Unlock()
	if !started {
		return nil, fmt.Errorf("device not started")
	}

	return c.mixer.schedule(buffer, at, onEnded)
}

func (c *outputContext) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.mixer.stopAll()
		if c.device == nil {
			err = fmt.Errorf("device not initialized")
			return
		}
		if c.device.IsStarted() {
			if stopErr := c.device.Stop(); stopErr != nil {
				err = fmt.Errorf("failed to stop playback device: %w", stopErr)
			}
		}
		c.device.Uninit()
		c.device = nil
	})
	return err
}

// mixer sums every scheduled unit that overlaps the frames being rendered. Its
// frame counter is the output clock.
type mixer struct {
	sampleRate int
	channels   int

	mu       sync.Mutex
	rendered int64
	units    map[string]*scheduledUnit
}

func newMixer(sampleRate, channels int) *mixer {
	return &mixer{
		sampleRate: sampleRate,
		channels:   channels,
		units:      map[string]*scheduledUnit{},
	}
}

func (m *mixer) currentTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.rendered) / float64(m.sampleRate)
}

func (m *mixer) schedule(buffer audio.Buffer, at float64, onEnded func()) (*scheduledUnit, error) {
	if len(buffer.Channels) == 0 {
		return nil, fmt.Errorf("buffer has no channels")
	}
	if buffer.SampleRate != m.sampleRate {
		resampled := make([][]float32, len(buffer.Channels))
		for ch, samples := range buffer.Channels {
			resampled[ch] = audio.Resample(samples, buffer.SampleRate, m.sampleRate)
		}
		buffer = audio.Buffer{SampleRate: m.sampleRate, Channels: resampled}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	startFrame := int64(math.Round(at * float64(m.sampleRate)))
	if startFrame < m.rendered {
		startFrame = m.rendered
	}

	unit := &scheduledUnit{
		id:         uuid.NewString(),
		mixer:      m,
		buffer:     buffer,
		startFrame: startFrame,
		onEnded:    onEnded,
	}
	m.units[unit.id] = unit
	return unit, nil
}

func (m *mixer) render(out []byte, frameCount int) {
	m.mu.Lock()
	from := m.rendered
	for frame := 0; frame < frameCount; frame++ {
		position := from + int64(frame)
		for ch := 0; ch < m.channels; ch++ {
			var sum float32
			for _, unit := range m.units {
				sum += unit.sample(position, ch)
			}
			sum = max(-1, min(1, sum))
			offset := (frame*m.channels + ch) * 4
			if offset+4 <= len(out) {
				binary.LittleEndian.PutUint32(out[offset:], math.Float32bits(sum))
			}
		}
	}
	m.rendered += int64(frameCount)

	var ended []func()
	for id, unit := range m.units {
		if unit.endFrame() <= m.rendered {
			delete(m.units, id)
			if unit.onEnded != nil {
				ended = append(ended, unit.onEnded)
			}
		}
	}
	m.mu.Unlock()

	if len(ended) > 0 {
		// Completion callbacks must not run on the audio thread.
		go func() {
			for _, onEnded := range ended {
				onEnded()
			}
		}()
	}
}

func (m *mixer) stop(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.units, id)
}

func (m *mixer) stopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.units)
}

func (m *mixer) activeUnits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.units)
}

type scheduledUnit struct {
	id         string
	mixer      *mixer
	buffer     audio.Buffer
	startFrame int64
	onEnded    func()
}

func (u *scheduledUnit) endFrame() int64 {
	return u.startFrame + int64(u.buffer.Frames())
}

func (u *scheduledUnit) sample(position int64, channel int) float32 {
	idx := position - u.startFrame
	if idx < 0 || idx >= int64(u.buffer.Frames()) {
		return 0
	}
	channel = min(channel, len(u.buffer.Channels)-1)
	return u.buffer.Channels[channel][idx]
}

func (u *scheduledUnit) Stop() error {
	u.mixer.stop(u.id)
	return nil
}
