package miniaudio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/lachanso/safebuddy/core/audio"
)

type microphone struct {
	device *malgo.Device
	config malgo.DeviceConfig

	encodingInfo audio.EncodingInfo

	onAudio atomic.Pointer[func(pcm []byte)]

	mu sync.Mutex
}

func (c *microphone) Init(audioContext *malgo.AllocatedContext, constraints audio.Constraints) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sampleRate := uint32(audio.DefaultSampleRate)
	if constraints.SampleRate > 0 {
		sampleRate = uint32(constraints.SampleRate)
	}
	channels := 1
	if constraints.Channels > 0 {
		channels = constraints.Channels
	}
	if constraints.EchoCancellation || constraints.NoiseSuppression || constraints.AutoGainControl {
		logger.Debug("capture processing constraints are not supported by miniaudio, capturing raw input",
			"echo_cancellation", constraints.EchoCancellation,
			"noise_suppression", constraints.NoiseSuppression,
			"auto_gain_control", constraints.AutoGainControl,
		)
	}

	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	c.config = malgo.DefaultDeviceConfig(malgo.Capture)
	c.config.SampleRate = sampleRate
	c.config.Capture.Format = format
	c.config.Capture.Channels = uint32(channels)
	c.config.Alsa.NoMMap = 1
	c.config.PerformanceProfile = malgo.LowLatency
	c.config.PeriodSizeInFrames = 480
	c.config.Periods = 3

	c.encodingInfo = audio.EncodingInfo{SampleRate: int(sampleRate), Format: audio.EncodingLinear16}

	var err error
	c.device, err = malgo.InitDevice(audioContext.Context, c.config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(pInput) < n || n == 0 {
				return
			}
			if onAudio := c.onAudio.Load(); onAudio != nil {
				(*onAudio)(downmix(pInput[:n], channels))
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	return nil
}

func (c *microphone) EncodingInfo() audio.EncodingInfo {
	return c.encodingInfo
}

func (c *microphone) Start(onAudio func(pcm []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	} else if c.device.IsStarted() {
		return nil
	}

	c.onAudio.Store(&onAudio)
	if err := c.device.Start(); err != nil {
		c.onAudio.Store(nil)
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	return nil
}

func (c *microphone) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAudio.Store(nil)
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	} else if !c.device.IsStarted() {
		return nil
	}

	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}

	return nil
}

func (c *microphone) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onAudio.Store(nil)
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}

	return nil
}

// downmix keeps the first channel of interleaved PCM16 so the pipeline always
// sees mono.
func downmix(pcm []byte, channels int) []byte {
	if channels <= 1 {
		return pcm
	}

	frameSize := channels * 2
	mono := make([]byte, len(pcm)/frameSize*2)
	for i := 0; i*frameSize+1 < len(pcm) && i*2+1 < len(mono); i++ {
		mono[i*2] = pcm[i*frameSize]
		mono[i*2+1] = pcm[i*frameSize+1]
	}
	return mono
}
