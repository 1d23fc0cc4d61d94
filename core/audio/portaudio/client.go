package portaudio

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/lachanso/safebuddy/core/audio"
)

const (
	defaultBufferSize = 1024

	minReadBackoff = 10 * time.Millisecond
	maxReadBackoff = time.Second
)

// Client opens PortAudio input streams. PortAudio keeps global state, so each
// acquired microphone holds its own Initialize/Terminate pair.
type Client struct {
	bufferSize int
}

func NewClient(bufferSize int) *Client {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Client{bufferSize: bufferSize}
}

func (c *Client) AcquireMicrophone(ctx context.Context, constraints audio.Constraints) (audio.Microphone, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	sampleRate := audio.DefaultSampleRate
	if constraints.SampleRate > 0 {
		sampleRate = constraints.SampleRate
	}

	in := make([]int16, c.bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), c.bufferSize, in)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open PortAudio stream: %w", err)
	}

	return &microphone{
		stream:     stream,
		in:         in,
		sampleRate: sampleRate,
	}, nil
}

type microphone struct {
	stream     *portaudio.Stream
	in         []int16
	sampleRate int

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	released bool
}

func (m *microphone) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: m.sampleRate,
		Format:     audio.EncodingLinear16,
	}
}

func (m *microphone) Start(onAudio func(pcm []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return fmt.Errorf("microphone released")
	} else if m.cancel != nil {
		return nil
	}

	if err := m.stream.Start(); err != nil {
		return fmt.Errorf("failed to start PortAudio stream: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.read(ctx, m.done, onAudio)
	return nil
}

func (m *microphone) read(ctx context.Context, done chan struct{}, onAudio func(pcm []byte)) {
	defer close(done)

	pcm := make([]byte, len(m.in)*2)
	pump(ctx, m.stream.Read, func() {
		for i, sample := range m.in {
			binary.LittleEndian.PutUint16(pcm[i*2:], uint16(sample))
		}
		onAudio(pcm)
	})
}

// pump calls read until ctx ends, handing every successful read to deliver.
// Consecutive failures back off exponentially and are logged once per streak.
func pump(ctx context.Context, read func() error, deliver func()) {
	var backoff time.Duration
	for ctx.Err() == nil {
		if err := read(); err != nil {
			if backoff == 0 {
				logger.Warn("failed to read from PortAudio stream", "error", err)
				backoff = minReadBackoff
			} else {
				backoff = min(backoff*2, maxReadBackoff)
			}

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			continue
		}

		if backoff != 0 {
			logger.Info("PortAudio stream recovered")
			backoff = 0
		}
		deliver()
	}
}

func (m *microphone) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked()
}

func (m *microphone) stopLocked() error {
	if m.cancel == nil {
		return nil
	}

	m.cancel()
	<-m.done
	m.cancel = nil
	if err := m.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop PortAudio stream: %w", err)
	}
	return nil
}

func (m *microphone) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return nil
	}
	m.released = true

	stopErr := m.stopLocked()
	if err := m.stream.Close(); err != nil {
		return fmt.Errorf("failed to close PortAudio stream: %w", err)
	}
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return stopErr
}
