package miniaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/lachanso/safebuddy/core/audio"
)

// Client hands out microphones and output contexts backed by one malgo
// context. Handles are released by their owners; Close tears down the
// context itself and must come last.
type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext

	closeOnce sync.Once
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) { logger.Debug("malgo", "message", message) },
	)
	if err != nil {
		return nil, fmt.Errorf("malgo InitContext failed: %w", err)
	}

	return &Client{audioContext: audioCtx}, nil
}

func (c *Client) AcquireMicrophone(ctx context.Context, constraints audio.Constraints) (audio.Microphone, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mic := &microphone{}
	if err := mic.Init(c.audioContext, constraints); err != nil {
		return nil, fmt.Errorf("failed to initialize capture client: %w", err)
	}
	return mic, nil
}

func (c *Client) CreateOutputContext(ctx context.Context, sampleRate int) (audio.OutputContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	output := &outputContext{}
	if err := output.Init(c.audioContext, sampleRate); err != nil {
		return nil, fmt.Errorf("failed to initialize playback client: %w", err)
	}

	if err := output.Start(); err != nil {
		_ = output.Close()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}
	return output, nil
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		_ = c.audioContext.Uninit()
		c.audioContext.Free()
	})
}
