// Command safebuddy-live talks to the Safe Buddy assistant by voice from a
// terminal.
package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	live "github.com/lachanso/safebuddy/core"
	"github.com/lachanso/safebuddy/core/audio"
	"github.com/lachanso/safebuddy/core/audio/miniaudio"
	"github.com/lachanso/safebuddy/core/audio/portaudio"
	"github.com/lachanso/safebuddy/core/conversations"
	"github.com/lachanso/safebuddy/core/speechtotext/deepgram"
	"github.com/lachanso/safebuddy/core/transport"
	"github.com/lachanso/safebuddy/core/transport/gemini"
	"github.com/lachanso/safebuddy/core/transport/geminiws"
	"github.com/lachanso/safebuddy/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "safebuddy-live: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logFile, err := tea.LogToFile(cfg.LogFile, "safebuddy")
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	ctx := context.Background()
	devices, err := miniaudio.NewClient()
	if err != nil {
		return fmt.Errorf("failed to initialize audio: %w", err)
	}
	defer devices.Close()

	liveTransport, err := newTransport(ctx, cfg)
	if err != nil {
		return err
	}

	var microphones audio.MicrophoneProvider = devices
	if cfg.Capture == config.CapturePortaudio {
		microphones = portaudio.NewClient(0)
	}

	opts := []live.SessionOption{
		live.WithMicrophoneProvider(microphones),
		live.WithOutputProvider(devices),
		live.WithTransport(liveTransport),
		live.WithModel(cfg.Model),
		live.WithVoice(cfg.Voice),
		live.WithLanguage(cfg.Language),
		live.WithSystemInstruction(cfg.SystemInstruction()),
	}
	if cfg.DeepgramAPIKey != "" {
		opts = append(opts, live.WithUserTranscriber(deepgram.NewTranscriptionClient(deepgram.WithAPIKey(cfg.DeepgramAPIKey))))
	}

	session, err := live.NewSession(opts...)
	if err != nil {
		return err
	}
	defer session.Close()

	program := tea.NewProgram(newModel(session), tea.WithAltScreen())
	session.OnStateChange(func(change live.StateChange) { program.Send(stateMsg(change)) })
	session.OnLiveAmplitude(func(levels []float64) { program.Send(levelsMsg(levels)) })
	session.OnPartialTranscript(func(partial live.PartialTranscript) { program.Send(partialMsg(partial)) })
	session.OnTurn(func(turn conversations.Turn) { program.Send(turnMsg(turn)) })
	session.OnError(func(err error) { program.Send(errMsg{err: err}) })

	_, err = program.Run()
	return err
}

func newTransport(ctx context.Context, cfg config.Config) (transport.Transport, error) {
	switch cfg.Transport {
	case config.TransportWebSocket:
		return geminiws.NewClient(geminiws.WithAPIKey(cfg.GeminiAPIKey)), nil
	default:
		client, err := gemini.NewClient(ctx, gemini.WithAPIKey(cfg.GeminiAPIKey), gemini.WithModel(cfg.Model))
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		return client, nil
	}
}
