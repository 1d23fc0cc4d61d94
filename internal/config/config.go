// Package config reads the terminal caller's settings from the environment
// and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	TransportGenAI     = "genai"
	TransportWebSocket = "websocket"

	CaptureMiniaudio = "miniaudio"
	CapturePortaudio = "portaudio"
)

const (
	DefaultModel    = "gemini-2.5-flash-native-audio-preview-09-2025"
	DefaultVoice    = "Zephyr"
	DefaultLanguage = "vi-VN"
	DefaultLogFile  = "safebuddy-live.log"
)

type Config struct {
	GeminiAPIKey   string
	DeepgramAPIKey string

	Model     string
	Voice     string
	Language  string
	Transport string
	Capture   string
	LogFile   string
}

// Load reads .env from the working directory when present, then the
// environment. Variables already set win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (Config, error) {
	lookup := func(key, fallback string) string {
		if value := strings.TrimSpace(getenv(key)); value != "" {
			return value
		}
		return fallback
	}

	cfg := Config{
		GeminiAPIKey:   lookup("GEMINI_API_KEY", lookup("GOOGLE_API_KEY", lookup("API_KEY", ""))),
		DeepgramAPIKey: lookup("DEEPGRAM_API_KEY", ""),
		Model:          lookup("SAFEBUDDY_MODEL", DefaultModel),
		Voice:          lookup("SAFEBUDDY_VOICE", DefaultVoice),
		Language:       lookup("SAFEBUDDY_LANGUAGE", DefaultLanguage),
		Transport:      strings.ToLower(lookup("SAFEBUDDY_TRANSPORT", TransportGenAI)),
		Capture:        strings.ToLower(lookup("SAFEBUDDY_CAPTURE", CaptureMiniaudio)),
		LogFile:        lookup("SAFEBUDDY_LOG_FILE", DefaultLogFile),
	}

	switch cfg.Transport {
	case TransportGenAI, TransportWebSocket:
	default:
		return Config{}, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
	switch cfg.Capture {
	case CaptureMiniaudio, CapturePortaudio:
	default:
		return Config{}, fmt.Errorf("unknown capture backend %q", cfg.Capture)
	}

	return cfg, nil
}

// SystemInstruction is the live persona: the assistant instruction plus the
// note that it is talking to the user directly.
func (c Config) SystemInstruction() string {
	return SafeBuddyInstruction + LiveInstructionSuffix
}
