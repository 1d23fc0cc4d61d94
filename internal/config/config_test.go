package config

import (
	"strings"
	"testing"
)

func envOf(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envOf(nil))
	if err != nil {
		t.Fatalf("expected defaults to load, got %v", err)
	}

	if cfg.Model != DefaultModel || cfg.Voice != DefaultVoice || cfg.Language != DefaultLanguage {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Transport != TransportGenAI || cfg.Capture != CaptureMiniaudio {
		t.Fatalf("unexpected backends %+v", cfg)
	}
	if cfg.GeminiAPIKey != "" {
		t.Fatalf("expected no api key, got %q", cfg.GeminiAPIKey)
	}
}

func TestFromEnvAPIKeyFallbacks(t *testing.T) {
	testCases := []struct {
		name     string
		env      map[string]string
		expected string
	}{
		{name: "gemini key wins", env: map[string]string{"GEMINI_API_KEY": "g", "GOOGLE_API_KEY": "o", "API_KEY": "a"}, expected: "g"},
		{name: "google key", env: map[string]string{"GOOGLE_API_KEY": "o", "API_KEY": "a"}, expected: "o"},
		{name: "generic key", env: map[string]string{"API_KEY": "a"}, expected: "a"},
		{name: "blank is unset", env: map[string]string{"GEMINI_API_KEY": "  ", "API_KEY": "a"}, expected: "a"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			cfg, err := FromEnv(envOf(testCase.env))
			if err != nil {
				t.Fatalf("expected config to load, got %v", err)
			}
			if cfg.GeminiAPIKey != testCase.expected {
				t.Fatalf("expected key %q, got %q", testCase.expected, cfg.GeminiAPIKey)
			}
		})
	}
}

func TestFromEnvRejectsUnknownBackends(t *testing.T) {
	if _, err := FromEnv(envOf(map[string]string{"SAFEBUDDY_TRANSPORT": "grpc"})); err == nil {
		t.Fatalf("expected unknown transport to fail")
	}
	if _, err := FromEnv(envOf(map[string]string{"SAFEBUDDY_CAPTURE": "alsa"})); err == nil {
		t.Fatalf("expected unknown capture backend to fail")
	}
	cfg, err := FromEnv(envOf(map[string]string{"SAFEBUDDY_TRANSPORT": "WebSocket", "SAFEBUDDY_CAPTURE": "portaudio"}))
	if err != nil {
		t.Fatalf("expected config to load, got %v", err)
	}
	if cfg.Transport != TransportWebSocket || cfg.Capture != CapturePortaudio {
		t.Fatalf("unexpected backends %+v", cfg)
	}
}

func TestSystemInstructionCarriesDatabaseAndLiveSuffix(t *testing.T) {
	instruction := Config{}.SystemInstruction()

	if !strings.Contains(instruction, "+22375260052") {
		t.Fatalf("expected scam database in instruction")
	}
	if !strings.HasSuffix(instruction, LiveInstructionSuffix) {
		t.Fatalf("expected live suffix at the end of the instruction")
	}
}
