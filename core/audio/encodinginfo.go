package audio

import (
	"strconv"
	"strings"
)

const (
	DefaultSampleRate = 16000
	DefaultFormat     = "linear16"

	// OutputSampleRate is the rate of the model's spoken replies.
	OutputSampleRate = 24000
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: encodingFormat(DefaultFormat)}
}

type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

// MIMEType describes raw PCM in the form live model endpoints expect, e.g.
// "audio/pcm;rate=16000".
func (e EncodingInfo) MIMEType() string {
	return PCMMIMEType(e.SampleRate)
}

func PCMMIMEType(sampleRate int) string {
	return "audio/pcm;rate=" + strconv.Itoa(sampleRate)
}

// ParsePCMRate reads the rate parameter of a PCM MIME type and returns
// fallback when it is missing or malformed.
func ParsePCMRate(mimeType string, fallback int) int {
	for _, param := range strings.Split(mimeType, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(key, "rate") {
			continue
		}
		if rate, err := strconv.Atoi(value); err == nil && rate > 0 {
			return rate
		}
	}
	return fallback
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)
