package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// DecodeError reports an inbound audio payload that could not be turned back
// into PCM.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to decode audio: %s: %v", e.Reason, e.Err)
	}
	return "failed to decode audio: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Buffer is de-interleaved float audio, one slice per channel, samples in
// [-1, 1].
type Buffer struct {
	SampleRate int
	Channels   [][]float32
}

func (b Buffer) Frames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration is the playback length in seconds.
func (b Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// EncodeFrame returns the transport-safe text form of raw little-endian PCM16
// bytes.
func EncodeFrame(pcm []byte) string {
	return base64.StdEncoding.EncodeToString(pcm)
}

// EncodeSamples encodes PCM16 samples the same way EncodeFrame does once
// they are laid out little-endian.
func EncodeSamples(samples []int16) string {
	pcm := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(sample))
	}
	return EncodeFrame(pcm)
}

func DecodeFrame(text string) ([]byte, error) {
	pcm, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, &DecodeError{Reason: "malformed base64 payload", Err: err}
	}
	return pcm, nil
}

// PCM16ToFloat de-interleaves little-endian PCM16 into a Buffer. The wire
// carries no header so sampleRate and channels come from the caller. Samples
// that do not complete a frame are dropped.
func PCM16ToFloat(pcm []byte, sampleRate, channels int) (Buffer, error) {
	if channels <= 0 {
		return Buffer{}, &DecodeError{Reason: fmt.Sprintf("invalid channel count %d", channels)}
	}
	if len(pcm)%2 != 0 {
		return Buffer{}, &DecodeError{Reason: fmt.Sprintf("odd PCM16 byte count %d", len(pcm))}
	}

	frames := len(pcm) / 2 / channels
	buffer := Buffer{SampleRate: sampleRate, Channels: make([][]float32, channels)}
	for ch := range buffer.Channels {
		buffer.Channels[ch] = make([]float32, frames)
	}

	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			offset := (i*channels + ch) * 2
			sample := int16(binary.LittleEndian.Uint16(pcm[offset:]))
			buffer.Channels[ch][i] = float32(sample) / 32768.0
		}
	}

	return buffer, nil
}

// FloatToPCM16 quantizes samples to little-endian PCM16. Values are clamped to
// [-1, 1]; negatives scale by 32768 and the rest by 32767 so the result stays
// in range.
func FloatToPCM16(samples []float32) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(quantize(s)))
	}
	return pcm
}

func quantize(s float32) int16 {
	if math.IsNaN(float64(s)) {
		return 0
	}
	s = max(-1, min(1, s))
	if s < 0 {
		return int16(s * 32768)
	}
	return int16(s * 32767)
}

// BytesToSamples reads little-endian PCM16 into floats in [-1, 1]. A trailing
// odd byte is ignored.
func BytesToSamples(pcm []byte) []float32 {
	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768.0
	}
	return samples
}
