package audio

import "math"

// DefaultLevelBands matches the number of bars the live overlay draws.
const DefaultLevelBands = 15

// Levels splits samples into equal bands and returns the RMS of each, scaled
// to [0, 1]. Bands beyond the sample count are reported as silence.
func Levels(samples []float32, bands int) []float64 {
	if bands <= 0 {
		return nil
	}

	levels := make([]float64, bands)
	if len(samples) == 0 {
		return levels
	}

	size := len(samples) / bands
	if size == 0 {
		size = 1
	}
	for band := range levels {
		start := band * size
		if start >= len(samples) {
			break
		}
		end := start + size
		if band == bands-1 || end > len(samples) {
			end = len(samples)
		}
		levels[band] = min(1, rms(samples[start:end]))
	}
	return levels
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Resample converts mono samples between rates by linear interpolation.
func Resample(samples []float32, from, to int) []float32 {
	if from == to || from <= 0 || to <= 0 || len(samples) == 0 {
		return samples
	}

	n := int(int64(len(samples)) * int64(to) / int64(from))
	out := make([]float32, n)
	step := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
	}
	return out
}
