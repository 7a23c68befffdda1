package audio

import (
	"encoding/binary"
	"math"
	"time"
)

const (
	// BytesPerSample is fixed at 2 for 16-bit signed little-endian PCM.
	BytesPerSample = 2

	// maxSampleValue normalizes int16 samples into the [-1, 1] range.
	maxSampleValue = 32768.0
)

// RMS computes the root-mean-square amplitude of a 16-bit signed little-endian
// PCM buffer, normalized to the [0, 1] range. A trailing odd byte is ignored.
// Empty or undersized input returns 0.
func RMS(pcm []byte) float64 {
	numSamples := len(pcm) / BytesPerSample
	if numSamples == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < numSamples; i++ {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*BytesPerSample:]))
		v := float64(sample) / maxSampleValue
		sum += v * v
	}

	return math.Sqrt(sum / float64(numSamples))
}

// Duration returns the playback duration of a PCM16 mono byte span at the
// given sample rate. Returns 0 for a non-positive sample rate.
func Duration(numBytes int, sampleRate int) time.Duration {
	if sampleRate <= 0 || numBytes <= 0 {
		return 0
	}
	samples := numBytes / BytesPerSample
	return time.Duration(float64(samples) / float64(sampleRate) * float64(time.Second))
}

// BytesForDuration returns the number of PCM16 mono bytes covering d at the
// given sample rate, rounded down to a whole sample.
func BytesForDuration(d time.Duration, sampleRate int) int {
	if sampleRate <= 0 || d <= 0 {
		return 0
	}
	samples := int(d.Seconds() * float64(sampleRate))
	return samples * BytesPerSample
}

// AlignSamples truncates a PCM byte span to a whole number of 16-bit samples.
func AlignSamples(pcm []byte) []byte {
	return pcm[:len(pcm)/BytesPerSample*BytesPerSample]
}
