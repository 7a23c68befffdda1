package vad

import (
	"fmt"
	"sync"
	"time"

	"github.com/Hey-Ritik/voice-translation/internal/audio"
)

// DefaultThreshold is the normalized RMS amplitude below which a chunk is
// considered silent. Tuned for close-mic browser capture.
const DefaultThreshold = 0.01

// Detector classifies audio chunks as silent or active using RMS energy.
// Classification never fails: empty or malformed input (odd byte count, zero
// samples) is treated as silence so segmentation cannot stall on a decode
// problem.
type Detector struct {
	threshold float64

	// Statistics
	totalChunks   uint64
	silentChunks  uint64
	lastProcessed time.Time

	mu sync.RWMutex
}

// DetectorStats represents detector statistics
type DetectorStats struct {
	Threshold         float64   `json:"threshold"`
	TotalChunks       uint64    `json:"total_chunks"`
	SilentChunks      uint64    `json:"silent_chunks"`
	SilencePercentage float64   `json:"silence_percentage"`
	LastProcessed     time.Time `json:"last_processed"`
}

// NewDetector creates a new silence detector with the given normalized RMS
// threshold.
func NewDetector(threshold float64) (*Detector, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold must be between 0 and 1, got %f", threshold)
	}

	return &Detector{threshold: threshold}, nil
}

// Classify reports whether the chunk is silent. The chunk is interpreted as
// 16-bit signed little-endian mono samples; a chunk is silent iff its
// normalized RMS amplitude is below the threshold. Empty input is silent.
func (d *Detector) Classify(chunk []byte) bool {
	rms := audio.RMS(chunk)

	d.mu.Lock()
	d.totalChunks++
	silent := rms < d.threshold
	if silent {
		d.silentChunks++
	}
	d.lastProcessed = time.Now()
	d.mu.Unlock()

	return silent
}

// Threshold returns the current silence threshold.
func (d *Detector) Threshold() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.threshold
}

// UpdateThreshold updates the silence threshold.
func (d *Detector) UpdateThreshold(threshold float64) error {
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1, got %f", threshold)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.threshold = threshold
	return nil
}

// GetStats returns current detector statistics
func (d *Detector) GetStats() DetectorStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	silencePercentage := float64(0)
	if d.totalChunks > 0 {
		silencePercentage = float64(d.silentChunks) / float64(d.totalChunks) * 100
	}

	return DetectorStats{
		Threshold:         d.threshold,
		TotalChunks:       d.totalChunks,
		SilentChunks:      d.silentChunks,
		SilencePercentage: silencePercentage,
		LastProcessed:     d.lastProcessed,
	}
}
