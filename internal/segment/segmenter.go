package segment

import (
	"fmt"
	"time"

	"github.com/Hey-Ritik/voice-translation/internal/audio"
	"github.com/Hey-Ritik/voice-translation/internal/vad"
)

// State represents the segmenter state machine state
type State int

const (
	// StateIdle means nothing has been buffered yet.
	StateIdle State = iota

	// StateBuffering means audio is accumulating with no silence run active.
	StateBuffering

	// StateSilencePending means audio is accumulating and a contiguous run of
	// silent chunks is being timed. If it lasts long enough and the buffer
	// has reached the minimum duration, the utterance completes.
	StateSilencePending
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuffering:
		return "buffering"
	case StateSilencePending:
		return "silence_pending"
	default:
		return "unknown"
	}
}

// TriggerCause records why an utterance was emitted
type TriggerCause string

const (
	// CauseSilence means the silence window elapsed after speech.
	CauseSilence TriggerCause = "silence"

	// CauseMaxDuration means the buffer hit its maximum length.
	CauseMaxDuration TriggerCause = "max_duration"
)

// Config contains segmenter timing configuration
type Config struct {
	SilenceDuration time.Duration // silence run that completes an utterance
	MinUtterance    time.Duration // silence cannot trigger below this buffered duration
	MaxUtterance    time.Duration // force emission past this duration
}

// Validate checks the timing configuration
func (c Config) Validate() error {
	if c.SilenceDuration < 0 {
		return fmt.Errorf("silence duration cannot be negative, got %v", c.SilenceDuration)
	}

	if c.MinUtterance < 0 {
		return fmt.Errorf("min utterance cannot be negative, got %v", c.MinUtterance)
	}

	if c.MaxUtterance <= 0 {
		return fmt.Errorf("max utterance must be positive, got %v", c.MaxUtterance)
	}

	if c.MaxUtterance <= c.MinUtterance {
		return fmt.Errorf("max utterance (%v) must be greater than min utterance (%v)",
			c.MaxUtterance, c.MinUtterance)
	}

	return nil
}

// Utterance is one complete span of buffered speech ready for transcription
type Utterance struct {
	PCM       []byte
	Duration  time.Duration
	CreatedAt time.Time
	Cause     TriggerCause
}

// Stats represents segmenter statistics
type Stats struct {
	State            string        `json:"state"`
	BufferedDuration time.Duration `json:"buffered_duration"`
	TotalUtterances  uint64        `json:"total_utterances"`
}

// Segmenter accumulates PCM chunks into utterances. It is owned by a single
// session goroutine and is not safe for concurrent use.
type Segmenter struct {
	config     Config
	detector   *vad.Detector
	sampleRate int

	state        State
	buffer       []byte
	silenceStart time.Time

	totalUtterances uint64
}

// NewSegmenter creates a segmenter with the given timing configuration and
// silence detector.
func NewSegmenter(config Config, detector *vad.Detector, sampleRate int) (*Segmenter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid segmenter config: %w", err)
	}

	if detector == nil {
		return nil, fmt.Errorf("detector cannot be nil")
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	return &Segmenter{
		config:     config,
		detector:   detector,
		sampleRate: sampleRate,
		state:      StateIdle,
	}, nil
}

// Push feeds one PCM chunk into the state machine. It returns a completed
// utterance, or nil if more audio is needed. The caller supplies the current
// time so silence windows are measured against real chunk arrival.
//
// Every chunk is buffered, even sub-threshold audio while idle: quiet
// speakers still accumulate toward the max-duration trigger, and short
// bursts stay buffered until trailing silence pads them past the minimum.
func (s *Segmenter) Push(chunk []byte, now time.Time) *Utterance {
	chunk = audio.AlignSamples(chunk)
	if len(chunk) == 0 {
		return nil
	}

	s.buffer = append(s.buffer, chunk...)

	if s.detector.Classify(chunk) {
		if s.state != StateSilencePending {
			s.state = StateSilencePending
			s.silenceStart = now
		} else if now.Sub(s.silenceStart) >= s.config.SilenceDuration &&
			s.BufferedDuration() >= s.config.MinUtterance {
			return s.complete(now, CauseSilence)
		}
	} else {
		s.state = StateBuffering
		s.silenceStart = time.Time{}
	}

	if s.BufferedDuration() >= s.config.MaxUtterance {
		return s.complete(now, CauseMaxDuration)
	}

	return nil
}

// complete detaches the buffer as an utterance and resets to idle
func (s *Segmenter) complete(now time.Time, cause TriggerCause) *Utterance {
	pcm := s.buffer
	duration := s.BufferedDuration()

	s.buffer = nil
	s.state = StateIdle
	s.silenceStart = time.Time{}

	s.totalUtterances++

	return &Utterance{
		PCM:       pcm,
		Duration:  duration,
		CreatedAt: now,
		Cause:     cause,
	}
}

// State returns the current state machine state
func (s *Segmenter) State() State {
	return s.state
}

// BufferedBytes returns the number of buffered PCM bytes
func (s *Segmenter) BufferedBytes() int {
	return len(s.buffer)
}

// BufferedDuration returns the duration of the buffered audio
func (s *Segmenter) BufferedDuration() time.Duration {
	return audio.Duration(len(s.buffer), s.sampleRate)
}

// SetSampleRate updates the sample rate used for duration accounting. The
// current buffer is dropped because its byte-to-time mapping no longer holds.
func (s *Segmenter) SetSampleRate(sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	if sampleRate != s.sampleRate {
		s.sampleRate = sampleRate
		s.Reset()
	}

	return nil
}

// Reset discards the buffer and returns the state machine to idle
func (s *Segmenter) Reset() {
	s.buffer = nil
	s.state = StateIdle
	s.silenceStart = time.Time{}
}

// GetStats returns current segmenter statistics
func (s *Segmenter) GetStats() Stats {
	return Stats{
		State:            s.state.String(),
		BufferedDuration: s.BufferedDuration(),
		TotalUtterances:  s.totalUtterances,
	}
}
