package segment

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/Hey-Ritik/voice-translation/internal/vad"
)

const (
	testSampleRate = 16000
	chunkMS        = 100
	chunkBytes     = testSampleRate * chunkMS / 1000 * 2
)

var testConfig = Config{
	SilenceDuration: 600 * time.Millisecond,
	MinUtterance:    time.Second,
	MaxUtterance:    6 * time.Second,
}

// speechChunk returns 100ms of constant-amplitude audio well above the
// silence threshold.
func speechChunk() []byte {
	return toneChunk(8000)
}

// toneChunk returns 100ms of constant-amplitude audio
func toneChunk(amplitude int16) []byte {
	pcm := make([]byte, chunkBytes)
	for i := 0; i < len(pcm); i += 2 {
		binary.LittleEndian.PutUint16(pcm[i:], uint16(amplitude))
	}
	return pcm
}

// silentChunk returns 100ms of zeros.
func silentChunk() []byte {
	return make([]byte, chunkBytes)
}

func newTestSegmenter(t *testing.T) *Segmenter {
	t.Helper()

	detector, err := vad.NewDetector(vad.DefaultThreshold)
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}

	seg, err := NewSegmenter(testConfig, detector, testSampleRate)
	if err != nil {
		t.Fatalf("Failed to create segmenter: %v", err)
	}

	return seg
}

// clock produces timestamps advancing 100ms per chunk
type clock struct {
	base time.Time
	step int
}

func newClock() *clock {
	return &clock{base: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) next() time.Time {
	now := c.base.Add(time.Duration(c.step) * chunkMS * time.Millisecond)
	c.step++
	return now
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		expectErr bool
	}{
		{
			name:      "valid",
			config:    testConfig,
			expectErr: false,
		},
		{
			name: "negative silence duration",
			config: Config{
				SilenceDuration: -time.Second,
				MinUtterance:    time.Second,
				MaxUtterance:    6 * time.Second,
			},
			expectErr: true,
		},
		{
			name: "zero max utterance",
			config: Config{
				SilenceDuration: 600 * time.Millisecond,
				MinUtterance:    time.Second,
			},
			expectErr: true,
		},
		{
			name: "max below min",
			config: Config{
				SilenceDuration: 600 * time.Millisecond,
				MinUtterance:    6 * time.Second,
				MaxUtterance:    time.Second,
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectErr && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestSilenceBuffersFromIdle(t *testing.T) {
	seg := newTestSegmenter(t)
	clk := newClock()

	// Every chunk is buffered, silent or not. Pure silence completes once
	// the silence window has elapsed and the buffer reaches the minimum:
	// chunk 11 arrives with 1.0s of silence elapsed and 1.1s buffered.
	var utt *Utterance
	pushed := 0
	for i := 0; i < 20 && utt == nil; i++ {
		utt = seg.Push(silentChunk(), clk.next())
		pushed++
	}

	if utt == nil {
		t.Fatal("Expected utterance from buffered silence")
	}

	if pushed != 11 {
		t.Errorf("Expected trigger on chunk 11, got %d", pushed)
	}

	if utt.Cause != CauseSilence {
		t.Errorf("Expected cause %s, got %s", CauseSilence, utt.Cause)
	}

	if utt.Duration != 1100*time.Millisecond {
		t.Errorf("Expected duration 1.1s, got %v", utt.Duration)
	}

	if seg.BufferedBytes() != 0 {
		t.Errorf("Expected empty buffer after emission, got %d bytes", seg.BufferedBytes())
	}
}

func TestQuietAudioReachesMaxDuration(t *testing.T) {
	seg := newTestSegmenter(t)
	clk := newClock()

	// Amplitude 300 sits just under the 0.01 RMS threshold, so every chunk
	// classifies silent. The audio must still accumulate and force out an
	// utterance at the cap so transcription gets a chance at it.
	var utt *Utterance
	pushed := 0
	for i := 0; i < 100 && utt == nil; i++ {
		utt = seg.Push(toneChunk(300), clk.next())
		pushed++
	}

	if utt == nil {
		t.Fatal("Expected utterance from sub-threshold audio")
	}

	// The silence path fires first: 600ms elapsed with 1.1s buffered
	if utt.Cause != CauseSilence {
		t.Errorf("Expected cause %s, got %s", CauseSilence, utt.Cause)
	}

	if seg.BufferedBytes() != 0 {
		t.Errorf("Expected empty buffer after emission, got %d bytes", seg.BufferedBytes())
	}

	// With the silence window disabled entirely, the max-duration cap is
	// what bounds sub-threshold audio.
	detector, err := vad.NewDetector(vad.DefaultThreshold)
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}

	capped, err := NewSegmenter(Config{
		SilenceDuration: time.Hour,
		MinUtterance:    time.Second,
		MaxUtterance:    6 * time.Second,
	}, detector, testSampleRate)
	if err != nil {
		t.Fatalf("Failed to create segmenter: %v", err)
	}

	utt = nil
	pushed = 0
	for i := 0; i < 100 && utt == nil; i++ {
		utt = capped.Push(toneChunk(300), clk.next())
		pushed++
	}

	if utt == nil {
		t.Fatal("Expected forced utterance from sub-threshold audio")
	}

	if utt.Cause != CauseMaxDuration {
		t.Errorf("Expected cause %s, got %s", CauseMaxDuration, utt.Cause)
	}

	if pushed != 60 {
		t.Errorf("Expected trigger on chunk 60, got %d", pushed)
	}

	if utt.Duration != 6*time.Second {
		t.Errorf("Expected duration 6s, got %v", utt.Duration)
	}
}

func TestSilenceTriggeredUtterance(t *testing.T) {
	seg := newTestSegmenter(t)
	clk := newClock()

	// 1.0s of speech
	for i := 0; i < 10; i++ {
		if utt := seg.Push(speechChunk(), clk.next()); utt != nil {
			t.Fatal("Utterance emitted during speech")
		}
	}

	if seg.State() != StateBuffering {
		t.Fatalf("Expected buffering state, got %s", seg.State())
	}

	// Silence: the window elapses once 600ms have passed since the first
	// silent chunk
	var utt *Utterance
	for i := 0; i < 10 && utt == nil; i++ {
		utt = seg.Push(silentChunk(), clk.next())
	}

	if utt == nil {
		t.Fatal("Expected utterance after silence window")
	}

	if utt.Cause != CauseSilence {
		t.Errorf("Expected cause %s, got %s", CauseSilence, utt.Cause)
	}

	// 10 speech chunks plus 7 silent chunks (silence measured from the
	// first silent push)
	expected := 1700 * time.Millisecond
	if utt.Duration != expected {
		t.Errorf("Expected duration %v, got %v", expected, utt.Duration)
	}

	if len(utt.PCM) != 17*chunkBytes {
		t.Errorf("Expected %d PCM bytes, got %d", 17*chunkBytes, len(utt.PCM))
	}

	if seg.State() != StateIdle {
		t.Errorf("Expected idle state after emission, got %s", seg.State())
	}

	if seg.BufferedBytes() != 0 {
		t.Errorf("Expected empty buffer after emission, got %d bytes", seg.BufferedBytes())
	}
}

func TestShortBurstPaddedToMinimum(t *testing.T) {
	seg := newTestSegmenter(t)
	clk := newClock()

	// A 0.2s burst is below the minimum when the silence window elapses.
	// The buffer is kept, not discarded: trailing silence pads it until the
	// minimum is met and the burst is emitted.
	for i := 0; i < 2; i++ {
		if utt := seg.Push(speechChunk(), clk.next()); utt != nil {
			t.Fatal("Utterance emitted during speech")
		}
	}

	var utt *Utterance
	pushed := 0
	for i := 0; i < 10 && utt == nil; i++ {
		utt = seg.Push(silentChunk(), clk.next())
		pushed++
	}

	if utt == nil {
		t.Fatal("Expected the burst to be emitted once padded")
	}

	// 7th silent chunk has the window elapsed but only 0.9s buffered; the
	// 8th reaches the 1.0s minimum
	if pushed != 8 {
		t.Errorf("Expected trigger on silent chunk 8, got %d", pushed)
	}

	if utt.Cause != CauseSilence {
		t.Errorf("Expected cause %s, got %s", CauseSilence, utt.Cause)
	}

	if utt.Duration != time.Second {
		t.Errorf("Expected duration 1s, got %v", utt.Duration)
	}

	if len(utt.PCM) != 10*chunkBytes {
		t.Errorf("Expected %d PCM bytes, got %d", 10*chunkBytes, len(utt.PCM))
	}

	if seg.State() != StateIdle {
		t.Errorf("Expected idle state after emission, got %s", seg.State())
	}

	stats := seg.GetStats()
	if stats.TotalUtterances != 1 {
		t.Errorf("Expected 1 emitted utterance, got %d", stats.TotalUtterances)
	}
}

func TestSpeechResumesDuringSilence(t *testing.T) {
	seg := newTestSegmenter(t)
	clk := newClock()

	for i := 0; i < 10; i++ {
		seg.Push(speechChunk(), clk.next())
	}

	// 400ms of silence, below the window
	for i := 0; i < 4; i++ {
		if utt := seg.Push(silentChunk(), clk.next()); utt != nil {
			t.Fatal("Utterance emitted before silence window elapsed")
		}
	}

	if seg.State() != StateSilencePending {
		t.Fatalf("Expected silence pending state, got %s", seg.State())
	}

	// Speech resumes: the silence run resets
	if utt := seg.Push(speechChunk(), clk.next()); utt != nil {
		t.Fatal("Utterance emitted on speech resume")
	}

	if seg.State() != StateBuffering {
		t.Errorf("Expected buffering state after resume, got %s", seg.State())
	}

	// A fresh full silence window is needed now
	var utt *Utterance
	for i := 0; i < 10 && utt == nil; i++ {
		utt = seg.Push(silentChunk(), clk.next())
	}

	if utt == nil {
		t.Fatal("Expected utterance after second silence window")
	}

	// 10 + 4 silent + 1 speech + 7 silent chunks
	expected := 2200 * time.Millisecond
	if utt.Duration != expected {
		t.Errorf("Expected duration %v, got %v", expected, utt.Duration)
	}
}

func TestMaxDurationTrigger(t *testing.T) {
	seg := newTestSegmenter(t)
	clk := newClock()

	var utt *Utterance
	pushed := 0
	for i := 0; i < 100 && utt == nil; i++ {
		utt = seg.Push(speechChunk(), clk.next())
		pushed++
	}

	if utt == nil {
		t.Fatal("Expected forced utterance during continuous speech")
	}

	if utt.Cause != CauseMaxDuration {
		t.Errorf("Expected cause %s, got %s", CauseMaxDuration, utt.Cause)
	}

	if utt.Duration != testConfig.MaxUtterance {
		t.Errorf("Expected duration %v, got %v", testConfig.MaxUtterance, utt.Duration)
	}

	if pushed != 60 {
		t.Errorf("Expected trigger on chunk 60, got %d", pushed)
	}

	// Buffering continues cleanly after the forced emission
	if seg.State() != StateIdle {
		t.Errorf("Expected idle state after emission, got %s", seg.State())
	}
}

func TestContinuousSpeechEmitsRepeatedly(t *testing.T) {
	seg := newTestSegmenter(t)
	clk := newClock()

	var utterances []*Utterance
	for i := 0; i < 180; i++ {
		if utt := seg.Push(speechChunk(), clk.next()); utt != nil {
			utterances = append(utterances, utt)
		}
	}

	// 18s of continuous speech at a 6s cap yields three utterances
	if len(utterances) != 3 {
		t.Fatalf("Expected 3 utterances, got %d", len(utterances))
	}

	for i, utt := range utterances {
		if utt.Cause != CauseMaxDuration {
			t.Errorf("Utterance %d: expected cause %s, got %s", i, CauseMaxDuration, utt.Cause)
		}
		if utt.Duration != testConfig.MaxUtterance {
			t.Errorf("Utterance %d: expected duration %v, got %v", i, testConfig.MaxUtterance, utt.Duration)
		}
	}

	stats := seg.GetStats()
	if stats.TotalUtterances != 3 {
		t.Errorf("Expected 3 total utterances in stats, got %d", stats.TotalUtterances)
	}
}

func TestOddByteChunkAligned(t *testing.T) {
	seg := newTestSegmenter(t)
	clk := newClock()

	chunk := append(speechChunk(), 0xFF)
	seg.Push(chunk, clk.next())

	if seg.BufferedBytes()%2 != 0 {
		t.Errorf("Buffer not sample aligned: %d bytes", seg.BufferedBytes())
	}

	if seg.BufferedBytes() != chunkBytes {
		t.Errorf("Expected %d buffered bytes, got %d", chunkBytes, seg.BufferedBytes())
	}
}

func TestEmptyChunkIgnored(t *testing.T) {
	seg := newTestSegmenter(t)
	clk := newClock()

	if utt := seg.Push(nil, clk.next()); utt != nil {
		t.Error("Nil chunk produced an utterance")
	}

	if utt := seg.Push([]byte{0x01}, clk.next()); utt != nil {
		t.Error("Single byte chunk produced an utterance")
	}

	if seg.BufferedBytes() != 0 {
		t.Errorf("Expected empty buffer, got %d bytes", seg.BufferedBytes())
	}
}

func TestSetSampleRateResets(t *testing.T) {
	seg := newTestSegmenter(t)
	clk := newClock()

	seg.Push(speechChunk(), clk.next())

	if seg.BufferedBytes() == 0 {
		t.Fatal("Expected buffered audio")
	}

	if err := seg.SetSampleRate(8000); err != nil {
		t.Fatalf("SetSampleRate failed: %v", err)
	}

	if seg.BufferedBytes() != 0 {
		t.Error("Sample rate change should drop the buffer")
	}

	if seg.State() != StateIdle {
		t.Errorf("Expected idle state after reset, got %s", seg.State())
	}

	if err := seg.SetSampleRate(-1); err == nil {
		t.Error("Expected error for negative sample rate")
	}
}

func TestSetSampleRateUnchangedKeepsBuffer(t *testing.T) {
	seg := newTestSegmenter(t)
	clk := newClock()

	seg.Push(speechChunk(), clk.next())

	if err := seg.SetSampleRate(testSampleRate); err != nil {
		t.Fatalf("SetSampleRate failed: %v", err)
	}

	if seg.BufferedBytes() != chunkBytes {
		t.Error("Unchanged sample rate should keep the buffer")
	}
}

func TestReset(t *testing.T) {
	seg := newTestSegmenter(t)
	clk := newClock()

	seg.Push(speechChunk(), clk.next())
	seg.Reset()

	if seg.BufferedBytes() != 0 {
		t.Error("Reset should drop the buffer")
	}

	if seg.State() != StateIdle {
		t.Errorf("Expected idle state after reset, got %s", seg.State())
	}
}
