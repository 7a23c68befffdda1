package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/semaphore"

	"github.com/Hey-Ritik/voice-translation/internal/language"
	"github.com/Hey-Ritik/voice-translation/internal/metrics"
	"github.com/Hey-Ritik/voice-translation/internal/protocol"
	"github.com/Hey-Ritik/voice-translation/internal/segment"
	"github.com/Hey-Ritik/voice-translation/internal/transcription"
	"github.com/Hey-Ritik/voice-translation/internal/translation"
)

// minTranscriptRunes filters single-character transcripts, which whisper
// produces for breaths and clicks.
const minTranscriptRunes = 2

// fallbackSourceLang is assumed when the transcription engine reports no
// detected language.
const fallbackSourceLang = "en"

// Transcriber converts a PCM utterance to text with language detection.
// An empty language hint requests auto-detection.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte, sampleRate int, lang string) (*transcription.Result, error)
}

// Config contains dispatcher configuration
type Config struct {
	MinAudioLength time.Duration // treat shorter utterances as noise
	MaxConcurrent  int64         // global pipeline concurrency across sessions
}

// Dispatcher runs utterances through transcription and translation.
// A single Dispatcher is shared by all sessions.
type Dispatcher struct {
	config      Config
	transcriber Transcriber
	translator  translation.Translator
	sem         *semaphore.Weighted
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewDispatcher creates a dispatcher over the given pipeline backends
func NewDispatcher(config Config, transcriber Transcriber, translator translation.Translator, logger *slog.Logger, m *metrics.Metrics) (*Dispatcher, error) {
	if transcriber == nil {
		return nil, fmt.Errorf("transcriber cannot be nil")
	}

	if translator == nil {
		return nil, fmt.Errorf("translator cannot be nil")
	}

	if config.MinAudioLength < 0 {
		return nil, fmt.Errorf("min audio length cannot be negative, got %v", config.MinAudioLength)
	}

	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 8
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		config:      config,
		transcriber: transcriber,
		translator:  translator,
		sem:         semaphore.NewWeighted(config.MaxConcurrent),
		logger:      logger,
		metrics:     m,
	}, nil
}

// Dispatch runs one utterance through the pipeline and returns the caption
// event to publish. Noise, unusable transcripts, and backend failures all
// still produce a caption; the text fields are empty and, for failures, the
// error field is set. The second return value is false only when there is
// nothing to publish: the utterance was empty or the context was cancelled
// while the pipeline ran.
func (d *Dispatcher) Dispatch(ctx context.Context, utt *segment.Utterance, targetLang string, sampleRate int) (protocol.CaptionEvent, bool) {
	if utt == nil || len(utt.PCM) == 0 {
		return protocol.CaptionEvent{}, false
	}

	if utt.Duration < d.config.MinAudioLength {
		d.logger.Debug("utterance below minimum audio length, treating as noise",
			slog.Duration("duration", utt.Duration),
			slog.Duration("minimum", d.config.MinAudioLength))
		return protocol.NewCaptionEvent("", "", "", language.DisplayName(""), ""), true
	}

	if d.metrics != nil {
		d.metrics.RecordDispatchStarted()
	}

	type outcome struct {
		event protocol.CaptionEvent
		ok    bool
	}

	resultCh := make(chan outcome, 1)

	go func() {
		ev, ok := d.process(ctx, utt, targetLang, sampleRate)
		resultCh <- outcome{event: ev, ok: ok}
	}()

	select {
	case res := <-resultCh:
		return res.event, res.ok
	case <-ctx.Done():
		if d.metrics != nil {
			d.metrics.RecordDispatchDiscarded()
		}
		return protocol.CaptionEvent{}, false
	}
}

// process performs the actual pipeline work
func (d *Dispatcher) process(ctx context.Context, utt *segment.Utterance, targetLang string, sampleRate int) (protocol.CaptionEvent, bool) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return protocol.CaptionEvent{}, false
	}
	defer d.sem.Release(1)

	startTime := time.Now()

	transcribeStart := time.Now()
	result, err := d.transcriber.Transcribe(ctx, utt.PCM, sampleRate, "")
	if d.metrics != nil {
		d.metrics.RecordTranscription(err == nil, time.Since(transcribeStart).Seconds())
	}
	if err != nil {
		d.logger.Error("transcription failed",
			slog.Duration("utterance", utt.Duration),
			slog.String("error", err.Error()))
		return protocol.NewCaptionEvent("", "", "", "Unknown", "transcription failed"), true
	}

	detected := result.DetectedLanguage

	text := result.Text
	if utf8.RuneCountInString(text) < minTranscriptRunes {
		d.logger.Debug("transcript too short, publishing empty caption",
			slog.String("text", text))
		return protocol.NewCaptionEvent("", "", detected,
			language.DisplayName(detected), ""), true
	}

	source := detected
	if source == "" {
		source = fallbackSourceLang
	}

	translateStart := time.Now()
	translated, err := d.translator.Translate(ctx, text, source, targetLang)
	if d.metrics != nil {
		d.metrics.RecordTranslation(err == nil, time.Since(translateStart).Seconds())
	}
	if err != nil {
		d.logger.Error("translation failed",
			slog.String("source", source),
			slog.String("target", targetLang),
			slog.String("error", err.Error()))
		return protocol.NewCaptionEvent("", "", detected,
			language.DisplayName(detected), "translation failed"), true
	}

	if translated == "" {
		translated = text
	}

	if d.metrics != nil {
		d.metrics.RecordDispatchDone(time.Since(startTime).Seconds())
	}

	d.logger.Debug("utterance dispatched",
		slog.String("detected_lang", detected),
		slog.String("target_lang", targetLang),
		slog.Duration("utterance", utt.Duration),
		slog.Duration("elapsed", time.Since(startTime)))

	return protocol.NewCaptionEvent(text, translated, detected,
		language.DisplayName(detected), ""), true
}
