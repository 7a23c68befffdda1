package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Hey-Ritik/voice-translation/internal/protocol"
	"github.com/Hey-Ritik/voice-translation/internal/segment"
)

// eventBuffer bounds the outbound event queue per session. A stalled client
// backpressures the read loop once the queue fills.
const eventBuffer = 16

// Dispatcher runs an utterance through the caption pipeline. The boolean is
// false when nothing should be published.
type Dispatcher interface {
	Dispatch(ctx context.Context, utt *segment.Utterance, targetLang string, sampleRate int) (protocol.CaptionEvent, bool)
}

// Session represents one active WebSocket translation session
type Session struct {
	ID           string
	StartTime    time.Time
	LastActivity time.Time

	targetLang string
	sampleRate int
	segmenter  *segment.Segmenter

	// Outbound events, drained by the connection writer
	events chan protocol.Event

	// Counters
	messagesReceived  uint64
	utterancesEmitted uint64
	captionsSent      uint64

	ctx    context.Context
	cancel context.CancelFunc

	manager *Manager

	mu sync.RWMutex
}

// SessionInfo represents session information for monitoring APIs
type SessionInfo struct {
	ID                string        `json:"id"`
	TargetLang        string        `json:"target_lang"`
	SampleRate        int           `json:"sample_rate"`
	StartTime         time.Time     `json:"start_time"`
	LastActivity      time.Time     `json:"last_activity"`
	Duration          time.Duration `json:"duration"`
	State             string        `json:"state"`
	MessagesReceived  uint64        `json:"messages_received"`
	UtterancesEmitted uint64        `json:"utterances_emitted"`
	CaptionsSent      uint64        `json:"captions_sent"`
}

// Events returns the outbound event stream for this session. The channel is
// never closed; consumers should also select on Done.
func (s *Session) Events() <-chan protocol.Event {
	return s.events
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Cancel ends the session, stopping any in-flight dispatch and waking the
// event consumer. RemoveSession also cancels; calling both is safe.
func (s *Session) Cancel() {
	s.cancel()
}

// TargetLang returns the current caption target language
func (s *Session) TargetLang() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.targetLang
}

// SampleRate returns the current PCM sample rate
func (s *Session) SampleRate() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sampleRate
}

// HandleMessage processes one inbound WebSocket message. Protocol errors are
// reported to the client as error events; they never close the session. When
// a message completes an utterance the call returns only after its caption
// has been published, so the caller's read loop paces the pipeline.
func (s *Session) HandleMessage(raw []byte) {
	s.touch()

	if s.manager.metrics != nil {
		s.manager.metrics.RecordMessageReceived()
	}

	s.mu.Lock()
	s.messagesReceived++
	s.mu.Unlock()

	msg, err := protocol.ParseClientMessage(raw)
	if err != nil {
		s.protocolError("Invalid message format")
		return
	}

	s.applySettings(msg)

	pcm, err := msg.DecodeAudio()
	if err != nil {
		switch {
		case errors.Is(err, protocol.ErrMissingAudio):
			s.protocolError("Missing audio data")
		default:
			s.protocolError("Invalid audio encoding")
		}
		return
	}

	utt := s.segmenter.Push(pcm, s.manager.clock())
	if utt == nil {
		return
	}

	s.mu.Lock()
	s.utterancesEmitted++
	s.mu.Unlock()

	if s.manager.metrics != nil {
		s.manager.metrics.RecordUtterance(string(utt.Cause), utt.Duration.Seconds(), len(utt.PCM))
	}

	s.manager.logger.Debug("utterance complete",
		slog.String("session_id", s.ID),
		slog.String("cause", string(utt.Cause)),
		slog.Duration("duration", utt.Duration),
		slog.Int("bytes", len(utt.PCM)))

	s.dispatch(utt)
}

// applySettings updates the target language and sample rate from an inbound
// message. A sample rate change drops the current buffer.
func (s *Session) applySettings(msg *protocol.ClientMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.TargetLang != "" && msg.TargetLang != s.targetLang {
		s.manager.logger.Debug("target language changed",
			slog.String("session_id", s.ID),
			slog.String("from", s.targetLang),
			slog.String("to", msg.TargetLang))
		s.targetLang = msg.TargetLang
	}

	if msg.SampleRate > 0 && msg.SampleRate != s.sampleRate {
		if err := s.segmenter.SetSampleRate(msg.SampleRate); err != nil {
			s.manager.logger.Warn("rejected sample rate update",
				slog.String("session_id", s.ID),
				slog.Int("sample_rate", msg.SampleRate),
				slog.String("error", err.Error()))
			return
		}
		s.sampleRate = msg.SampleRate
	}
}

// dispatch runs the utterance through the pipeline and publishes the caption.
// The call is awaited, so per session at most one dispatch is ever in flight
// and captions publish in utterance order. The pipeline itself runs on its
// own goroutine inside the dispatcher, gated by the global concurrency cap.
func (s *Session) dispatch(utt *segment.Utterance) {
	s.mu.RLock()
	targetLang := s.targetLang
	sampleRate := s.sampleRate
	s.mu.RUnlock()

	ev, ok := s.manager.dispatcher.Dispatch(s.ctx, utt, targetLang, sampleRate)
	if !ok {
		return
	}

	s.mu.Lock()
	s.captionsSent++
	s.mu.Unlock()

	s.emit(ev)
}

// protocolError reports a malformed message back to the client
func (s *Session) protocolError(message string) {
	if s.manager.metrics != nil {
		s.manager.metrics.RecordProtocolError()
	}
	s.manager.logger.Warn("protocol error",
		slog.String("session_id", s.ID),
		slog.String("message", message))
	s.emit(protocol.NewErrorEvent(message))
}

// emit queues an outbound event. A full queue blocks, backpressuring the
// read loop until the writer drains; events are lost only when the session
// ends first.
func (s *Session) emit(ev protocol.Event) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

// touch updates the last activity time
func (s *Session) touch() {
	s.mu.Lock()
	s.LastActivity = s.manager.clock()
	s.mu.Unlock()
}

// GetSessionInfo returns a monitoring snapshot of the session
func (s *Session) GetSessionInfo() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return SessionInfo{
		ID:                s.ID,
		TargetLang:        s.targetLang,
		SampleRate:        s.sampleRate,
		StartTime:         s.StartTime,
		LastActivity:      s.LastActivity,
		Duration:          s.manager.clock().Sub(s.StartTime),
		State:             s.segmenter.State().String(),
		MessagesReceived:  s.messagesReceived,
		UtterancesEmitted: s.utterancesEmitted,
		CaptionsSent:      s.captionsSent,
	}
}
