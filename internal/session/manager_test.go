package session

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Hey-Ritik/voice-translation/internal/protocol"
	"github.com/Hey-Ritik/voice-translation/internal/segment"
)

const (
	testSampleRate = 16000
	chunkMS        = 100
	chunkBytes     = testSampleRate * chunkMS / 1000 * 2
)

var testSegmenterConfig = segment.Config{
	SilenceDuration: 600 * time.Millisecond,
	MinUtterance:    time.Second,
	MaxUtterance:    6 * time.Second,
}

// fakeClock is an injectable clock advanced manually by tests
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeDispatcher struct {
	caption protocol.CaptionEvent
	ok      bool

	mu         sync.Mutex
	calls      int
	lastTarget string
	lastRate   int
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, utt *segment.Utterance, targetLang string, sampleRate int) (protocol.CaptionEvent, bool) {
	d.mu.Lock()
	d.calls++
	d.lastTarget = targetLang
	d.lastRate = sampleRate
	d.mu.Unlock()

	return d.caption, d.ok
}

func (d *fakeDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// orderedDispatcher numbers its captions so tests can assert publish order
type orderedDispatcher struct {
	mu    sync.Mutex
	calls int
}

func (d *orderedDispatcher) Dispatch(ctx context.Context, utt *segment.Utterance, targetLang string, sampleRate int) (protocol.CaptionEvent, bool) {
	d.mu.Lock()
	d.calls++
	n := d.calls
	d.mu.Unlock()

	original := fmt.Sprintf("caption-%d", n)
	return protocol.NewCaptionEvent(original, original, "en", "English", ""), true
}

func newTestManager(t *testing.T, dispatcher Dispatcher, clk *fakeClock) *Manager {
	t.Helper()

	mgr, err := NewManager(ManagerConfig{
		SampleRate:       testSampleRate,
		ChunkSizeMS:      chunkMS,
		SilenceThreshold: 0.01,
		Segmenter:        testSegmenterConfig,
		MaxSessions:      4,
		IdleTimeout:      5 * time.Minute,
		Clock:            clk.Now,
	}, dispatcher, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	t.Cleanup(mgr.Stop)

	return mgr
}

func speechChunk() []byte {
	pcm := make([]byte, chunkBytes)
	for i := 0; i < len(pcm); i += 2 {
		binary.LittleEndian.PutUint16(pcm[i:], uint16(int16(8000)))
	}
	return pcm
}

func silentChunk() []byte {
	return make([]byte, chunkBytes)
}

func audioMessage(t *testing.T, pcm []byte) []byte {
	t.Helper()

	raw, err := json.Marshal(map[string]interface{}{
		"audio": base64.StdEncoding.EncodeToString(pcm),
	})
	if err != nil {
		t.Fatalf("Failed to marshal message: %v", err)
	}
	return raw
}

// pushChunk feeds one audio chunk and advances the clock past it
func pushChunk(t *testing.T, sess *Session, clk *fakeClock, pcm []byte) {
	t.Helper()
	sess.HandleMessage(audioMessage(t, pcm))
	clk.Advance(chunkMS * time.Millisecond)
}

func waitForEvent(t *testing.T, sess *Session) protocol.Event {
	t.Helper()

	select {
	case ev := <-sess.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for event")
		return nil
	}
}

func expectNoEvent(t *testing.T, sess *Session) {
	t.Helper()

	select {
	case ev := <-sess.Events():
		t.Fatalf("Unexpected event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNewManagerValidation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if _, err := NewManager(ManagerConfig{SampleRate: 16000, Segmenter: testSegmenterConfig}, nil, logger, nil); err == nil {
		t.Error("Expected error for nil dispatcher")
	}

	if _, err := NewManager(ManagerConfig{Segmenter: testSegmenterConfig}, &fakeDispatcher{}, logger, nil); err == nil {
		t.Error("Expected error for missing sample rate")
	}

	if _, err := NewManager(ManagerConfig{SampleRate: 16000}, &fakeDispatcher{}, logger, nil); err == nil {
		t.Error("Expected error for invalid segmenter config")
	}
}

func TestCreateSession(t *testing.T) {
	clk := newFakeClock()
	mgr := newTestManager(t, &fakeDispatcher{}, clk)

	sess, err := mgr.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if sess.ID != "sess-1" {
		t.Errorf("Expected ID sess-1, got %s", sess.ID)
	}

	if sess.TargetLang() != DefaultTargetLang {
		t.Errorf("Expected default target lang %s, got %s", DefaultTargetLang, sess.TargetLang())
	}

	if sess.SampleRate() != testSampleRate {
		t.Errorf("Expected sample rate %d, got %d", testSampleRate, sess.SampleRate())
	}

	if mgr.GetActiveSessionCount() != 1 {
		t.Errorf("Expected 1 active session, got %d", mgr.GetActiveSessionCount())
	}

	got, exists := mgr.GetSession(sess.ID)
	if !exists || got != sess {
		t.Error("GetSession did not return the created session")
	}
}

func TestSessionLimit(t *testing.T) {
	clk := newFakeClock()
	mgr := newTestManager(t, &fakeDispatcher{}, clk)

	for i := 0; i < 4; i++ {
		if _, err := mgr.CreateSession(); err != nil {
			t.Fatalf("CreateSession %d failed: %v", i, err)
		}
	}

	if _, err := mgr.CreateSession(); err == nil {
		t.Error("Expected error at session limit")
	}
}

func TestRemoveSession(t *testing.T) {
	clk := newFakeClock()
	mgr := newTestManager(t, &fakeDispatcher{}, clk)

	sess, err := mgr.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if !mgr.RemoveSession(sess.ID) {
		t.Error("RemoveSession returned false for existing session")
	}

	if mgr.GetActiveSessionCount() != 0 {
		t.Errorf("Expected 0 active sessions, got %d", mgr.GetActiveSessionCount())
	}

	select {
	case <-sess.Done():
	case <-time.After(time.Second):
		t.Error("Session context not cancelled on removal")
	}

	if mgr.RemoveSession(sess.ID) {
		t.Error("RemoveSession returned true for removed session")
	}
}

func TestReadyEvent(t *testing.T) {
	clk := newFakeClock()
	mgr := newTestManager(t, &fakeDispatcher{}, clk)

	ev := mgr.ReadyEvent()
	if ev.Config.SampleRate != testSampleRate {
		t.Errorf("Expected sample rate %d, got %d", testSampleRate, ev.Config.SampleRate)
	}
	if ev.Config.ChunkSizeMS != chunkMS {
		t.Errorf("Expected chunk size %d, got %d", chunkMS, ev.Config.ChunkSizeMS)
	}
}

func TestHandleMessageProtocolErrors(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		expected string
	}{
		{
			name:     "malformed JSON",
			raw:      []byte("{not json"),
			expected: "Invalid message format",
		},
		{
			name:     "missing audio",
			raw:      []byte(`{"target_lang": "hi"}`),
			expected: "Missing audio data",
		},
		{
			name:     "invalid base64",
			raw:      []byte(`{"audio": "!!!not-base64!!!"}`),
			expected: "Invalid audio encoding",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := newFakeClock()
			mgr := newTestManager(t, &fakeDispatcher{}, clk)

			sess, err := mgr.CreateSession()
			if err != nil {
				t.Fatalf("CreateSession failed: %v", err)
			}

			sess.HandleMessage(tt.raw)

			ev := waitForEvent(t, sess)
			errEv, ok := ev.(protocol.ErrorEvent)
			if !ok {
				t.Fatalf("Expected error event, got %T", ev)
			}

			if errEv.Error != tt.expected {
				t.Errorf("Expected error %q, got %q", tt.expected, errEv.Error)
			}
		})
	}
}

func TestHandleMessageUpdatesSettings(t *testing.T) {
	clk := newFakeClock()
	mgr := newTestManager(t, &fakeDispatcher{}, clk)

	sess, err := mgr.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	raw, err := json.Marshal(map[string]interface{}{
		"audio":       base64.StdEncoding.EncodeToString(silentChunk()),
		"target_lang": "hi",
		"sample_rate": 8000,
	})
	if err != nil {
		t.Fatalf("Failed to marshal message: %v", err)
	}

	sess.HandleMessage(raw)

	if sess.TargetLang() != "hi" {
		t.Errorf("Expected target lang hi, got %s", sess.TargetLang())
	}

	if sess.SampleRate() != 8000 {
		t.Errorf("Expected sample rate 8000, got %d", sess.SampleRate())
	}

	info := sess.GetSessionInfo()
	if info.MessagesReceived != 1 {
		t.Errorf("Expected 1 message received, got %d", info.MessagesReceived)
	}
}

func TestUtteranceProducesCaption(t *testing.T) {
	clk := newFakeClock()
	dispatcher := &fakeDispatcher{
		caption: protocol.NewCaptionEvent("hello world", "नमस्ते दुनिया", "en", "English", ""),
		ok:      true,
	}
	mgr := newTestManager(t, dispatcher, clk)

	sess, err := mgr.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// 1.2s of speech, then silence until the window elapses
	for i := 0; i < 12; i++ {
		pushChunk(t, sess, clk, speechChunk())
	}
	for i := 0; i < 7; i++ {
		pushChunk(t, sess, clk, silentChunk())
	}

	ev := waitForEvent(t, sess)
	caption, ok := ev.(protocol.CaptionEvent)
	if !ok {
		t.Fatalf("Expected caption event, got %T", ev)
	}

	if caption.Original != "hello world" {
		t.Errorf("Expected original 'hello world', got %q", caption.Original)
	}

	if dispatcher.callCount() != 1 {
		t.Errorf("Expected 1 dispatch, got %d", dispatcher.callCount())
	}

	dispatcher.mu.Lock()
	lastTarget, lastRate := dispatcher.lastTarget, dispatcher.lastRate
	dispatcher.mu.Unlock()

	if lastTarget != DefaultTargetLang {
		t.Errorf("Expected target lang %s, got %s", DefaultTargetLang, lastTarget)
	}
	if lastRate != testSampleRate {
		t.Errorf("Expected sample rate %d, got %d", testSampleRate, lastRate)
	}
}

func TestUnpublishedDispatchEmitsNothing(t *testing.T) {
	clk := newFakeClock()
	dispatcher := &fakeDispatcher{ok: false}
	mgr := newTestManager(t, dispatcher, clk)

	sess, err := mgr.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	for i := 0; i < 12; i++ {
		pushChunk(t, sess, clk, speechChunk())
	}
	for i := 0; i < 7; i++ {
		pushChunk(t, sess, clk, silentChunk())
	}

	expectNoEvent(t, sess)

	if dispatcher.callCount() != 1 {
		t.Errorf("Expected 1 dispatch, got %d", dispatcher.callCount())
	}
}

func TestCaptionsPublishedInOrder(t *testing.T) {
	clk := newFakeClock()
	dispatcher := &orderedDispatcher{}
	mgr := newTestManager(t, dispatcher, clk)

	sess, err := mgr.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	emitUtterance := func() {
		for i := 0; i < 12; i++ {
			pushChunk(t, sess, clk, speechChunk())
		}
		for i := 0; i < 7; i++ {
			pushChunk(t, sess, clk, silentChunk())
		}
	}

	// Each utterance is awaited before the next message is processed, so
	// the dispatch for the second cannot start before the first finishes.
	emitUtterance()
	emitUtterance()

	for i, want := range []string{"caption-1", "caption-2"} {
		ev := waitForEvent(t, sess)
		caption, ok := ev.(protocol.CaptionEvent)
		if !ok {
			t.Fatalf("Event %d: expected caption, got %T", i, ev)
		}
		if caption.Original != want {
			t.Errorf("Event %d: expected %q, got %q", i, want, caption.Original)
		}
	}

	info := sess.GetSessionInfo()
	if info.UtterancesEmitted != 2 {
		t.Errorf("Expected 2 utterances, got %d", info.UtterancesEmitted)
	}
	if info.CaptionsSent != 2 {
		t.Errorf("Expected 2 captions, got %d", info.CaptionsSent)
	}
}

func TestFullEventQueueBackpressures(t *testing.T) {
	clk := newFakeClock()
	mgr := newTestManager(t, &fakeDispatcher{}, clk)

	sess, err := mgr.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// Fill the outbound queue with undrained error events
	for i := 0; i < eventBuffer; i++ {
		sess.HandleMessage([]byte("{not json"))
	}

	// The next event must wait for the writer instead of being dropped
	blocked := make(chan struct{})
	go func() {
		defer close(blocked)
		sess.HandleMessage([]byte("{not json"))
	}()

	select {
	case <-blocked:
		t.Fatal("Expected HandleMessage to block on the full queue")
	case <-time.After(50 * time.Millisecond):
	}

	<-sess.Events()

	select {
	case <-blocked:
	case <-time.After(2 * time.Second):
		t.Fatal("HandleMessage did not unblock after the queue drained")
	}

	// Every event survives: one drained above, the rest still queued
	for i := 0; i < eventBuffer; i++ {
		ev := waitForEvent(t, sess)
		if _, ok := ev.(protocol.ErrorEvent); !ok {
			t.Fatalf("Event %d: expected error event, got %T", i, ev)
		}
	}
}

func TestCancelledSessionDropsPendingEmit(t *testing.T) {
	clk := newFakeClock()
	mgr := newTestManager(t, &fakeDispatcher{}, clk)

	sess, err := mgr.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	for i := 0; i < eventBuffer; i++ {
		sess.HandleMessage([]byte("{not json"))
	}

	blocked := make(chan struct{})
	go func() {
		defer close(blocked)
		sess.HandleMessage([]byte("{not json"))
	}()

	// Session shutdown is the only way a queued event may be lost
	sess.Cancel()

	select {
	case <-blocked:
	case <-time.After(2 * time.Second):
		t.Fatal("HandleMessage did not unblock on cancellation")
	}
}

func TestIdleSessionCleanup(t *testing.T) {
	clk := newFakeClock()
	mgr := newTestManager(t, &fakeDispatcher{}, clk)

	idle, err := mgr.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	active, err := mgr.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	clk.Advance(6 * time.Minute)
	active.HandleMessage(audioMessage(t, silentChunk()))

	mgr.cleanupIdleSessions()

	if _, exists := mgr.GetSession(idle.ID); exists {
		t.Error("Idle session should have been removed")
	}

	if _, exists := mgr.GetSession(active.ID); !exists {
		t.Error("Active session should have been kept")
	}
}

func TestStopCancelsSessions(t *testing.T) {
	clk := newFakeClock()
	mgr, err := NewManager(ManagerConfig{
		SampleRate:       testSampleRate,
		ChunkSizeMS:      chunkMS,
		SilenceThreshold: 0.01,
		Segmenter:        testSegmenterConfig,
		Clock:            clk.Now,
	}, &fakeDispatcher{}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	sess, err := mgr.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	mgr.Stop()

	select {
	case <-sess.Done():
	case <-time.After(time.Second):
		t.Error("Session context not cancelled on Stop")
	}

	if mgr.GetActiveSessionCount() != 0 {
		t.Errorf("Expected 0 active sessions after Stop, got %d", mgr.GetActiveSessionCount())
	}
}
