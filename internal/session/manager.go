package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Hey-Ritik/voice-translation/internal/metrics"
	"github.com/Hey-Ritik/voice-translation/internal/protocol"
	"github.com/Hey-Ritik/voice-translation/internal/segment"
	"github.com/Hey-Ritik/voice-translation/internal/vad"
)

// cleanupInterval is how often the manager scans for idle sessions.
const cleanupInterval = 30 * time.Second

// DefaultTargetLang is the caption language used until the client picks one.
const DefaultTargetLang = "en"

// ManagerConfig contains configuration for the session manager
type ManagerConfig struct {
	SampleRate       int
	ChunkSizeMS      int
	SilenceThreshold float64
	Segmenter        segment.Config
	MaxSessions      int
	IdleTimeout      time.Duration

	// Clock overrides time.Now, for tests
	Clock func() time.Time
}

// Manager manages all active translation sessions
type Manager struct {
	sessions map[string]*Session
	nextID   uint64
	mu       sync.RWMutex

	config     ManagerConfig
	dispatcher Dispatcher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	clock      func() time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}
}

// NewManager creates a new session manager
func NewManager(config ManagerConfig, dispatcher Dispatcher, logger *slog.Logger, m *metrics.Metrics) (*Manager, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher cannot be nil")
	}

	if config.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}

	if err := config.Segmenter.Validate(); err != nil {
		return nil, fmt.Errorf("invalid segmenter config: %w", err)
	}

	if config.MaxSessions <= 0 {
		config.MaxSessions = 256
	}

	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 5 * time.Minute
	}

	if config.Clock == nil {
		config.Clock = time.Now
	}

	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	mgr := &Manager{
		sessions:   make(map[string]*Session),
		config:     config,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    m,
		clock:      config.Clock,
		ctx:        ctx,
		cancel:     cancel,
		cleanup:    make(chan struct{}),
	}

	go mgr.startCleanupRoutine()

	return mgr, nil
}

// CreateSession creates a new translation session with its own segmenter
func (m *Manager) CreateSession() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.config.MaxSessions {
		return nil, fmt.Errorf("session limit reached (%d)", m.config.MaxSessions)
	}

	detector, err := vad.NewDetector(m.config.SilenceThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to create silence detector: %w", err)
	}

	segmenter, err := segment.NewSegmenter(m.config.Segmenter, detector, m.config.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to create segmenter: %w", err)
	}

	m.nextID++
	id := fmt.Sprintf("sess-%d", m.nextID)

	sessionCtx, sessionCancel := context.WithCancel(m.ctx)

	now := m.clock()
	session := &Session{
		ID:           id,
		StartTime:    now,
		LastActivity: now,
		targetLang:   DefaultTargetLang,
		sampleRate:   m.config.SampleRate,
		segmenter:    segmenter,
		events:       make(chan protocol.Event, eventBuffer),
		ctx:          sessionCtx,
		cancel:       sessionCancel,
		manager:      m,
	}

	m.sessions[id] = session

	if m.metrics != nil {
		m.metrics.RecordConnectionOpened()
		m.metrics.SetActiveSessions(len(m.sessions))
	}

	m.logger.Info("session created",
		slog.String("session_id", id),
		slog.Int("sample_rate", m.config.SampleRate),
		slog.String("target_lang", DefaultTargetLang),
		slog.Int("active_sessions", len(m.sessions)))

	return session, nil
}

// GetSession retrieves an existing session
func (m *Manager) GetSession(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	return session, exists
}

// GetActiveSessionCount returns the number of currently active sessions
func (m *Manager) GetActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// GetAllSessions returns monitoring snapshots of all active sessions
func (m *Manager) GetAllSessions() []SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, session := range m.sessions {
		infos = append(infos, session.GetSessionInfo())
	}

	return infos
}

// RemoveSession ends a session and releases its resources
func (m *Manager) RemoveSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[id]
	if !exists {
		return false
	}

	session.cancel()
	delete(m.sessions, id)

	duration := m.clock().Sub(session.StartTime)

	if m.metrics != nil {
		m.metrics.RecordConnectionClosed()
		m.metrics.RecordSessionClosed(duration.Seconds())
		m.metrics.SetActiveSessions(len(m.sessions))
	}

	info := session.GetSessionInfo()
	m.logger.Info("session removed",
		slog.String("session_id", id),
		slog.Duration("duration", duration),
		slog.Uint64("messages_received", info.MessagesReceived),
		slog.Uint64("utterances_emitted", info.UtterancesEmitted),
		slog.Uint64("captions_sent", info.CaptionsSent))

	return true
}

// Stop gracefully stops the session manager
func (m *Manager) Stop() {
	m.logger.Info("stopping session manager")

	m.mu.Lock()
	for id, session := range m.sessions {
		session.cancel()
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	m.cancel()
	<-m.cleanup

	m.logger.Info("session manager stopped")
}

// startCleanupRoutine periodically removes idle sessions
func (m *Manager) startCleanupRoutine() {
	defer close(m.cleanup)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	m.logger.Info("session cleanup routine started",
		slog.Duration("idle_timeout", m.config.IdleTimeout),
		slog.Duration("check_interval", cleanupInterval))

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Info("session cleanup routine stopping")
			return

		case <-ticker.C:
			m.cleanupIdleSessions()
		}
	}
}

// cleanupIdleSessions removes sessions that have been inactive for too long
func (m *Manager) cleanupIdleSessions() {
	now := m.clock()
	idle := make([]string, 0)

	m.mu.RLock()
	for id, session := range m.sessions {
		session.mu.RLock()
		lastActivity := session.LastActivity
		session.mu.RUnlock()

		if now.Sub(lastActivity) > m.config.IdleTimeout {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	if len(idle) > 0 {
		m.logger.Info("cleaning up idle sessions",
			slog.Int("idle_count", len(idle)))

		for _, id := range idle {
			m.RemoveSession(id)
		}
	}
}

// ReadyEvent builds the greeting advertising this manager's audio settings
func (m *Manager) ReadyEvent() protocol.ReadyEvent {
	return protocol.NewReadyEvent(m.config.SampleRate, m.config.ChunkSizeMS)
}
