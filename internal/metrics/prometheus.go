package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice translation service
type Metrics struct {
	// WebSocket connection metrics
	ConnectionsOpened prometheus.Counter
	ConnectionsClosed prometheus.Counter
	MessagesReceived  prometheus.Counter
	EventsSent        prometheus.Counter
	ProtocolErrors    prometheus.Counter

	// Session metrics
	ActiveSessions  prometheus.Gauge
	SessionDuration prometheus.Histogram

	// Utterance metrics
	UtterancesEmitted *prometheus.CounterVec
	UtteranceDuration prometheus.Histogram
	UtteranceSize     prometheus.Histogram

	// Dispatch metrics
	DispatchesStarted   prometheus.Counter
	DispatchesDiscarded prometheus.Counter
	DispatchDuration    prometheus.Histogram

	// Transcription metrics
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionDuration  prometheus.Histogram

	// Translation metrics
	TranslationRequests  prometheus.Counter
	TranslationSuccesses prometheus.Counter
	TranslationFailures  prometheus.Counter
	TranslationDuration  prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// WebSocket connection metrics
		ConnectionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vt_connections_opened_total",
			Help: "Total number of WebSocket connections accepted",
		}),
		ConnectionsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vt_connections_closed_total",
			Help: "Total number of WebSocket connections closed",
		}),
		MessagesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vt_messages_received_total",
			Help: "Total number of audio messages received",
		}),
		EventsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vt_events_sent_total",
			Help: "Total number of events sent to clients",
		}),
		ProtocolErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vt_protocol_errors_total",
			Help: "Total number of malformed or invalid client messages",
		}),

		// Session metrics
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vt_active_sessions",
			Help: "Current number of active translation sessions",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vt_session_duration_seconds",
			Help:    "Duration of translation sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68 minutes
		}),

		// Utterance metrics
		UtterancesEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vt_utterances_emitted_total",
			Help: "Total number of utterances emitted by the segmenter",
		}, []string{"cause"}),
		UtteranceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vt_utterance_duration_seconds",
			Help:    "Duration of emitted utterances",
			Buckets: prometheus.LinearBuckets(0.5, 0.5, 12), // 0.5s to 6s
		}),
		UtteranceSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vt_utterance_size_bytes",
			Help:    "Size of emitted utterances in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 10), // 1KB to ~1MB
		}),

		// Dispatch metrics
		DispatchesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vt_dispatches_started_total",
			Help: "Total number of utterance dispatches started",
		}),
		DispatchesDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vt_dispatches_discarded_total",
			Help: "Total number of dispatches discarded before completion",
		}),
		DispatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vt_dispatch_duration_seconds",
			Help:    "Duration of the full transcribe and translate pipeline",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		// Transcription metrics
		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vt_transcription_requests_total",
			Help: "Total number of transcription requests sent",
		}),
		TranscriptionSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vt_transcription_successes_total",
			Help: "Total number of successful transcription requests",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vt_transcription_failures_total",
			Help: "Total number of failed transcription requests",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vt_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		// Translation metrics
		TranslationRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vt_translation_requests_total",
			Help: "Total number of translation requests sent",
		}),
		TranslationSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vt_translation_successes_total",
			Help: "Total number of successful translation requests",
		}),
		TranslationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vt_translation_failures_total",
			Help: "Total number of failed translation requests",
		}),
		TranslationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vt_translation_duration_seconds",
			Help:    "Duration of translation requests",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~51s
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vt_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vt_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// RecordConnectionOpened increments the connections opened counter
func (m *Metrics) RecordConnectionOpened() {
	m.ConnectionsOpened.Inc()
}

// RecordConnectionClosed increments the connections closed counter
func (m *Metrics) RecordConnectionClosed() {
	m.ConnectionsClosed.Inc()
}

// RecordMessageReceived increments the messages received counter
func (m *Metrics) RecordMessageReceived() {
	m.MessagesReceived.Inc()
}

// RecordEventSent increments the events sent counter
func (m *Metrics) RecordEventSent() {
	m.EventsSent.Inc()
}

// RecordProtocolError increments the protocol errors counter
func (m *Metrics) RecordProtocolError() {
	m.ProtocolErrors.Inc()
}

// SetActiveSessions sets the current number of active sessions
func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// RecordSessionClosed records the duration of a finished session
func (m *Metrics) RecordSessionClosed(durationSeconds float64) {
	m.SessionDuration.Observe(durationSeconds)
}

// RecordUtterance records an emitted utterance with its trigger cause
func (m *Metrics) RecordUtterance(cause string, durationSeconds float64, sizeBytes int) {
	m.UtterancesEmitted.WithLabelValues(cause).Inc()
	m.UtteranceDuration.Observe(durationSeconds)
	m.UtteranceSize.Observe(float64(sizeBytes))
}

// RecordDispatchStarted increments the dispatches started counter
func (m *Metrics) RecordDispatchStarted() {
	m.DispatchesStarted.Inc()
}

// RecordDispatchDiscarded increments the dispatches discarded counter
func (m *Metrics) RecordDispatchDiscarded() {
	m.DispatchesDiscarded.Inc()
}

// RecordDispatchDone records the duration of a completed dispatch
func (m *Metrics) RecordDispatchDone(durationSeconds float64) {
	m.DispatchDuration.Observe(durationSeconds)
}

// RecordTranscription records a transcription request outcome
func (m *Metrics) RecordTranscription(success bool, durationSeconds float64) {
	m.TranscriptionRequests.Inc()
	if success {
		m.TranscriptionSuccesses.Inc()
	} else {
		m.TranscriptionFailures.Inc()
	}
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranslation records a translation request outcome
func (m *Metrics) RecordTranslation(success bool, durationSeconds float64) {
	m.TranslationRequests.Inc()
	if success {
		m.TranslationSuccesses.Inc()
	} else {
		m.TranslationFailures.Inc()
	}
	m.TranslationDuration.Observe(durationSeconds)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}
