package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Hey-Ritik/voice-translation/internal/config"
	"github.com/Hey-Ritik/voice-translation/internal/language"
	"github.com/Hey-Ritik/voice-translation/internal/metrics"
	"github.com/Hey-Ritik/voice-translation/internal/session"
	"github.com/Hey-Ritik/voice-translation/internal/transcription"
	"github.com/Hey-Ritik/voice-translation/internal/translation"
)

// HTTPServer hosts the WebSocket audio endpoint and the monitoring API
type HTTPServer struct {
	server     *http.Server
	logger     *slog.Logger
	config     *config.Config
	sessionMgr *session.Manager
	transcribe *transcription.Client
	translator *translation.HTTPTranslator // nil when the openai engine is active
	metrics    *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates the server with all routes configured. The translator
// may be nil when translation statistics are unavailable.
func NewHTTPServer(cfg *config.Config, logger *slog.Logger,
	sessionMgr *session.Manager, transcribe *transcription.Client,
	translator *translation.HTTPTranslator, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:     logger,
		config:     cfg,
		sessionMgr: sessionMgr,
		transcribe: transcribe,
		translator: translator,
		metrics:    m,
		startTime:  time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.Port),
		Handler:     mux,
		IdleTimeout: 60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// WebSocket audio endpoint
	mux.HandleFunc("/ws/audio", h.handleWS)

	// Monitoring endpoints
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/languages", h.withMetrics("/languages", h.handleLanguages))
	mux.HandleFunc("/sessions", h.withMetrics("/sessions", h.handleSessions))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		if h.metrics != nil {
			duration := time.Since(startTime).Seconds()
			statusCode := fmt.Sprintf("%d", ww.statusCode)
			h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("starting HTTP server",
		slog.String("address", h.server.Addr))

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("stopping HTTP server")

	return h.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	transcriptionStats := h.transcribe.GetStats()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]interface{}{
			"name":    "voice-translation",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"sessions": map[string]interface{}{
				"status":       "running",
				"active_count": h.sessionMgr.GetActiveSessionCount(),
			},
			"transcription": map[string]interface{}{
				"status":          "running",
				"total_requests":  transcriptionStats.TotalRequests,
				"success_rate":    transcriptionStats.SuccessRate,
				"active_requests": transcriptionStats.ActiveRequests,
			},
		},
	}

	writeJSON(w, health)
}

// handleLanguages implements the /languages endpoint
func (h *HTTPServer) handleLanguages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"default":   session.DefaultTargetLang,
		"languages": language.TargetLanguages(),
	}

	writeJSON(w, response)
}

// handleSessions implements the /sessions endpoint
func (h *HTTPServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	infos := h.sessionMgr.GetAllSessions()

	response := map[string]interface{}{
		"total_sessions": len(infos),
		"timestamp":      time.Now().UTC(),
		"sessions":       infos,
	}

	writeJSON(w, response)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Secrets are intentionally omitted
	sanitized := map[string]interface{}{
		"server": map[string]interface{}{
			"port":                 h.config.Server.Port,
			"bind_address":         h.config.Server.BindAddress,
			"max_sessions":         h.config.Server.MaxSessions,
			"session_idle_timeout": h.config.Server.SessionIdleTimeout,
		},
		"audio": map[string]interface{}{
			"sample_rate":        h.config.Audio.SampleRate,
			"chunk_size_ms":      h.config.Audio.ChunkSizeMS,
			"min_audio_length_s": h.config.Audio.MinAudioLengthS,
		},
		"vad": map[string]interface{}{
			"silence_threshold":   h.config.VAD.SilenceThreshold,
			"silence_duration_ms": h.config.VAD.SilenceDurationMS,
			"min_utterance_s":     h.config.VAD.MinUtteranceS,
			"max_utterance_s":     h.config.VAD.MaxUtteranceS,
		},
		"transcription": map[string]interface{}{
			"endpoint":       h.config.Transcription.Endpoint,
			"model":          h.config.Transcription.Model,
			"timeout":        h.config.Transcription.Timeout,
			"max_retries":    h.config.Transcription.MaxRetries,
			"max_concurrent": h.config.Transcription.MaxConcurrent,
		},
		"translation": map[string]interface{}{
			"engine":   h.config.Translation.Engine,
			"endpoint": h.config.Translation.Endpoint,
			"timeout":  h.config.Translation.Timeout,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
		},
	}

	writeJSON(w, sanitized)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]interface{}{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"sessions": map[string]interface{}{
			"active_count": h.sessionMgr.GetActiveSessionCount(),
		},
		"transcription": h.transcribe.GetStats(),
	}

	if h.translator != nil {
		stats["translation"] = h.translator.GetStats()
	}

	writeJSON(w, stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Voice Translation Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"WS /ws/audio":   "Real-time audio translation stream",
			"GET /":          "API documentation",
			"GET /health":    "Service health check",
			"GET /languages": "Supported caption target languages",
			"GET /sessions":  "List all active sessions",
			"GET /config":    "Get service configuration",
			"GET /stats":     "Get service statistics",
			"GET /metrics":   "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	writeJSON(w, apiDoc)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
