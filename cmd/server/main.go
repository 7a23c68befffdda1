package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Hey-Ritik/voice-translation/internal/config"
	"github.com/Hey-Ritik/voice-translation/internal/dispatch"
	"github.com/Hey-Ritik/voice-translation/internal/metrics"
	"github.com/Hey-Ritik/voice-translation/internal/segment"
	"github.com/Hey-Ritik/voice-translation/internal/server"
	"github.com/Hey-Ritik/voice-translation/internal/session"
	"github.com/Hey-Ritik/voice-translation/internal/transcription"
	"github.com/Hey-Ritik/voice-translation/internal/translation"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "voice-translation"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	logger.Info("Configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("bind_address", cfg.Server.BindAddress),
		slog.Int("max_sessions", cfg.Server.MaxSessions),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Float64("silence_threshold", cfg.VAD.SilenceThreshold),
		slog.Int("silence_duration_ms", cfg.VAD.SilenceDurationMS),
		slog.Float64("min_utterance_s", cfg.VAD.MinUtteranceS),
		slog.Float64("max_utterance_s", cfg.VAD.MaxUtteranceS),
		slog.String("transcription_endpoint", cfg.Transcription.Endpoint),
		slog.String("translation_engine", cfg.Translation.Engine),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Create transcription client
	transcriptionClient, err := transcription.NewClient(transcription.Config{
		Endpoint:      cfg.Transcription.Endpoint,
		Model:         cfg.Transcription.Model,
		Timeout:       cfg.Transcription.GetTimeoutDuration(),
		MaxRetries:    cfg.Transcription.MaxRetries,
		MaxConcurrent: cfg.Transcription.MaxConcurrent,
	})
	if err != nil {
		logger.Error("Failed to create transcription client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create translator for the configured engine
	var translator translation.Translator
	var nllbTranslator *translation.HTTPTranslator

	switch cfg.Translation.Engine {
	case "nllb":
		nllbTranslator, err = translation.NewHTTPTranslator(translation.Config{
			Endpoint: cfg.Translation.Endpoint,
			Timeout:  cfg.Translation.GetTimeoutDuration(),
		}, logger)
		translator = nllbTranslator
	case "openai":
		translator, err = translation.NewOpenAITranslator(
			cfg.Translation.OpenAIAPIKey,
			cfg.Translation.OpenAIModel,
			cfg.Translation.GetTimeoutDuration(),
			logger)
	}
	if err != nil {
		logger.Error("Failed to create translator", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Translator initialized", slog.String("engine", cfg.Translation.Engine))

	// Create dispatcher
	dispatcher, err := dispatch.NewDispatcher(dispatch.Config{
		MinAudioLength: cfg.Audio.GetMinAudioLength(),
		MaxConcurrent:  int64(cfg.Transcription.MaxConcurrent),
	}, transcriptionClient, translator, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to create dispatcher", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create session manager
	sessionMgr, err := session.NewManager(session.ManagerConfig{
		SampleRate:       cfg.Audio.SampleRate,
		ChunkSizeMS:      cfg.Audio.ChunkSizeMS,
		SilenceThreshold: cfg.VAD.SilenceThreshold,
		Segmenter: segment.Config{
			SilenceDuration: cfg.VAD.GetSilenceDuration(),
			MinUtterance:    cfg.VAD.GetMinUtterance(),
			MaxUtterance:    cfg.VAD.GetMaxUtterance(),
		},
		MaxSessions: cfg.Server.MaxSessions,
		IdleTimeout: cfg.Server.GetSessionIdleTimeout(),
	}, dispatcher, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to create session manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Session manager initialized",
		slog.Duration("idle_timeout", cfg.Server.GetSessionIdleTimeout()),
		slog.Int("max_sessions", cfg.Server.MaxSessions),
	)

	// Initialize HTTP server with WebSocket and monitoring endpoints
	httpServer := server.NewHTTPServer(cfg, logger, sessionMgr, transcriptionClient, nllbTranslator, appMetrics)

	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Warm up the inference server in the background so the first utterance
	// does not pay the model load cost.
	go func() {
		warmupCtx, warmupCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer warmupCancel()

		if err := transcriptionClient.Warmup(warmupCtx, cfg.Audio.SampleRate); err != nil {
			logger.Warn("Transcription warmup failed", slog.String("error", err.Error()))
			return
		}
		logger.Info("Transcription server warmed up")
	}()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("address", fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.Port)),
	)

	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new connections)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Stop session manager (end sessions and stop background routines)
	sessionMgr.Stop()

	// Close transcription client
	if err := transcriptionClient.Close(); err != nil {
		logger.Warn("Error closing transcription client", slog.String("error", err.Error()))
	}

	// Log final statistics
	stats := transcriptionClient.GetStats()
	logger.Info("Final transcription statistics",
		slog.Uint64("total_requests", stats.TotalRequests),
		slog.Uint64("success_requests", stats.SuccessRequests),
		slog.Uint64("failed_requests", stats.FailedRequests),
		slog.Float64("success_rate", stats.SuccessRate),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
