package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Audio         AudioConfig         `yaml:"audio"`
	VAD           VADConfig           `yaml:"vad"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Translation   TranslationConfig   `yaml:"translation"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig contains the HTTP/WebSocket server configuration
type ServerConfig struct {
	Port               int    `yaml:"port"`
	BindAddress        string `yaml:"bind_address"`
	ReadLimitBytes     int64  `yaml:"read_limit_bytes"`
	MaxSessions        int    `yaml:"max_sessions"`
	SessionIdleTimeout int    `yaml:"session_idle_timeout"` // seconds
}

// AudioConfig contains audio stream parameters
type AudioConfig struct {
	SampleRate      int     `yaml:"sample_rate"`
	ChunkSizeMS     int     `yaml:"chunk_size_ms"`      // suggested client chunk size
	MinAudioLengthS float64 `yaml:"min_audio_length_s"` // skip utterances shorter than this
}

// VADConfig contains silence detection and utterance segmentation parameters
type VADConfig struct {
	SilenceThreshold  float64 `yaml:"silence_threshold"`   // normalized RMS
	SilenceDurationMS int     `yaml:"silence_duration_ms"` // silence run marking an utterance end
	MinUtteranceS     float64 `yaml:"min_utterance_s"`     // silence cannot trigger below this duration
	MaxUtteranceS     float64 `yaml:"max_utterance_s"`     // force a trigger past this duration
}

// TranscriptionConfig contains the whisper inference server configuration
type TranscriptionConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Model         string `yaml:"model"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxRetries    int    `yaml:"max_retries"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// TranslationConfig contains the translation engine configuration
type TranslationConfig struct {
	Engine       string `yaml:"engine"` // "nllb" or "openai"
	Endpoint     string `yaml:"endpoint"`
	OpenAIAPIKey string `yaml:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model"`
	Timeout      int    `yaml:"timeout"` // seconds
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the built-in configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               8000,
			BindAddress:        "0.0.0.0",
			ReadLimitBytes:     1 << 20, // 1 MiB per message
			MaxSessions:        256,
			SessionIdleTimeout: 300,
		},
		Audio: AudioConfig{
			SampleRate:      16000,
			ChunkSizeMS:     250,
			MinAudioLengthS: 0.5,
		},
		VAD: VADConfig{
			SilenceThreshold:  0.01,
			SilenceDurationMS: 600,
			MinUtteranceS:     1.0,
			MaxUtteranceS:     6.0,
		},
		Transcription: TranscriptionConfig{
			Endpoint:      "http://localhost:8080",
			Model:         "",
			Timeout:       30,
			MaxRetries:    2,
			MaxConcurrent: 4,
		},
		Translation: TranslationConfig{
			Engine:      "nllb",
			Endpoint:    "http://localhost:8090",
			OpenAIModel: "gpt-4o-mini",
			Timeout:     30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads and parses the configuration file, applies environment
// overrides, and validates the result. An empty path yields the defaults
// (still subject to environment overrides).
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, fmt.Errorf("environment override: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// applyEnv overlays recognized environment variables on the loaded values.
// Only the audio tuning knobs are exposed this way; structural settings stay
// in the file.
func (c *Config) applyEnv() error {
	if err := envFloat("VT_SILENCE_THRESHOLD", &c.VAD.SilenceThreshold); err != nil {
		return err
	}
	if err := envInt("VT_SILENCE_DURATION_MS", &c.VAD.SilenceDurationMS); err != nil {
		return err
	}
	if err := envFloat("VT_MIN_UTTERANCE_S", &c.VAD.MinUtteranceS); err != nil {
		return err
	}
	if err := envFloat("VT_MAX_UTTERANCE_S", &c.VAD.MaxUtteranceS); err != nil {
		return err
	}
	if err := envInt("VT_SAMPLE_RATE", &c.Audio.SampleRate); err != nil {
		return err
	}
	if err := envFloat("VT_MIN_AUDIO_LENGTH_S", &c.Audio.MinAudioLengthS); err != nil {
		return err
	}
	if key := os.Getenv("VT_OPENAI_API_KEY"); key != "" {
		c.Translation.OpenAIAPIKey = key
	}
	return nil
}

func envFloat(name string, dst *float64) error {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("%s: invalid float %q", name, raw)
	}
	*dst = v
	return nil
}

func envInt(name string, dst *int) error {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", name, raw)
	}
	*dst = v
	return nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.VAD.Validate(); err != nil {
		return fmt.Errorf("vad config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Translation.Validate(); err != nil {
		return fmt.Errorf("translation config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}

	if s.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}

	if s.ReadLimitBytes < 1024 {
		return fmt.Errorf("read_limit_bytes must be at least 1024, got %d", s.ReadLimitBytes)
	}

	if s.MaxSessions < 1 {
		return fmt.Errorf("max_sessions must be at least 1, got %d", s.MaxSessions)
	}

	if s.SessionIdleTimeout < 1 {
		return fmt.Errorf("session_idle_timeout must be at least 1 second, got %d", s.SessionIdleTimeout)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate < 8000 || a.SampleRate > 48000 {
		return fmt.Errorf("sample_rate must be between 8000 and 48000 Hz, got %d", a.SampleRate)
	}

	if a.ChunkSizeMS < 10 || a.ChunkSizeMS > 5000 {
		return fmt.Errorf("chunk_size_ms must be between 10 and 5000, got %d", a.ChunkSizeMS)
	}

	if a.MinAudioLengthS < 0 {
		return fmt.Errorf("min_audio_length_s cannot be negative, got %f", a.MinAudioLengthS)
	}

	return nil
}

// Validate validates VAD configuration
func (v *VADConfig) Validate() error {
	if v.SilenceThreshold < 0 || v.SilenceThreshold > 1 {
		return fmt.Errorf("silence_threshold must be between 0 and 1, got %f", v.SilenceThreshold)
	}

	if v.SilenceDurationMS < 0 {
		return fmt.Errorf("silence_duration_ms cannot be negative, got %d", v.SilenceDurationMS)
	}

	if v.MinUtteranceS < 0 {
		return fmt.Errorf("min_utterance_s cannot be negative, got %f", v.MinUtteranceS)
	}

	if v.MaxUtteranceS <= 0 {
		return fmt.Errorf("max_utterance_s must be positive, got %f", v.MaxUtteranceS)
	}

	if v.MaxUtteranceS <= v.MinUtteranceS {
		return fmt.Errorf("max_utterance_s (%f) must be greater than min_utterance_s (%f)",
			v.MaxUtteranceS, v.MinUtteranceS)
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	if t.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	if t.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", t.MaxRetries)
	}

	if t.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", t.MaxConcurrent)
	}

	return nil
}

// Validate validates translation configuration
func (t *TranslationConfig) Validate() error {
	switch t.Engine {
	case "nllb":
		if t.Endpoint == "" {
			return fmt.Errorf("endpoint cannot be empty for nllb engine")
		}
	case "openai":
		if t.OpenAIAPIKey == "" {
			return fmt.Errorf("openai_api_key cannot be empty for openai engine")
		}
		if t.OpenAIModel == "" {
			return fmt.Errorf("openai_model cannot be empty for openai engine")
		}
	default:
		return fmt.Errorf("engine must be 'nllb' or 'openai', got '%s'", t.Engine)
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetSessionIdleTimeout returns the session idle timeout as a time.Duration
func (s *ServerConfig) GetSessionIdleTimeout() time.Duration {
	return time.Duration(s.SessionIdleTimeout) * time.Second
}

// GetMinAudioLength returns the minimum audio length as a time.Duration
func (a *AudioConfig) GetMinAudioLength() time.Duration {
	return time.Duration(a.MinAudioLengthS * float64(time.Second))
}

// GetSilenceDuration returns the silence duration as a time.Duration
func (v *VADConfig) GetSilenceDuration() time.Duration {
	return time.Duration(v.SilenceDurationMS) * time.Millisecond
}

// GetMinUtterance returns the minimum utterance duration as a time.Duration
func (v *VADConfig) GetMinUtterance() time.Duration {
	return time.Duration(v.MinUtteranceS * float64(time.Second))
}

// GetMaxUtterance returns the maximum utterance duration as a time.Duration
func (v *VADConfig) GetMaxUtterance() time.Duration {
	return time.Duration(v.MaxUtteranceS * float64(time.Second))
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetTimeoutDuration returns the translation timeout as a time.Duration
func (t *TranslationConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}
