package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Hey-Ritik/voice-translation/internal/language"
)

// Translator converts text from a source language to a target language.
// Both languages are ISO 639-1 codes. Implementations return the input text
// unchanged when source and target match or when the pair is unsupported.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Config contains NLLB translator configuration
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// TranslatorStats represents translator statistics
type TranslatorStats struct {
	TotalRequests   uint64  `json:"total_requests"`
	SuccessRequests uint64  `json:"success_requests"`
	FailedRequests  uint64  `json:"failed_requests"`
	IdentityResults uint64  `json:"identity_results"`
	SuccessRate     float64 `json:"success_rate"`
}

// HTTPTranslator calls an NLLB-200 translation server over HTTP.
type HTTPTranslator struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger

	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	identityResults uint64

	mu sync.RWMutex
}

// translateRequest is the NLLB server request payload. Source and target are
// Flores-200 codes.
type translateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// translateResponse is the NLLB server response payload.
type translateResponse struct {
	Translated string `json:"translated"`
}

// NewHTTPTranslator creates an NLLB-backed translator
func NewHTTPTranslator(config Config, logger *slog.Logger) (*HTTPTranslator, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPTranslator{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}, nil
}

// Translate converts text between languages via the NLLB server. It falls
// back to the original text when the language pair cannot be served or the
// request fails, logging the reason.
func (t *HTTPTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	if source == target {
		t.incrementIdentity()
		return text, nil
	}

	srcFlores, ok := language.ToFlores(source)
	if !ok {
		t.logger.Warn("unsupported source language, returning original text",
			slog.String("source", source))
		t.incrementIdentity()
		return text, nil
	}

	tgtFlores, ok := language.ToFlores(target)
	if !ok {
		t.logger.Warn("unsupported target language, returning original text",
			slog.String("target", target))
		t.incrementIdentity()
		return text, nil
	}

	t.incrementTotal()

	translated, err := t.doRequest(ctx, text, srcFlores, tgtFlores)
	if err != nil {
		t.incrementFailed()
		t.logger.Warn("translation request failed, returning original text",
			slog.String("source", source),
			slog.String("target", target),
			slog.String("error", err.Error()))
		return text, nil
	}

	t.incrementSuccess()

	// An empty server result is useless; keep the original text.
	translated = strings.TrimSpace(translated)
	if translated == "" {
		return text, nil
	}

	return translated, nil
}

// doRequest performs a single translation request
func (t *HTTPTranslator) doRequest(ctx context.Context, text, source, target string) (string, error) {
	payload, err := json.Marshal(translateRequest{
		Text:   text,
		Source: source,
		Target: target,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.config.Endpoint+"/translate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	var translateResp translateResponse
	if err := json.Unmarshal(respBody, &translateResp); err != nil {
		return "", fmt.Errorf("failed to parse response JSON: %w", err)
	}

	return translateResp.Translated, nil
}

func (t *HTTPTranslator) incrementTotal() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalRequests++
}

func (t *HTTPTranslator) incrementSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successRequests++
}

func (t *HTTPTranslator) incrementFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failedRequests++
}

func (t *HTTPTranslator) incrementIdentity() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.identityResults++
}

// GetStats returns current translator statistics
func (t *HTTPTranslator) GetStats() TranslatorStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	successRate := float64(0)
	if t.totalRequests > 0 {
		successRate = float64(t.successRequests) / float64(t.totalRequests) * 100
	}

	return TranslatorStats{
		TotalRequests:   t.totalRequests,
		SuccessRequests: t.successRequests,
		FailedRequests:  t.failedRequests,
		IdentityResults: t.identityResults,
		SuccessRate:     successRate,
	}
}
