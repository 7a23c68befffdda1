package translation

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/Hey-Ritik/voice-translation/internal/language"
)

// OpenAITranslator translates text via OpenAI chat completions. It is the
// fallback engine for deployments without a local NLLB server.
type OpenAITranslator struct {
	client oai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAITranslator creates an OpenAI-backed translator
func NewOpenAITranslator(apiKey, model string, timeout time.Duration, logger *slog.Logger) (*OpenAITranslator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}

	if model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}

	if logger == nil {
		logger = slog.Default()
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: timeout}))
	}

	return &OpenAITranslator{
		client: oai.NewClient(reqOpts...),
		model:  model,
		logger: logger,
	}, nil
}

// Translate converts text between languages via a chat completion. It falls
// back to the original text when the request fails.
func (t *OpenAITranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	if source == target {
		return text, nil
	}

	sourceName := language.DisplayName(source)
	targetName := language.DisplayName(target)

	system := fmt.Sprintf(
		"You are a translation engine. Translate the user's text from %s to %s. "+
			"Reply with the translation only, no explanations or quotes.",
		sourceName, targetName)

	resp, err := t.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(t.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(system),
			oai.UserMessage(text),
		},
	})
	if err != nil {
		t.logger.Warn("chat completion failed, returning original text",
			slog.String("source", source),
			slog.String("target", target),
			slog.String("error", err.Error()))
		return text, nil
	}

	if len(resp.Choices) == 0 {
		t.logger.Warn("empty completion response, returning original text")
		return text, nil
	}

	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	if translated == "" {
		return text, nil
	}

	return translated, nil
}
