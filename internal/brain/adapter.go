package brain

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/akariosaki/hibari/internal/chat"
)

// Adapter generates an assistant reply from primed history plus the newest
// user message. Every failure is reported as *ServiceError so callers have a
// single branch for "the AI did not produce text".
type Adapter interface {
	Name() string
	Generate(ctx context.Context, history []chat.Message, newMessage string) (string, error)
}

// Error codes carried by ServiceError. HTTP statuses are collapsed into
// coarse classes; the relay treats them all the same, the codes exist for
// logs and the brain_errors_total metric.
const (
	CodeTransport         = "transport"
	CodeHTTPClientError   = "http_4xx"
	CodeHTTPRateLimited   = "http_429"
	CodeHTTPServerError   = "http_5xx"
	CodeEmptyResponse     = "empty_response"
	CodeMalformedResponse = "malformed_response"
)

// ServiceError is the single failure kind surfaced by adapters.
type ServiceError struct {
	Provider string
	Code     string
	Err      error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s brain: %s: %v", e.Provider, e.Code, e.Err)
	}
	return fmt.Sprintf("%s brain: %s", e.Provider, e.Code)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// classifyStatus maps an upstream HTTP status to an error code.
func classifyStatus(status int) string {
	switch {
	case status == 429:
		return CodeHTTPRateLimited
	case status >= 500:
		return CodeHTTPServerError
	default:
		return CodeHTTPClientError
	}
}

// Config controls adapter construction.
type Config struct {
	Provider string

	GeminiAPIKey          string
	GeminiModel           string
	GeminiBaseURL         string
	GeminiSafetyThreshold string

	OpenAIAPIKey string
	OpenAIModel  string
}

// NewAdapter builds the backend for the configured provider mode. Mode auto
// picks gemini when its key is present, then openai, then the mock.
func NewAdapter(cfg Config, logger *zap.Logger) (Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mode := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
			return NewGeminiClient(cfg, logger), nil
		}
		if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
			return NewOpenAIAdapter(cfg), nil
		}
		logger.Warn("no brain API key configured, using mock backend")
		return NewMockAdapter(), nil
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return nil, fmt.Errorf("gemini API key is required for gemini mode")
		}
		return NewGeminiClient(cfg, logger), nil
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, fmt.Errorf("openai API key is required for openai mode")
		}
		return NewOpenAIAdapter(cfg), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported brain provider %q", cfg.Provider)
	}
}
