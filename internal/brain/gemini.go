package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/akariosaki/hibari/internal/chat"
)

// safetyCategories are set to one threshold each on every request. The
// default threshold is BLOCK_NONE, matching the original deployment; content
// policy is delegated entirely to the provider configuration.
var safetyCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiRequest struct {
	Contents       []geminiContent       `json:"contents"`
	SafetySettings []geminiSafetySetting `json:"safetySettings,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiResponse struct {
	// Older API revisions returned a single content object; current ones
	// return a candidate list. Both shapes are accepted.
	Content    *geminiContent    `json:"content,omitempty"`
	Candidates []geminiCandidate `json:"candidates,omitempty"`

	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
}

// GeminiClient calls the generateContent REST endpoint.
type GeminiClient struct {
	apiKey          string
	model           string
	baseURL         string
	safetyThreshold string
	httpClient      *http.Client
	logger          *zap.Logger
}

func NewGeminiClient(cfg Config, logger *zap.Logger) *GeminiClient {
	baseURL := strings.TrimSpace(cfg.GeminiBaseURL)
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	model := strings.TrimSpace(cfg.GeminiModel)
	if model == "" {
		model = "gemini-pro"
	}
	threshold := strings.TrimSpace(cfg.GeminiSafetyThreshold)
	if threshold == "" {
		threshold = "BLOCK_NONE"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiClient{
		apiKey:          cfg.GeminiAPIKey,
		model:           model,
		baseURL:         strings.TrimRight(baseURL, "/"),
		safetyThreshold: threshold,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

func (c *GeminiClient) Name() string { return "gemini" }

func (c *GeminiClient) Generate(ctx context.Context, history []chat.Message, newMessage string) (string, error) {
	contents := make([]geminiContent, 0, len(history)+1)
	for _, m := range history {
		contents = append(contents, geminiContent{
			Role:  geminiRole(m.Role),
			Parts: []geminiPart{{Text: m.Text}},
		})
	}
	contents = append(contents, geminiContent{
		Role:  "user",
		Parts: []geminiPart{{Text: newMessage}},
	})

	settings := make([]geminiSafetySetting, 0, len(safetyCategories))
	for _, category := range safetyCategories {
		settings = append(settings, geminiSafetySetting{Category: category, Threshold: c.safetyThreshold})
	}

	payload, err := json.Marshal(geminiRequest{Contents: contents, SafetySettings: settings})
	if err != nil {
		return "", &ServiceError{Provider: c.Name(), Code: CodeTransport, Err: fmt.Errorf("marshal request: %w", err)}
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &ServiceError{Provider: c.Name(), Code: CodeTransport, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ServiceError{Provider: c.Name(), Code: CodeTransport, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", &ServiceError{
			Provider: c.Name(),
			Code:     classifyStatus(res.StatusCode),
			Err:      fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", &ServiceError{Provider: c.Name(), Code: CodeTransport, Err: fmt.Errorf("read response: %w", err)}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ServiceError{Provider: c.Name(), Code: CodeMalformedResponse, Err: fmt.Errorf("decode response: %w", err)}
	}

	text, ok := extractGeminiText(parsed)
	if !ok {
		if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
			return "", &ServiceError{
				Provider: c.Name(),
				Code:     CodeEmptyResponse,
				Err:      fmt.Errorf("prompt blocked: %s", parsed.PromptFeedback.BlockReason),
			}
		}
		return "", &ServiceError{Provider: c.Name(), Code: CodeEmptyResponse, Err: fmt.Errorf("no text in response")}
	}
	return text, nil
}

// extractGeminiText handles the observed response shapes: a direct
// text-bearing content, a candidate list (first candidate with text wins),
// or neither.
func extractGeminiText(res geminiResponse) (string, bool) {
	if res.Content != nil {
		if text := joinParts(res.Content.Parts); text != "" {
			return text, true
		}
	}
	for _, cand := range res.Candidates {
		if text := joinParts(cand.Content.Parts); text != "" {
			return text, true
		}
	}
	return "", false
}

func joinParts(parts []geminiPart) string {
	var out strings.Builder
	for _, p := range parts {
		out.WriteString(p.Text)
	}
	return strings.TrimSpace(out.String())
}

func geminiRole(r chat.Role) string {
	if r == chat.RoleAssistant {
		return "model"
	}
	return "user"
}
