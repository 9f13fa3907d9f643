package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxTextRunes is the platform cap on a single text message.
const maxTextRunes = 5000

// TextMessage is one outgoing text message.
type TextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []TextMessage `json:"messages"`
}

// ReplyError describes a failed reply delivery. Reply tokens are single-use
// and expire within seconds, so a failed send is never retried.
type ReplyError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ReplyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line reply: %v", e.Err)
	}
	return fmt.Sprintf("line reply: status %d: %s", e.StatusCode, e.Body)
}

func (e *ReplyError) Unwrap() error { return e.Err }

// Client talks to the Messaging API reply endpoint.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	logger      *zap.Logger
}

func NewClient(baseURL, accessToken string, logger *zap.Logger) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://api.line.me"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Reply sends texts back through the one-shot reply mechanism keyed by
// replyToken. Each text is truncated to the platform cap.
func (c *Client) Reply(ctx context.Context, replyToken string, texts ...string) error {
	if strings.TrimSpace(replyToken) == "" {
		return &ReplyError{Err: fmt.Errorf("empty reply token")}
	}
	if len(texts) == 0 {
		return &ReplyError{Err: fmt.Errorf("no messages to send")}
	}

	messages := make([]TextMessage, 0, len(texts))
	for _, text := range texts {
		messages = append(messages, TextMessage{Type: "text", Text: truncateRunes(text, maxTextRunes)})
	}

	payload, err := json.Marshal(replyRequest{ReplyToken: replyToken, Messages: messages})
	if err != nil {
		return &ReplyError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/bot/message/reply", bytes.NewReader(payload))
	if err != nil {
		return &ReplyError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return &ReplyError{Err: fmt.Errorf("send request: %w", err)}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		c.logger.Warn("reply delivery rejected",
			zap.Int("status", res.StatusCode),
			zap.String("body", string(body)),
		)
		return &ReplyError{StatusCode: res.StatusCode, Body: string(body)}
	}
	return nil
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
