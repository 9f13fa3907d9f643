package brain

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/akariosaki/hibari/internal/chat"
)

// OpenAIAdapter is the chat-completions backend.
type OpenAIAdapter struct {
	client *openai.Client
	model  string
}

func NewOpenAIAdapter(cfg Config) *OpenAIAdapter {
	model := strings.TrimSpace(cfg.OpenAIModel)
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIAdapter{
		client: openai.NewClient(cfg.OpenAIAPIKey),
		model:  model,
	}
}

func (a *OpenAIAdapter) Name() string { return "openai" }

func (a *OpenAIAdapter) Generate(ctx context.Context, history []chat.Message, newMessage string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openaiRole(m.Role),
			Content: m.Text,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: newMessage,
	})

	res, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: messages,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &ServiceError{Provider: a.Name(), Code: classifyStatus(apiErr.HTTPStatusCode), Err: err}
		}
		return "", &ServiceError{Provider: a.Name(), Code: CodeTransport, Err: err}
	}

	for _, choice := range res.Choices {
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			return text, nil
		}
	}
	return "", &ServiceError{Provider: a.Name(), Code: CodeEmptyResponse, Err: errors.New("no text in response")}
}

func openaiRole(r chat.Role) string {
	if r == chat.RoleAssistant {
		return openai.ChatMessageRoleAssistant
	}
	return openai.ChatMessageRoleUser
}
