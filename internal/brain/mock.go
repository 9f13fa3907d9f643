package brain

import (
	"context"
	"fmt"
	"strings"

	"github.com/akariosaki/hibari/internal/chat"
)

// MockAdapter provides deterministic replies when no real backend is
// configured. Useful for local development and the httpapi tests.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) Name() string { return "mock" }

func (a *MockAdapter) Generate(ctx context.Context, history []chat.Message, newMessage string) (string, error) {
	select {
	case <-ctx.Done():
		return "", &ServiceError{Provider: a.Name(), Code: CodeTransport, Err: ctx.Err()}
	default:
	}

	base := strings.TrimSpace(newMessage)
	if base == "" {
		base = "..."
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == chat.RoleUser && strings.TrimSpace(history[i].Text) != "" {
			return fmt.Sprintf("%s（前回:「%s」）", base, strings.TrimSpace(history[i].Text)), nil
		}
	}
	return base, nil
}
