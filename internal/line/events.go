package line

import (
	"encoding/json"
	"fmt"
)

// Event types and source types as delivered by the Messaging API webhook.
const (
	EventTypeMessage = "message"
	MessageTypeText  = "text"
	SourceTypeUser   = "user"
	SourceTypeGroup  = "group"
	SourceTypeRoom   = "room"
)

// Source identifies who triggered a webhook event.
type Source struct {
	Type    string `json:"type"`
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

// EventMessage is the message payload inside a message event.
type EventMessage struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Event is one webhook event.
type Event struct {
	Type       string       `json:"type"`
	ReplyToken string       `json:"replyToken,omitempty"`
	Timestamp  int64        `json:"timestamp"`
	Source     Source       `json:"source"`
	Message    EventMessage `json:"message"`
}

// IsTextMessage reports whether the event is a user text message the relay
// should answer.
func (e Event) IsTextMessage() bool {
	return e.Type == EventTypeMessage && e.Message.Type == MessageTypeText
}

// WebhookRequest is the decoded body of a webhook POST.
type WebhookRequest struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

// DecodeWebhook parses a raw webhook body. The platform may deliver zero
// events (verification pings); that is not an error.
func DecodeWebhook(body []byte) (WebhookRequest, error) {
	var req WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return WebhookRequest{}, fmt.Errorf("decode webhook body: %w", err)
	}
	return req, nil
}
