package chat

// Role identifies the speaker of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversational entry as stored in session history and as
// handed to brain backends. Backends map Role to their provider's wire names.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}
