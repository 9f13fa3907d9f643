package brain

import "github.com/akariosaki/hibari/internal/chat"

// BuildContext assembles the primed history for one AI call: the persona
// directive and its fixed acknowledgment first, then the most recent
// maxTurnPairs user/assistant pairs of history in original order. The newest
// user message is not part of the output; callers pass it to Generate
// separately. Output length is therefore bounded by 2*maxTurnPairs + 2
// no matter how long the stored history is.
func BuildContext(directive, ack string, history []chat.Message, maxTurnPairs int) []chat.Message {
	window := maxTurnPairs * 2
	if window < 0 {
		window = 0
	}
	start := len(history) - window
	if start < 0 {
		start = 0
	}

	out := make([]chat.Message, 0, 2+len(history)-start)
	out = append(out,
		chat.Message{Role: chat.RoleUser, Text: directive},
		chat.Message{Role: chat.RoleAssistant, Text: ack},
	)
	out = append(out, history[start:]...)
	return out
}
