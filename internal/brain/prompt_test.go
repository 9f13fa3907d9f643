package brain

import (
	"fmt"
	"testing"

	"github.com/akariosaki/hibari/internal/chat"
)

func TestBuildContextAlwaysStartsWithPrimingPair(t *testing.T) {
	got := BuildContext("directive", "ack", nil, 6)
	if len(got) != 2 {
		t.Fatalf("context length = %d, want 2 for empty history", len(got))
	}
	if got[0].Role != chat.RoleUser || got[0].Text != "directive" {
		t.Fatalf("unexpected first entry: %+v", got[0])
	}
	if got[1].Role != chat.RoleAssistant || got[1].Text != "ack" {
		t.Fatalf("unexpected second entry: %+v", got[1])
	}
}

func TestBuildContextBoundsLongHistory(t *testing.T) {
	maxPairs := 6
	var history []chat.Message
	for i := 0; i < 200; i++ {
		history = append(history,
			chat.Message{Role: chat.RoleUser, Text: fmt.Sprintf("q%d", i)},
			chat.Message{Role: chat.RoleAssistant, Text: fmt.Sprintf("a%d", i)},
		)
	}

	got := BuildContext("d", "a", history, maxPairs)
	if want := 2*maxPairs + 2; len(got) != want {
		t.Fatalf("context length = %d, want %d", len(got), want)
	}
	// Window holds the most recent pairs oldest-first.
	if got[2].Text != "q194" {
		t.Fatalf("window start = %q, want %q", got[2].Text, "q194")
	}
	if got[len(got)-1].Text != "a199" {
		t.Fatalf("window end = %q, want %q", got[len(got)-1].Text, "a199")
	}
}

func TestBuildContextWindowScenario(t *testing.T) {
	// User sent M1..M4 as completed turns; M5 is the message being answered
	// and is not in history yet. With maxPairs=2 the context must hold the
	// priming pair plus the M3 and M4 turns only.
	var history []chat.Message
	for i := 1; i <= 4; i++ {
		history = append(history,
			chat.Message{Role: chat.RoleUser, Text: fmt.Sprintf("M%d", i)},
			chat.Message{Role: chat.RoleAssistant, Text: fmt.Sprintf("R%d", i)},
		)
	}

	got := BuildContext("d", "a", history, 2)
	if len(got) != 6 {
		t.Fatalf("context length = %d, want 6", len(got))
	}
	wantTexts := []string{"d", "a", "M3", "R3", "M4", "R4"}
	for i, want := range wantTexts {
		if got[i].Text != want {
			t.Fatalf("entry %d = %q, want %q", i, got[i].Text, want)
		}
	}
}

func TestBuildContextShortHistoryKeptWhole(t *testing.T) {
	history := []chat.Message{
		{Role: chat.RoleUser, Text: "M1"},
		{Role: chat.RoleAssistant, Text: "R1"},
	}
	got := BuildContext("d", "a", history, 6)
	if len(got) != 4 {
		t.Fatalf("context length = %d, want 4", len(got))
	}
	if got[2].Text != "M1" || got[3].Text != "R1" {
		t.Fatalf("unexpected window: %+v", got[2:])
	}
}
