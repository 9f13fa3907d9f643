package session

import (
	"sync"
	"time"

	"github.com/akariosaki/hibari/internal/chat"
)

// DayOf renders t as the calendar date used for daily quota bookkeeping.
func DayOf(t time.Time) string {
	return t.Format("2006-01-02")
}

// Session is the conversational state for one platform user. History keeps
// every recorded turn; windowing happens at read time in the context builder,
// never here. The session's own mutex serializes the whole read-modify-write
// sequence for that user while the caller holds it via Acquire/Release.
type Session struct {
	mu sync.Mutex

	UserID string

	history       []chat.Message
	requestCount  int
	lastActiveDay string
}

// Store owns the user→session mapping. It is the sole creator and mutator of
// sessions; state lives only for the lifetime of the process.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Acquire returns the session for userID, creating it if absent, with its
// mutex held. The caller must Release when the event has been handled.
func (st *Store) Acquire(userID string) *Session {
	st.mu.Lock()
	s, ok := st.sessions[userID]
	if !ok {
		s = &Session{UserID: userID}
		st.sessions[userID] = s
	}
	st.mu.Unlock()

	s.mu.Lock()
	return s
}

// Release unlocks a session obtained from Acquire.
func (s *Session) Release() {
	s.mu.Unlock()
}

// Len reports how many sessions exist, for the active-sessions gauge.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// ResetIfNewDay reinitializes the session when it is brand new or when the
// last activity was on an earlier calendar date: history cleared, counter
// zeroed, date stamped. Returns true when that happened, so callers can treat
// the freshly (re)initialized case specially.
func (s *Session) ResetIfNewDay(today string) bool {
	if s.lastActiveDay == today {
		return false
	}
	s.history = nil
	s.requestCount = 0
	s.lastActiveDay = today
	return true
}

// QuotaRemaining reports whether another AI call is allowed today.
func (s *Session) QuotaRemaining(limit int) bool {
	return s.requestCount < limit
}

// RequestCount returns the number of AI calls recorded today.
func (s *Session) RequestCount() int {
	return s.requestCount
}

// RecordTurn appends a completed user/assistant exchange, counts it against
// the daily quota and refreshes the activity date. Failed exchanges must not
// be recorded.
func (s *Session) RecordTurn(userText, assistantText, today string) {
	s.history = append(s.history,
		chat.Message{Role: chat.RoleUser, Text: userText},
		chat.Message{Role: chat.RoleAssistant, Text: assistantText},
	)
	s.requestCount++
	s.lastActiveDay = today
}

// History returns a copy of the full stored history, oldest first.
func (s *Session) History() []chat.Message {
	if len(s.history) == 0 {
		return nil
	}
	out := make([]chat.Message, len(s.history))
	copy(out, s.history)
	return out
}
