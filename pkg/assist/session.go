// Package assist implements the four bridge operations: conversation with
// tool dispatch, speech synthesis, transcription, and structured AI tasks.
package assist

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vertex-home/assist-bridge/pkg/types"
)

// defaultMaxHistory bounds stored messages per conversation.
const defaultMaxHistory = 40

// Session is one conversation's stored history.
type Session struct {
	ID        string
	Messages  []types.ChatMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionStore keeps conversation sessions in memory, keyed by
// conversation ID.
type SessionStore struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	maxHistory int
}

// NewSessionStore creates a store. maxHistory <= 0 uses the default.
func NewSessionStore(maxHistory int) *SessionStore {
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}
	return &SessionStore{
		sessions:   make(map[string]*Session),
		maxHistory: maxHistory,
	}
}

// GetOrCreate returns the session for id, creating it if missing. An empty
// id starts a fresh conversation with a generated ID.
func (s *SessionStore) GetOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	if session, ok := s.sessions[id]; ok {
		return session
	}

	session := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.sessions[id] = session
	return session
}

// Append adds messages to a session and prunes oldest entries past the
// history limit.
func (s *SessionStore) Append(id string, messages ...types.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return
	}

	session.Messages = append(session.Messages, messages...)
	if len(session.Messages) > s.maxHistory {
		session.Messages = session.Messages[len(session.Messages)-s.maxHistory:]
	}
	session.UpdatedAt = time.Now()
}

// History returns a copy of the session's messages, or nil for an unknown id.
func (s *SessionStore) History(id string) []types.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil
	}
	out := make([]types.ChatMessage, len(session.Messages))
	copy(out, session.Messages)
	return out
}

// Delete removes a session.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
