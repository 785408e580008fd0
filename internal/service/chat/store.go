package chat

import (
	"context"
	"sync"
	"time"

	"github.com/zhouzirui/riji/backend/internal/model/chat"
)

// TranscriptStore persists sessions and their ordered transcripts.
type TranscriptStore interface {
	CreateSession(ctx context.Context, session chat.Session) error
	GetSession(ctx context.Context, sessionID string) (chat.Session, error)
	Touch(ctx context.Context, sessionID string, at time.Time) error
	Append(ctx context.Context, sessionID string, messages ...chat.Message) error
	Transcript(ctx context.Context, sessionID string) ([]chat.Message, error)
	// PruneIdle removes sessions whose last activity is before cutoff and reports how many were dropped.
	PruneIdle(ctx context.Context, cutoff time.Time) (int, error)
}

// MemoryStore keeps transcripts in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	messages map[string][]chat.Message
}

// NewMemoryStore bootstraps an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
	}
}

// CreateSession registers a new session with an empty transcript.
func (s *MemoryStore) CreateSession(_ context.Context, session chat.Session) error {
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.messages[session.ID] = make([]chat.Message, 0, 16)
	s.mu.Unlock()
	return nil
}

// GetSession retrieves a session by identifier.
func (s *MemoryStore) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// Touch records activity on a session.
func (s *MemoryStore) Touch(_ context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	session.LastActiveAt = at
	s.sessions[sessionID] = session
	return nil
}

// Append adds messages to the end of the transcript.
func (s *MemoryStore) Append(_ context.Context, sessionID string, messages ...chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	s.messages[sessionID] = append(s.messages[sessionID], messages...)
	return nil
}

// Transcript returns a copy of the stored messages.
func (s *MemoryStore) Transcript(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

// PruneIdle drops sessions inactive since before cutoff.
func (s *MemoryStore) PruneIdle(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for id, session := range s.sessions {
		if session.LastActiveAt.Before(cutoff) {
			delete(s.sessions, id)
			delete(s.messages, id)
			pruned++
		}
	}
	return pruned, nil
}
