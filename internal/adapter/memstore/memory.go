package memstore

import (
	"context"
	"sync"

	"qabot/internal/domain"
)

// MemoryStore keeps session transcripts in process memory. Transcripts are
// lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]domain.ConversationTurn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]domain.ConversationTurn),
	}
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, turn domain.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], turn)
	return nil
}

// History returns a copy so callers cannot rewrite the log.
func (s *MemoryStore) History(_ context.Context, sessionID string) ([]domain.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.sessions[sessionID]
	out := make([]domain.ConversationTurn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) Close() error {
	return nil
}
