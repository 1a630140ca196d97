package memory

import (
	"context"
	"sync"

	"github.com/aretw0/furrow/pkg/domain"
)

// Store implements ports.ContextStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.ConversationContext
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.ConversationContext),
	}
}

// Save stores a deep copy of the conversation.
func (s *Store) Save(ctx context.Context, conversationID string, conv *domain.ConversationContext) error {
	snapshot := conv.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[conversationID] = snapshot
	return nil
}

// Load returns a copy so the caller can't mutate stored state through the pointer.
func (s *Store) Load(ctx context.Context, conversationID string) (*domain.ConversationContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.data[conversationID]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	ret := conv.Clone()
	return &ret, nil
}

// Delete removes the conversation.
func (s *Store) Delete(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, conversationID)
	return nil
}

// List returns the stored conversation IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
