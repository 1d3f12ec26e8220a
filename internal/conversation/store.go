package conversation

import (
	"context"
	"fmt"
	"sync"

	"github.com/wolfman30/property-match-ai/internal/dialogue"
)

// Store persists conversation state keyed by conversation id. Implementations
// hand out copies; mutating a returned state has no effect until Save.
//
// Save is a compare-and-set on ConversationState.Version: it fails with
// ErrStateConflict unless the stored version still equals state.Version (zero
// for a conversation not yet stored), and bumps state.Version on success.
type Store interface {
	Get(ctx context.Context, conversationID string) (*dialogue.ConversationState, error)
	Save(ctx context.Context, state *dialogue.ConversationState) error
}

// MemoryStore keeps state in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*dialogue.ConversationState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]*dialogue.ConversationState)}
}

// Get returns a copy of the stored state.
func (s *MemoryStore) Get(_ context.Context, conversationID string) (*dialogue.ConversationState, error) {
	s.mu.RLock()
	state, ok := s.states[conversationID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrConversationNotFound
	}
	return state.Clone(), nil
}

// Save replaces the stored state with a copy of state.
func (s *MemoryStore) Save(_ context.Context, state *dialogue.ConversationState) error {
	if state == nil || state.ID == "" {
		return fmt.Errorf("conversation: save: %w", ErrMissingConversationID)
	}
	snapshot := state.Clone()
	snapshot.Version++

	s.mu.Lock()
	defer s.mu.Unlock()
	var stored int64
	if current, ok := s.states[state.ID]; ok {
		stored = current.Version
	}
	if stored != state.Version {
		return fmt.Errorf("conversation: save %s at version %d (stored %d): %w", state.ID, state.Version, stored, ErrStateConflict)
	}
	s.states[state.ID] = snapshot
	state.Version = snapshot.Version
	return nil
}

// Len reports how many conversations are held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}
