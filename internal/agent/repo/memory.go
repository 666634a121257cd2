package repo

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/batchwatch-poc/server/internal/agent/model"
)

// MemoryStateStore is the in-process store used for local runs and tests.
// Snapshots are deep-copied through JSON so a caller mutating a loaded state
// never reaches back into the store.
type MemoryStateStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: map[string][]byte{}}
}

func (m *MemoryStateStore) Load(_ context.Context, conversationID string) (*model.ConversationState, error) {
	m.mu.RLock()
	raw, ok := m.states[conversationID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var st model.ConversationState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (m *MemoryStateStore) Save(_ context.Context, st *model.ConversationState) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.states[st.ConversationID] = b
	m.mu.Unlock()
	return nil
}

func (m *MemoryStateStore) Clear(_ context.Context, conversationID string) error {
	m.mu.Lock()
	delete(m.states, conversationID)
	m.mu.Unlock()
	return nil
}
