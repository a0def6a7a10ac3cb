package ledger

import (
	"context"
	"sync"
)

// MemoryStore keeps processed events in a map guarded by a mutex.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string]ProcessedEvent
}

// NewMemoryStore returns an empty in-process Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string]ProcessedEvent)}
}

func (m *MemoryStore) Insert(_ context.Context, ev ProcessedEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[ev.EventID]; ok {
		return false, nil
	}
	m.events[ev.EventID] = ev
	return true, nil
}

func (m *MemoryStore) Exists(_ context.Context, eventID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.events[eventID]
	return ok, nil
}

// Len returns the number of recorded events.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}
