package persistence

import (
	"context"
	"sync"
)

// MemoryStore keeps slots in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// NewMemoryStore returns an empty in-memory slot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string][]byte)}
}

// LoadSlots implements SlotStore.
func (m *MemoryStore) LoadSlots(ctx context.Context, names ...string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]byte, len(names))
	for _, name := range names {
		if payload, ok := m.slots[name]; ok {
			out[name] = append([]byte(nil), payload...)
		}
	}
	return out, nil
}

// SaveSlots implements SlotStore.
func (m *MemoryStore) SaveSlots(ctx context.Context, slots map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, payload := range slots {
		m.slots[name] = append([]byte(nil), payload...)
	}
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
