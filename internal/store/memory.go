package store

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/pkordes/travel-journal/backend/internal/domain"
)

// MemoryStore keeps values in process memory. It is used by tests and by the
// "memory" journal backend for local development; nothing survives a restart.
type MemoryStore struct {
	keys keyLocks

	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("store.MemoryStore.Get %q: %w", key, domain.ErrNotFound)
	}
	return bytes.Clone(v), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = bytes.Clone(value)
	return nil
}

// Delete removes key. It waits for an in-flight Update of the same key.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	unlock := m.keys.lock(key)
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	unlock := m.keys.lock(key)
	defer unlock()

	m.mu.RLock()
	current := bytes.Clone(m.data[key])
	m.mu.RUnlock()

	next, err := fn(current)
	if err != nil || next == nil {
		return err
	}
	return m.Set(ctx, key, next)
}
