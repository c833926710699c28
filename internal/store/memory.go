package store

import (
	"context"
	"sync"

	"github.com/capitalize-ai/chatdesk/pkg/metrics"
)

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

// Load returns a copy of the value stored under key.
func (s *MemoryStore) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	v, ok := s.values[key]
	s.mu.RUnlock()

	if !ok {
		metrics.RecordStore(BackendMemory, key, "load", ErrNotFound)
		return nil, ErrNotFound
	}
	metrics.RecordStore(BackendMemory, key, "load", nil)
	return append([]byte(nil), v...), nil
}

// Save replaces the value stored under key.
func (s *MemoryStore) Save(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.values[key] = append([]byte(nil), value...)
	s.mu.Unlock()

	metrics.RecordStore(BackendMemory, key, "save", nil)
	return nil
}
