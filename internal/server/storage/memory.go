package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps attachments in memory. Used when no on-disk state is
// wanted, and in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	base, err := BaseName(name)
	if err != nil {
		return "", err
	}

	handle := "mem/" + base
	s.mu.Lock()
	s.files[handle] = append([]byte(nil), data...)
	s.mu.Unlock()
	return handle, nil
}

// Get returns a copy of the bytes stored under handle.
func (s *MemoryStore) Get(handle string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.files[handle]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), b...), true
}
