package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"dissent/internal/domain"
)

type memEntry struct {
	value   []byte
	version domain.Version
}

// MemoryStore is an in-process SecretStore.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memEntry)}
}

// Get returns a copy of the value stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, domain.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, 0, domain.ErrNotFound
	}
	return append([]byte(nil), e.value...), e.version, nil
}

// Set stores value unconditionally.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) (domain.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.entries[key].version + 1
	s.entries[key] = memEntry{value: append([]byte(nil), value...), version: v}
	return v, nil
}

// CompareAndSwap stores value only if key is at the expected version.
func (s *MemoryStore) CompareAndSwap(
	_ context.Context,
	key string,
	expected domain.Version,
	value []byte,
) (domain.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[key].version != expected {
		return 0, domain.ErrVersionConflict
	}
	v := expected + 1
	s.entries[key] = memEntry{value: append([]byte(nil), value...), version: v}
	return v, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// List returns the sorted keys that start with prefix.
func (s *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

var _ domain.SecretStore = (*MemoryStore)(nil)
