package keystore

import (
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is a thread-safe in-memory key store backed by sync.RWMutex.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[string]*KeyEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys: make(map[string]*KeyEntry),
	}
}

func (m *MemoryStore) Put(entry *KeyEntry) error {
	if err := ValidateName(entry.Name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.keys[entry.Name]; exists {
		return fmt.Errorf("%w: %s", ErrKeyExists, entry.Name)
	}
	m.keys[entry.Name] = entry
	return nil
}

func (m *MemoryStore) Get(name string) (*KeyEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.keys[name]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return entry, nil
}

// List returns all entries ordered by name.
func (m *MemoryStore) List() ([]*KeyEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*KeyEntry, 0, len(m.keys))
	for _, entry := range m.keys {
		result = append(result, entry)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *MemoryStore) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.keys[name]; !ok {
		return ErrKeyNotFound
	}
	delete(m.keys, name)
	return nil
}
