package preference

import (
	"sort"
	"sync"
)

// Store is the persistent key-value service preferences are kept in.
// Implemented by MemoryStore, defaults.FileStore, defaults.DomainStore and
// storage.Store.
type Store interface {
	// Lookup returns the stored value and whether one exists.
	Lookup(key string) (Value, bool, error)
	Put(key string, v Value) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	Keys() ([]string, error)
}

// MemoryStore keeps values in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Value
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Value)}
}

func (m *MemoryStore) Lookup(key string) (Value, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Put(key string, v Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string]Value)
	}
	m.data[key] = v
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
