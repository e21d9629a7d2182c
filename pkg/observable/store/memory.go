package store

import (
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps snapshots in memory. Data is lost when the process
// exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[string]snapshot // kind -> id -> snapshot
	seq    map[string]int                 // kind -> last sequence
	closed bool
}

type snapshot struct {
	data      []byte
	sequence  int
	timestamp time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string]snapshot),
		seq:  make(map[string]int),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(kind, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if m.data[kind] == nil {
		m.data[kind] = make(map[string]snapshot)
	}
	m.seq[kind]++
	m.data[kind][id] = snapshot{
		data:      slices.Clone(data),
		sequence:  m.seq[kind],
		timestamp: time.Now().UTC(),
	}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(kind, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	s, ok := m.data[kind][id]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(s.data), nil
}

// List implements Store.
func (m *MemoryStore) List(kind string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	infos := make([]Info, 0, len(m.data[kind]))
	for id, s := range m.data[kind] {
		infos = append(infos, Info{
			Kind:      kind,
			ID:        id,
			Sequence:  s.sequence,
			Timestamp: s.timestamp,
			Size:      int64(len(s.data)),
		})
	}
	slices.SortFunc(infos, func(a, b Info) int { return a.Sequence - b.Sequence })
	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.data[kind], id)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the number of snapshots across all kinds.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, byID := range m.data {
		n += len(byID)
	}
	return n
}
