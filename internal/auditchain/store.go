package auditchain

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a chain entry does not exist.
var ErrNotFound = errors.New("chain entry not found")

// EntryStore persists chain entries in the primary datastore. Entries are
// append-only: no implementation updates or deletes a row after insertion.
// List returns entries in insertion order, which is the chain's creation
// order.
type EntryStore interface {
	Insert(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	List(ctx context.Context, limit, offset int) ([]*Entry, error)
	Count(ctx context.Context) (int, error)
}

// MemoryStore is an in-memory, thread-safe EntryStore for testing and
// single-process development deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry
	byID    map[uuid.UUID]int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[uuid.UUID]int)}
}

// Insert implements EntryStore.
func (m *MemoryStore) Insert(_ context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.byID[e.EntryID] = len(m.entries)
	m.entries = append(m.entries, &cp)
	return nil
}

// GetByID implements EntryStore.
func (m *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.entries[i]
	return &cp, nil
}

// List implements EntryStore.
func (m *MemoryStore) List(_ context.Context, limit, offset int) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if offset >= len(m.entries) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(m.entries) {
		end = len(m.entries)
	}
	out := make([]*Entry, 0, end-offset)
	for _, e := range m.entries[offset:end] {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

// Count implements EntryStore.
func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}
