package freeze

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory, thread-safe Store for testing and development.
// Snapshot data is copied through a JSON round trip on write and read, so
// stored anchors behave like rows in a real datastore (callers never share
// map references with the store, and numeric types normalise the same way
// they would coming back from a JSON column).
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[uuid.UUID]*Document
	anchors   map[uuid.UUID]*Anchor
	byDoc     map[uuid.UUID][]uuid.UUID // documentID → anchor ids, version order
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[uuid.UUID]*Document),
		anchors:   make(map[uuid.UUID]*Anchor),
		byDoc:     make(map[uuid.UUID][]uuid.UUID),
	}
}

// CreateDocument implements Store.
func (m *MemoryStore) CreateDocument(_ context.Context, d *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.documents[d.ID] = &cp
	return nil
}

// GetDocument implements Store.
func (m *MemoryStore) GetDocument(_ context.Context, id uuid.UUID) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

// UpdateDocument implements Store.
func (m *MemoryStore) UpdateDocument(_ context.Context, id uuid.UUID, title, body string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	if d.Status == DocumentFrozen {
		return nil, ErrAlreadyFrozen
	}
	d.Title = title
	d.Body = body
	d.Version++
	d.UpdatedAt = time.Now().UTC()
	cp := *d
	return &cp, nil
}

// CreateAnchor implements Store. The frozen-status check is repeated under
// the lock so two racing freezes cannot both insert.
func (m *MemoryStore) CreateAnchor(_ context.Context, a *Anchor, frozenBy string, frozenAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.documents[a.DocumentID]
	if !ok {
		return ErrNotFound
	}
	if d.Status == DocumentFrozen {
		return ErrAlreadyFrozen
	}

	cp, err := copyAnchor(a)
	if err != nil {
		return err
	}
	m.anchors[a.AnchorID] = cp
	m.byDoc[a.DocumentID] = append(m.byDoc[a.DocumentID], a.AnchorID)

	d.Status = DocumentFrozen
	d.FrozenBy = frozenBy
	at := frozenAt
	d.FrozenAt = &at
	d.UpdatedAt = frozenAt
	return nil
}

// GetAnchor implements Store.
func (m *MemoryStore) GetAnchor(_ context.Context, anchorID uuid.UUID) (*Anchor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.anchors[anchorID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyAnchor(a)
}

// GetAnchorByDigest implements Store.
func (m *MemoryStore) GetAnchorByDigest(_ context.Context, digest string) (*Anchor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.anchors {
		if a.CurrentDigest == digest {
			return copyAnchor(a)
		}
	}
	return nil, ErrNotFound
}

// LatestAnchor implements Store.
func (m *MemoryStore) LatestAnchor(_ context.Context, documentID uuid.UUID) (*Anchor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byDoc[documentID]
	var latest *Anchor
	for _, id := range ids {
		a := m.anchors[id]
		if latest == nil || a.VersionNumber > latest.VersionNumber {
			latest = a
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return copyAnchor(latest)
}

func copyAnchor(a *Anchor) (*Anchor, error) {
	cp := *a
	if a.SnapshotData != nil {
		raw, err := json.Marshal(a.SnapshotData)
		if err != nil {
			return nil, err
		}
		var data map[string]any
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, err
		}
		cp.SnapshotData = data
	}
	return &cp, nil
}
