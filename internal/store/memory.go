package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rcliao/cardfolio/internal/model"
)

// MemoryRepository keeps snapshots in process memory. It is the stub backend
// for the remote save endpoint; contents are lost on restart.
type MemoryRepository struct {
	mu    sync.RWMutex
	snaps map[string][]byte
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{snaps: make(map[string][]byte)}
}

// Put implements Repository. Snapshots are stored encoded so callers cannot
// mutate what was saved.
func (r *MemoryRepository) Put(_ context.Context, snap model.SavedContent) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	r.mu.Lock()
	r.snaps[snap.ID] = data
	r.mu.Unlock()
	return nil
}

// Get implements Repository.
func (r *MemoryRepository) Get(_ context.Context, id string) (*model.SavedContent, error) {
	r.mu.RLock()
	data, ok := r.snaps[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
	}
	var snap model.SavedContent
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return &snap, nil
}

// Len reports how many snapshots are stored.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.snaps)
}

// Close implements Repository.
func (r *MemoryRepository) Close() error { return nil }

// MemoryLocalStore is an in-memory LocalStore.
type MemoryLocalStore struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemoryLocalStore returns an empty store.
func NewMemoryLocalStore() *MemoryLocalStore {
	return &MemoryLocalStore{items: make(map[string]string)}
}

// GetItem implements LocalStore.
func (m *MemoryLocalStore) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

// SetItem implements LocalStore.
func (m *MemoryLocalStore) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.items[key] = value
	m.mu.Unlock()
	return nil
}

// RemoveItem implements LocalStore.
func (m *MemoryLocalStore) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}
