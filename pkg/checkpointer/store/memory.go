package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory checkpoint store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]storedBlob
	closed bool
}

type storedBlob struct {
	data      []byte
	updatedAt time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]storedBlob),
	}
}

// Write implements Store.
func (m *MemoryStore) Write(ctx context.Context, slot string, data []byte) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	// Copy data to avoid retaining caller's slice
	stored := make([]byte, len(data))
	copy(stored, data)

	m.data[slot] = storedBlob{data: stored, updatedAt: time.Now().UTC()}
	return nil
}

// Read implements Store.
func (m *MemoryStore) Read(ctx context.Context, slot string) ([]byte, error) {
	if err := ValidateSlot(slot); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	blob, ok := m.data[slot]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy to prevent modification
	result := make([]byte, len(blob.data))
	copy(result, blob.data)
	return result, nil
}

// Exists implements Store.
func (m *MemoryStore) Exists(ctx context.Context, slot string) (bool, error) {
	if err := ValidateSlot(slot); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, ErrStoreClosed
	}
	_, ok := m.data[slot]
	return ok, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(ctx context.Context, slot string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.data, slot)
	return nil
}

// List implements Store.
func (m *MemoryStore) List(ctx context.Context) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	infos := make([]Info, 0, len(m.data))
	for slot, blob := range m.data {
		infos = append(infos, Info{
			Slot:      slot,
			Size:      int64(len(blob.data)),
			UpdatedAt: blob.updatedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Slot < infos[j].Slot
	})
	return infos, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the number of stored checkpoints.
// Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
