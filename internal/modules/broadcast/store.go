// README: Broadcast storage contract and the in-memory implementation.
package broadcast

import (
	"context"
	"sync"
	"time"

	"campuspool/internal/types"
)

type Store interface {
	Save(ctx context.Context, b *Broadcast) error
	// ListActive returns broadcasts with ExpiresAt after now.
	ListActive(ctx context.Context, now time.Time) ([]*Broadcast, error)
	// DeleteExpired removes broadcasts with ExpiresAt at or before now and reports how many.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type MemoryStore struct {
	mu    sync.RWMutex
	items map[types.ID]*Broadcast
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[types.ID]*Broadcast)}
}

func (m *MemoryStore) Save(_ context.Context, b *Broadcast) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[b.ID] = b.Clone()
	return nil
}

func (m *MemoryStore) ListActive(_ context.Context, now time.Time) ([]*Broadcast, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Broadcast, 0, len(m.items))
	for _, b := range m.items {
		if b.ActiveAt(now) {
			out = append(out, b.Clone())
		}
	}
	return out, nil
}

func (m *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, b := range m.items {
		if !b.ActiveAt(now) {
			delete(m.items, id)
			n++
		}
	}
	return n, nil
}

// Len counts stored broadcasts, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
