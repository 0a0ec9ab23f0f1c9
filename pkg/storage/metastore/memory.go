package metastore

import (
	"context"
	"sync"

	"github.com/tidwall/btree"
)

// MemoryStore keeps items in an ordered in-process map.
type MemoryStore struct {
	mu    sync.RWMutex
	items btree.Map[string, Item]
	puts  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Put(ctx context.Context, item Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.items.Set(item.ID, item)
	m.puts++
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items.Get(id)
	if !ok {
		return Item{}, ErrNotFound
	}
	return item, nil
}

// List returns all items ordered by id.
func (m *MemoryStore) List() []Item {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Item, 0, m.items.Len())
	m.items.Scan(func(_ string, item Item) bool {
		out = append(out, item)
		return true
	})
	return out
}

// Puts reports how many writes the store has accepted.
func (m *MemoryStore) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

func (m *MemoryStore) Close() error {
	return nil
}
