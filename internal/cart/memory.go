package cart

import (
	"context"
	"sync"
)

// MemoryRepository keeps carts in process memory. Used by tests and local runs.
type MemoryRepository struct {
	mu    sync.Mutex
	carts map[string][]CartItem
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{carts: map[string][]CartItem{}}
}

func (m *MemoryRepository) Load(_ context.Context, sessionID string) ([]CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneItems(m.carts[sessionID]), nil
}

func (m *MemoryRepository) Save(_ context.Context, sessionID string, items []CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(items) == 0 {
		delete(m.carts, sessionID)
		return nil
	}
	m.carts[sessionID] = cloneItems(items)
	return nil
}
