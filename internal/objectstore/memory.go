package objectstore

import (
	"context"
	"sync"

	"github.com/ourstudio-se/oatdb-go/internal/model"
)

// MemoryBackend is an in-memory Backend, used by tests and by the CLI
// when no durable store is configured.
type MemoryBackend struct {
	mu      sync.RWMutex
	commits map[string]model.Commit
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{commits: make(map[string]model.Commit)}
}

func (m *MemoryBackend) PutCommit(_ context.Context, c model.Commit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits[c.Hash] = c
	return nil
}

func (m *MemoryBackend) GetCommit(_ context.Context, hash string) (model.Commit, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.commits[hash]
	return c, ok, nil
}
