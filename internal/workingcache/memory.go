package workingcache

import (
	"context"
	"sync"

	"github.com/ourstudio-se/oatdb-go/internal/model"
)

// MemoryBackend is an in-memory Backend for tests and CLI demo use.
type MemoryBackend struct {
	mu sync.RWMutex
	m  map[model.Id]model.WorkingCommit
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{m: make(map[model.Id]model.WorkingCommit)}
}

func (b *MemoryBackend) GetWorkingCommit(_ context.Context, id model.Id) (model.WorkingCommit, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	wc, ok := b.m[id]
	return wc, ok, nil
}

func (b *MemoryBackend) PutWorkingCommit(_ context.Context, wc model.WorkingCommit) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[wc.Id] = wc
	return nil
}

func (b *MemoryBackend) DeleteWorkingCommit(_ context.Context, id model.Id) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.m, id)
	return nil
}
