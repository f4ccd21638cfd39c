package branchstore

import (
	"context"
	"sync"

	"github.com/ourstudio-se/oatdb-go/internal/model"
)

// MemoryBackend is an in-memory Backend for tests and CLI demo use.
type MemoryBackend struct {
	mu        sync.RWMutex
	branches  map[model.BranchKey]model.Branch
	databases map[model.Id]model.Database
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		branches:  make(map[model.BranchKey]model.Branch),
		databases: make(map[model.Id]model.Database),
	}
}

func (m *MemoryBackend) PutDatabase(db model.Database) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.databases[db.Id] = db
}

func (m *MemoryBackend) GetDatabase(_ context.Context, dbId model.Id) (model.Database, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	db, ok := m.databases[dbId]
	return db, ok, nil
}

func (m *MemoryBackend) GetBranch(_ context.Context, dbId model.Id, name string) (model.Branch, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.branches[model.BranchKey{DatabaseId: dbId, Name: name}]
	return b, ok, nil
}

func (m *MemoryBackend) ListBranches(_ context.Context, dbId model.Id) ([]model.Branch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Branch
	for k, b := range m.branches {
		if k.DatabaseId == dbId {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *MemoryBackend) UpsertBranch(_ context.Context, b model.Branch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.branches[b.Key()] = b
	return nil
}

func (m *MemoryBackend) DeleteBranch(_ context.Context, dbId model.Id, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.branches, model.BranchKey{DatabaseId: dbId, Name: name})
	return nil
}
