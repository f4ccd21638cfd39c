// Package workingcache implements C4: the mutable working-commit
// staging store plus its process-wide TTL cache with dirty tracking.
//
// The cache itself has no direct BeadsLog analogue (BeadsLog doesn't
// TTL-cache in-memory staging state); its writer-preferred RW-guard and
// explicit-sweep-over-background-goroutine shape is grounded on the
// idiom BeadsLog's internal/syncbranch force-push check uses: an
// explicit, callable check rather than an always-on background poller.
package workingcache

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/ourstudio-se/oatdb-go/internal/apperr"
	"github.com/ourstudio-se/oatdb-go/internal/model"
)

// DefaultTTL is the nominal cache entry lifetime from spec.md section 4.3.
const DefaultTTL = time.Hour

// Backend is the durable row store a WorkingCommit is written to/read
// from; maps onto the `working_commits` table from spec.md section 6.
type Backend interface {
	GetWorkingCommit(ctx context.Context, id model.Id) (model.WorkingCommit, bool, error)
	PutWorkingCommit(ctx context.Context, wc model.WorkingCommit) error
	DeleteWorkingCommit(ctx context.Context, id model.Id) error
}

// CommitSource supplies the branch head snapshot a new WorkingCommit is
// seeded from.
type CommitSource interface {
	Data(ctx context.Context, hash string) (model.CommitData, error)
}

type entry struct {
	wc           model.WorkingCommit
	lastAccessed time.Time
	dirty        bool
}

// Store is the working-commit store + cache described in spec.md section
// 4.3. Multiple Stores may be constructed independently (it holds no
// package-level state), so tests get an isolated cache each.
type Store struct {
	mu      sync.RWMutex // writer-preferred: all cache mutation holds the write lock
	backend Backend
	ttl     time.Duration

	byId     map[model.Id]*entry
	activeBy map[model.BranchKey]model.Id

	flushLock *flock.Flock // cross-process guard around Flush's backend sweep
}

// New constructs a Store. lockPath, when non-empty, names a file
// cross-process Flush sweeps serialize on (spec.md section 9: multiple
// oatdb processes sharing one sqlite file must not race a flush sweep
// against each other); an empty lockPath disables cross-process locking
// and only the in-process mutex applies.
func New(backend Backend, ttl time.Duration, lockPath string) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		backend:  backend,
		ttl:      ttl,
		byId:     make(map[model.Id]*entry),
		activeBy: make(map[model.BranchKey]model.Id),
	}
	if lockPath != "" {
		s.flushLock = flock.New(lockPath)
	}
	return s
}

// Create snapshots the branch's current head (or an empty payload if the
// branch has no head yet) into a new active WorkingCommit.
func (s *Store) Create(ctx context.Context, source CommitSource, branch model.Branch, author string) (model.WorkingCommit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingId, ok := s.activeBy[branch.Key()]; ok {
		if e, ok := s.byId[existingId]; ok && e.wc.Status == model.WorkingActive {
			return model.WorkingCommit{}, apperr.New(apperr.Conflict, "branch %s already has an active working commit", branch.Name)
		}
	}

	var data model.CommitData
	if branch.CurrentCommitHash != "" {
		var err error
		data, err = source.Data(ctx, branch.CurrentCommitHash)
		if err != nil {
			return model.WorkingCommit{}, err
		}
	}

	now := time.Now().UTC()
	wc := model.WorkingCommit{
		Id:            model.NewId(),
		DatabaseId:    branch.DatabaseId,
		BranchName:    branch.Name,
		BasedOnHash:   branch.CurrentCommitHash,
		Author:        author,
		CreatedAt:     now,
		UpdatedAt:     now,
		SchemaData:    data.Schema,
		InstancesData: data.Instances,
		Status:        model.WorkingActive,
	}

	if err := s.backend.PutWorkingCommit(ctx, wc); err != nil {
		return model.WorkingCommit{}, err
	}
	s.byId[wc.Id] = &entry{wc: wc, lastAccessed: now}
	s.activeBy[branch.Key()] = wc.Id
	return wc, nil
}

// Get fetches a WorkingCommit by id, populating the cache from the
// backend on a miss and refreshing lastAccessed on a hit. Entries older
// than the configured TTL are treated as expired and re-fetched, unless
// they are dirty (holding edits not yet flushed).
func (s *Store) Get(ctx context.Context, id model.Id) (model.WorkingCommit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx, id)
}

func (s *Store) getLocked(ctx context.Context, id model.Id) (model.WorkingCommit, error) {
	if e, ok := s.byId[id]; ok && (e.dirty || time.Since(e.lastAccessed) < s.ttl) {
		e.lastAccessed = time.Now().UTC()
		return e.wc, nil
	}

	wc, ok, err := s.backend.GetWorkingCommit(ctx, id)
	if err != nil {
		return model.WorkingCommit{}, err
	}
	if !ok {
		delete(s.byId, id)
		return model.WorkingCommit{}, apperr.New(apperr.NotFound, "working commit %s not found", id)
	}
	s.byId[id] = &entry{wc: wc, lastAccessed: time.Now().UTC()}
	return wc, nil
}

// GetActiveForBranch returns the active working commit for a branch, if
// any.
func (s *Store) GetActiveForBranch(ctx context.Context, dbId model.Id, branchName string) (model.WorkingCommit, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := model.BranchKey{DatabaseId: dbId, Name: branchName}
	id, ok := s.activeBy[key]
	if !ok {
		return model.WorkingCommit{}, false, nil
	}
	wc, err := s.getLocked(ctx, id)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			delete(s.activeBy, key)
			return model.WorkingCommit{}, false, nil
		}
		return model.WorkingCommit{}, false, err
	}
	if wc.Status != model.WorkingActive {
		delete(s.activeBy, key)
		return model.WorkingCommit{}, false, nil
	}
	return wc, true, nil
}

// Update marks the working commit dirty in-cache; the backend write is
// deferred to Flush (explicit or periodic), coalescing repeated edits.
func (s *Store) Update(ctx context.Context, wc model.WorkingCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wc.UpdatedAt = time.Now().UTC()
	s.byId[wc.Id] = &entry{wc: wc, lastAccessed: wc.UpdatedAt, dirty: true}
	return nil
}

// Delete evicts a working commit from the cache and backend. If it was
// the active entry for its branch, the secondary index is cleared only
// if it still maps to this id (spec.md section 9 invariant).
func (s *Store) Delete(ctx context.Context, id model.Id) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.byId[id]; ok {
		key := model.BranchKey{DatabaseId: e.wc.DatabaseId, Name: e.wc.BranchName}
		if s.activeBy[key] == id {
			delete(s.activeBy, key)
		}
	}
	delete(s.byId, id)
	return s.backend.DeleteWorkingCommit(ctx, id)
}

// Flush writes every dirty entry to the durable backend and clears the
// dirty flag. Call explicitly, on a periodic sweep, or at shutdown
// (spec.md section 9: "shutdown must flush"). When a lockPath was given
// to New, the sweep holds an exclusive file lock for its duration so a
// second process's concurrent Flush blocks instead of interleaving
// writes to the same backend.
func (s *Store) Flush(ctx context.Context) error {
	if s.flushLock != nil {
		locked, err := s.flushLock.TryLockContext(ctx, 50*time.Millisecond)
		if err != nil {
			return apperr.Wrap(apperr.Internal, err, "acquire flush lock")
		}
		if !locked {
			return apperr.New(apperr.Conflict, "another process is flushing the working-commit cache")
		}
		defer s.flushLock.Unlock()
	}

	s.mu.Lock()
	dirty := make([]*entry, 0)
	for _, e := range s.byId {
		if e.dirty {
			dirty = append(dirty, e)
		}
	}
	s.mu.Unlock()

	for _, e := range dirty {
		if err := s.backend.PutWorkingCommit(ctx, e.wc); err != nil {
			return err
		}
		s.mu.Lock()
		e.dirty = false
		s.mu.Unlock()
	}
	return nil
}

// EvictExpired drops cache entries whose lastAccessed exceeds the TTL.
// The cache's TTL is advisory (spec.md section 5): this is a best-effort
// memory-pressure relief hook, not a correctness requirement, since Get
// transparently re-fetches from the backend on a miss.
func (s *Store) EvictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, e := range s.byId {
		if !e.dirty && now.Sub(e.lastAccessed) >= s.ttl {
			delete(s.byId, id)
		}
	}
}
