package store

import (
	"sync"

	"oss.nandlabs.io/jobengine/collections"
	"oss.nandlabs.io/jobengine/job"
)

// MemStore is an in-memory Store, grounded on chrono's InMemoryStorage: a
// plain map keyed by id guarded by a single mutex, plus one ordered index
// per status so admission scanning and listing preserve submission order
// the way chrono's jobEntry maps do implicitly through Go map iteration
// being replaced here with an explicit ordered list (maps don't preserve
// order, and admission order matters for fairness, spec §5).
type MemStore struct {
	mu      sync.RWMutex
	jobs    map[string]*job.Job
	byState map[job.Status]*collections.SyncedArrayList[string]
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	ms := &MemStore{
		jobs:    make(map[string]*job.Job),
		byState: make(map[job.Status]*collections.SyncedArrayList[string]),
	}
	for _, s := range []job.Status{job.Created, job.Pending, job.Running, job.Done, job.Failed, job.Cancelled} {
		ms.byState[s] = collections.NewSyncedArrayList[string]()
	}
	return ms
}

func (ms *MemStore) Add(j *job.Job) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, exists := ms.jobs[j.ID]; exists {
		return ErrAlreadyExists
	}
	ms.jobs[j.ID] = j
	ms.byState[j.Status()].Add(j.ID)
	return nil
}

func (ms *MemStore) Get(id string) (*job.Job, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	j, ok := ms.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j, nil
}

func (ms *MemStore) Remove(id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	j, ok := ms.jobs[id]
	if !ok {
		return ErrNotFound
	}
	ms.byState[j.Status()].Remove(id)
	delete(ms.jobs, id)
	return nil
}

func (ms *MemStore) All() []*job.Job {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	out := make([]*job.Job, 0, len(ms.jobs))
	for _, j := range ms.jobs {
		out = append(out, j)
	}
	return out
}

func (ms *MemStore) ByStatus(status job.Status) []*job.Job {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	ids := ms.byState[status]
	if ids == nil {
		return nil
	}
	out := make([]*job.Job, 0, ids.Size())
	for it := ids.Iterator(); it.HasNext(); {
		id := it.Next()
		if j, ok := ms.jobs[id]; ok {
			out = append(out, j)
		}
	}
	return out
}

func (ms *MemStore) Moved(j *job.Job, old, new job.Status) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if list, ok := ms.byState[old]; ok {
		list.Remove(j.ID)
	}
	if list, ok := ms.byState[new]; ok {
		list.Add(j.ID)
	}
}

func (ms *MemStore) Close() error {
	return nil
}
