package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"oss.nandlabs.io/jobengine/codec"
	"oss.nandlabs.io/jobengine/fsutils"
	"oss.nandlabs.io/jobengine/job"
	"oss.nandlabs.io/jobengine/l3"
)

var logger = l3.Get()

// diskState is the serializable mirror written to disk, grounded on
// chrono/file_storage.go's fileState. Only Snapshot metadata is persisted —
// a Job's callable can't be serialized, exactly the reason chrono's own
// JobRecord comment gives for not storing JobFunc: it is re-registered by
// the process that owns it, not reconstructed from disk.
type diskState struct {
	Jobs []Snapshot `json:"jobs" xml:"jobs" yaml:"jobs"`
}

// DiskStore wraps a MemStore for live job lookups and mirrors every status
// change to a single state file, so a job's status history survives a
// process restart even though the job itself (its callable) does not
// (spec §4.3, Open Question decision 3 in DESIGN.md: JSON via this
// module's own codec package).
type DiskStore struct {
	mem  *MemStore
	mu   sync.Mutex
	path string
	c    codec.Codec
}

// NewDiskStore creates a DiskStore rooted at path, creating the parent
// directory and an empty state file if neither exists yet.
func NewDiskStore(path string) (*DiskStore, error) {
	contentType := fsutils.LookupContentType(path)
	c, err := codec.GetDefault(contentType)
	if err != nil {
		return nil, fmt.Errorf("store: unsupported file type %q for %s: %w", contentType, filepath.Base(path), err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	ds := &DiskStore{
		mem:  NewMemStore(),
		path: path,
		c:    c,
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.DebugF("DiskStore: creating initial state file %s", path)
		if err := ds.writeState(&diskState{}); err != nil {
			return nil, err
		}
	}

	return ds, nil
}

func (ds *DiskStore) readState() (*diskState, error) {
	f, err := os.Open(ds.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var state diskState
	if err := ds.c.Read(f, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (ds *DiskStore) writeState(state *diskState) error {
	tmp := ds.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := ds.c.Write(state, f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, ds.path)
}

func snapshotOf(j *job.Job) Snapshot {
	return Snapshot{ID: j.ID, Name: j.Name, Status: j.Status()}
}

func (ds *DiskStore) syncToDisk() {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	all := ds.mem.All()
	state := &diskState{Jobs: make([]Snapshot, 0, len(all))}
	for _, j := range all {
		state.Jobs = append(state.Jobs, snapshotOf(j))
	}
	if err := ds.writeState(state); err != nil {
		logger.ErrorF("DiskStore: failed to sync state to %s: %v", ds.path, err)
	}
}

func (ds *DiskStore) Add(j *job.Job) error {
	if err := ds.mem.Add(j); err != nil {
		return err
	}
	ds.syncToDisk()
	return nil
}

func (ds *DiskStore) Get(id string) (*job.Job, error) {
	return ds.mem.Get(id)
}

func (ds *DiskStore) Remove(id string) error {
	if err := ds.mem.Remove(id); err != nil {
		return err
	}
	ds.syncToDisk()
	return nil
}

func (ds *DiskStore) All() []*job.Job {
	return ds.mem.All()
}

func (ds *DiskStore) ByStatus(status job.Status) []*job.Job {
	return ds.mem.ByStatus(status)
}

func (ds *DiskStore) Moved(j *job.Job, old, new job.Status) {
	ds.mem.Moved(j, old, new)
	ds.syncToDisk()
}

// Snapshots returns the last-persisted snapshot list read straight from
// disk, independent of the live in-memory index — useful for inspecting
// store state from another process.
func (ds *DiskStore) Snapshots() ([]Snapshot, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	state, err := ds.readState()
	if err != nil {
		return nil, err
	}
	return state.Jobs, nil
}

func (ds *DiskStore) Close() error {
	return ds.mem.Close()
}
