package store

import (
	"oss.nandlabs.io/jobengine/job"
)

// Jobs is the engine-facing manager described in spec §4.3: conceptually
// five JobStores (one per pending/running/done/failed/cancelled), with a
// single move(job, old, new) primitive as the only mutator besides add and
// remove, so a job can never be a member of two stores at once. Here the
// five per-status buckets are Store.ByStatus views over one backing Store
// rather than five independent containers, which keeps the
// store-uniqueness invariant trivially true (membership lives in one
// index) instead of needing to be re-proven across five structures.
type Jobs struct {
	backing Store
}

// NewJobs wraps backing as the engine-facing job manager.
func NewJobs(backing Store) *Jobs {
	return &Jobs{backing: backing}
}

// Add registers a newly created job. The job starts in whatever status it
// was constructed with (job.Created, per spec §4.2) and is migrated to the
// pending store by its own Submit/move sequence.
func (js *Jobs) Add(j *job.Job) error {
	return js.backing.Add(j)
}

// Remove cancels j if it is active, then deletes it from the manager
// entirely (spec §4.5 remove()).
func (js *Jobs) Remove(j *job.Job) error {
	if j.Status() == job.Pending || j.Status() == job.Running {
		if err := j.Cancel(); err != nil {
			return err
		}
	}
	return js.backing.Remove(j.ID)
}

// Get looks up a job by id, scanning the single backing index (spec's
// "lookups scan stores in declared order" collapses to one lookup here
// since all five logical stores share one backing index).
func (js *Jobs) Get(id string) (*job.Job, error) {
	return js.backing.Get(id)
}

// Move is the sole mutator for status transitions other than add/remove.
// It is invoked by the engine immediately after a successful
// job.transitionTo so the manager's indices stay in sync.
func (js *Jobs) Move(j *job.Job, old, new job.Status) {
	js.backing.Moved(j, old, new)
}

// Pending, Running, Done, Failed, Cancelled return the jobs in that store.
func (js *Jobs) Pending() []*job.Job   { return js.backing.ByStatus(job.Pending) }
func (js *Jobs) Running() []*job.Job   { return js.backing.ByStatus(job.Running) }
func (js *Jobs) Done() []*job.Job      { return js.backing.ByStatus(job.Done) }
func (js *Jobs) Failed() []*job.Job    { return js.backing.ByStatus(job.Failed) }
func (js *Jobs) Cancelled() []*job.Job { return js.backing.ByStatus(job.Cancelled) }

// PendingOrRunning is the default selector used by Engine.Wait/Join (spec
// §4.5 wait(select_fn) default).
func (js *Jobs) PendingOrRunning() []*job.Job {
	return append(js.Pending(), js.Running()...)
}

// AllJobs returns the concatenation of every store, spec's all_jobs().
func (js *Jobs) AllJobs() []*job.Job {
	return js.backing.All()
}

// Close releases the backing store's resources.
func (js *Jobs) Close() error {
	return js.backing.Close()
}
