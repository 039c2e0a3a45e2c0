// Package store holds submitted jobs and indexes them by lifecycle status
// (spec §4.3). A Store is the single source of truth the engine consults
// for admission scanning, status queries, and condition evaluation.
package store

import (
	"errors"

	"oss.nandlabs.io/jobengine/job"
)

// ErrNotFound is returned when an operation names a job id the store does
// not know about.
var ErrNotFound = errors.New("store: job not found")

// ErrAlreadyExists is returned by Add when id is already present.
var ErrAlreadyExists = errors.New("store: job already exists")

// Snapshot is a point-in-time copy of a job's bookkeeping fields, used for
// listing and persistence without exposing the live *job.Job.
type Snapshot struct {
	ID     string
	Name   string
	Status job.Status
}

// Store is the persistence contract for jobs (spec §4.3). Implementations
// must be safe for concurrent use.
type Store interface {
	// Add registers a newly created job under its id. Returns
	// ErrAlreadyExists if the id is already present.
	Add(j *job.Job) error
	// Get returns the job with the given id.
	Get(id string) (*job.Job, error)
	// Remove deletes a job entirely (used once a terminal job's result has
	// been consumed and it is pruned, spec §4.3 eviction).
	Remove(id string) error
	// All returns every job currently known to the store.
	All() []*job.Job
	// ByStatus returns every job currently in the given status, in the
	// order they were moved into it.
	ByStatus(status job.Status) []*job.Job
	// Moved is called by the engine immediately after a successful
	// job.transitionTo, so status-indexed stores can re-bucket the job.
	Moved(j *job.Job, old, new job.Status)
	// Close releases any resources (file handles, etc.) held by the store.
	Close() error
}
