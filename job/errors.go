package job

import "errors"

// Error kinds from spec §7 that originate inside the job state machine.
var (
	// ErrInvalidState is returned when a transition is requested from a
	// state that forbids it (e.g. emit on a non-pending job, result on a
	// non-done job, rerun on a non-terminal job).
	ErrInvalidState = errors.New("job: invalid state transition")
	// ErrResourceLeak is a fatal logic-bug sentinel: releasing more of a
	// resource than was consumed for this job.
	ErrResourceLeak = errors.New("job: resource released without matching consume")
	// ErrCancelled is surfaced to launchers awaiting a job that was
	// cancelled instead of completing.
	ErrCancelled = errors.New("job: cancelled")
	// ErrNoBackend is returned when a job names a backend kind the host
	// does not know about.
	ErrNoBackend = errors.New("job: unknown backend")
	// ErrNotTerminal is returned by Rerun when called on a job that has not
	// reached a terminal status.
	ErrNotTerminal = errors.New("job: not in a terminal state")
)
