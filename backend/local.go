package backend

import (
	"context"

	"oss.nandlabs.io/jobengine/job"
)

// Local runs a job's callable directly on the goroutine the engine's state
// machine already spawned for it (spec §4.4: "Runs in the engine loop;
// awaits if coroutine"). Go's goroutines already give every job its own
// stack, so there is nothing further to offload — the counter is job-only,
// meaning the engine-global admission check is the only gate.
type Local struct{}

// NewLocal returns the Local backend. It holds no state.
func NewLocal() *Local {
	return &Local{}
}

func (l *Local) HasResource(j *job.Job) bool { return true }

func (l *Local) ConsumeResource(j *job.Job) error { return nil }

func (l *Local) ReleaseResource(j *job.Job) {}

func (l *Local) RunFunction(ctx context.Context, j *job.Job) (any, error) {
	return runCallable(ctx, j, j.Fn)
}

func (l *Local) RunGenerator(ctx context.Context, j *job.Job) (*job.Generator, error) {
	if j.GenFn == nil {
		return nil, job.ErrNoBackend
	}
	return job.NewGenerator(ctx, j.GenFn, j.PreparedArgs()), nil
}

// CancelRuntime for Local is a no-op beyond the context cancellation the
// state machine already performs: the callable is expected to observe
// ctx.Done() itself, the same "flag the wrapper" contract the spec
// describes for this backend.
func (l *Local) CancelRuntime(j *job.Job) {}
