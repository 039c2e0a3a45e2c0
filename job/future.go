package job

import (
	"context"
	"sync"
)

// DoneCallback runs after a job reaches Done. Go has no async/await, so the
// "awaited if async" rule from spec §4.2 is expressed the other way round:
// a callback that wants to do asynchronous work blocks inside its own body
// (e.g. on a channel) until that work finishes, and only then returns. The
// state machine always invokes callbacks in declaration order and waits for
// each to return before invoking the next.
type DoneCallback func(ctx context.Context, result any) error

// ErrCallback runs after a job reaches Failed, under the same invocation
// rule as DoneCallback.
type ErrCallback func(ctx context.Context, err error) error

// Future is a detachable handle to a job's eventual result (spec §3). It is
// logically shared between the producing job (the sole writer, on the loop
// thread, before the terminal transition) and any number of observers.
//
// A *Future is also a first-class placeholder value: when passed as an
// argument to another job, it declares a data dependency on the producing
// job (see ExtractDependencies) and is replaced by the producer's result at
// emit time.
type Future struct {
	mu sync.RWMutex

	jobID string

	hasResult bool
	result    any

	hasErr bool
	err    error

	doneCallbacks []DoneCallback
	errCallbacks  []ErrCallback
}

// NewFuture creates an empty, unresolved Future for the given job id.
func NewFuture(jobID string) *Future {
	return &Future{jobID: jobID}
}

// JobID returns the id of the job this future belongs to.
func (f *Future) JobID() string {
	return f.jobID
}

// Result returns the job's result and whether one has been published yet.
// Per spec §8, a result is observable iff the job's final status is Done.
func (f *Future) Result() (any, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.result, f.hasResult
}

// Exception returns the job's exception and whether one has been published
// yet. It is observable iff the job's final status is Failed or Cancelled.
func (f *Future) Exception() (error, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.err, f.hasErr
}

// OnDone registers a callback invoked when the result is published. If the
// result has already been published, cb is invoked immediately (but still
// synchronously, from the calling goroutine, not the loop thread).
func (f *Future) OnDone(cb DoneCallback) {
	if cb == nil {
		return
	}
	f.mu.Lock()
	if f.hasResult {
		result := f.result
		f.mu.Unlock()
		_ = cb(context.Background(), result)
		return
	}
	f.doneCallbacks = append(f.doneCallbacks, cb)
	f.mu.Unlock()
}

// OnError registers a callback invoked when an exception is published. If
// the exception has already been published, cb is invoked immediately.
func (f *Future) OnError(cb ErrCallback) {
	if cb == nil {
		return
	}
	f.mu.Lock()
	if f.hasErr {
		err := f.err
		f.mu.Unlock()
		_ = cb(context.Background(), err)
		return
	}
	f.errCallbacks = append(f.errCallbacks, cb)
	f.mu.Unlock()
}

// publishResult stores the result and returns the registered done callbacks
// to be run by the state machine (outside the lock, in declaration order).
func (f *Future) publishResult(v any) []DoneCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.result = v
	f.hasResult = true
	cbs := f.doneCallbacks
	f.doneCallbacks = nil
	return cbs
}

// publishError stores the exception and returns the registered error
// callbacks to be run by the state machine.
func (f *Future) publishError(err error) []ErrCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
	f.hasErr = true
	cbs := f.errCallbacks
	f.errCallbacks = nil
	return cbs
}

// IsFuture reports whether v is a *Future, and returns it if so. Used by
// dependency discovery (spec §9: "inspect each positional/keyword argument
// at emit time; any value whose runtime type matches JobFuture contributes
// its job id").
func IsFuture(v any) (*Future, bool) {
	fut, ok := v.(*Future)
	return fut, ok
}

// ExtractDependencies scans args (never descending into containers, per
// spec §9's explicit scope limitation) and returns the job ids of every
// *Future found, preserving encounter order without duplicates.
func ExtractDependencies(args []any) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, a := range args {
		if fut, ok := IsFuture(a); ok {
			if !seen[fut.JobID()] {
				seen[fut.JobID()] = true
				ids = append(ids, fut.JobID())
			}
		}
	}
	return ids
}
