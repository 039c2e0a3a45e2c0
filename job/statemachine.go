package job

import (
	"context"
	"fmt"
	"time"

	"oss.nandlabs.io/jobengine/errutils"
)

// Submit moves a freshly created job into Pending, where it becomes
// eligible for admission (spec §4.2, §5 step 1).
func (j *Job) Submit() error {
	return j.transitionTo(Pending)
}

// Ready reports whether j's effective condition currently holds. A job
// with no condition (and no dependencies) is always ready.
func (j *Job) Ready() bool {
	if j.effectiveCondition == nil {
		return true
	}
	return j.effectiveCondition.Satisfy(j.Host)
}

// TryStart attempts to move j from Pending to Running: it checks the
// condition, asks the backend for local capacity, asks the host to admit
// the job's declared resources, resolves dependency outcomes, and only then
// flips the status and launches execution on its own goroutine. It returns
// false (with no side effects) if any admission step is not currently
// satisfiable, so the caller's polling loop can retry later.
func (j *Job) TryStart(ctx context.Context) (bool, error) {
	if j.status != Pending {
		return false, ErrInvalidState
	}
	if !j.Ready() {
		return false, nil
	}

	backend, err := j.Host.Backend(j.Backend)
	if err != nil {
		return false, err
	}
	if !backend.HasResource(j) {
		return false, nil
	}
	if !j.Host.Admit(j) {
		return false, nil
	}
	if err := backend.ConsumeResource(j); err != nil {
		j.Host.Release(j)
		return false, err
	}
	j.consumed = true

	if cancel, reason := j.dependencyOutcome(); cancel {
		j.releaseAll(backend)
		cbs := j.future.publishError(reason)
		if err := j.transitionTo(Cancelled); err != nil {
			return false, err
		}
		runErrCallbacks(cbs, reason)
		return true, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel

	if err := j.transitionTo(Running); err != nil {
		cancel()
		j.releaseAll(backend)
		return false, err
	}

	go j.run(runCtx, backend)
	return true, nil
}

// releaseAll returns every resource this job holds: the host-level
// declared resources (admitted by Host.Admit) and the backend-local slot
// (admitted by Backend.ConsumeResource). It is idempotent.
func (j *Job) releaseAll(backend Backend) {
	if !j.consumed {
		return
	}
	backend.ReleaseResource(j)
	j.Host.Release(j)
	j.consumed = false
}

// run drives a single attempt of j to completion (or to a retry), on its
// own goroutine. It never returns an error to a caller; terminal outcomes
// are published through j.future and the Host.Notify side channel.
func (j *Job) run(ctx context.Context, backend Backend) {
	var (
		result any
		err    error
	)

	if j.IsGen {
		result, err = j.runGenerator(ctx, backend)
	} else {
		result, err = withChangeDir(j.ChangeDir, func() (any, error) {
			return backend.RunFunction(ctx, j)
		})
	}

	j.releaseAll(backend)

	if err != nil {
		j.onAttemptFailed(ctx, backend, err)
		return
	}
	j.onSucceeded(result)
}

// runGenerator drives a generator job to its final result. Each yielded
// value is sent back into the generator as the result of that yield; the
// Generator itself is reachable via j.gen while the job is running.
func (j *Job) runGenerator(ctx context.Context, backend Backend) (any, error) {
	gen, err := backend.RunGenerator(ctx, j)
	if err != nil {
		return nil, err
	}
	j.gen = gen

	var sendVal any
	for {
		value, done, err := gen.Send(sendVal)
		if err != nil {
			return nil, err
		}
		if done {
			return value, nil
		}
		sendVal = value
	}
}

// onSucceeded publishes the result, transitions to Done, and runs the
// future's done callbacks. Per spec §5, publication happens strictly
// before the terminal transition's Notify fires, so observers never see a
// Done job with an unset future.
func (j *Job) onSucceeded(result any) {
	cbs := j.future.publishResult(result)
	_ = j.transitionTo(Done)
	runDoneCallbacks(cbs, result)
}

// onAttemptFailed decides between a retry and a terminal failure.
func (j *Job) onAttemptFailed(ctx context.Context, backend Backend, cause error) {
	if ctx.Err() != nil {
		// Cancellation raced the attempt; Cancel() already owns the
		// transition, so this attempt contributes nothing further.
		return
	}

	if j.retriesLeft > 0 {
		j.retriesLeft--
		delay := j.RetryDelay
		go func() {
			if delay > 0 {
				timer := time.NewTimer(delay)
				defer timer.Stop()
				select {
				case <-timer.C:
				case <-ctx.Done():
					return
				}
			}
			// Re-queue through the ordinary Pending path rather than
			// calling TryStart directly: this re-indexes j in the host's
			// Pending store and wakes the loop, so the same admission
			// scan that starts any other pending job (condition, backend
			// capacity, host resources) governs the retry attempt too.
			if err := j.transitionTo(Pending); err != nil {
				j.fail(causeOrDefault(cause, err))
			}
		}()
		return
	}

	j.fail(cause)
}

// causeOrDefault prefers the job's real failure cause over a secondary
// infrastructure error encountered while trying to act on it, so a caller
// debugging a failed job sees why the attempt failed, not why the retry
// bookkeeping failed.
func causeOrDefault(cause, fallback error) error {
	if cause != nil {
		return cause
	}
	return fallback
}

// fail publishes an exception, transitions to Failed, and runs the
// future's error callbacks.
func (j *Job) fail(cause error) {
	cbs := j.future.publishError(cause)
	_ = j.transitionTo(Failed)
	runErrCallbacks(cbs, cause)
}

func runDoneCallbacks(cbs []DoneCallback, result any) {
	for _, cb := range cbs {
		_ = cb(context.Background(), result)
	}
}

func runErrCallbacks(cbs []ErrCallback, err error) {
	for _, cb := range cbs {
		_ = cb(context.Background(), err)
	}
}

// Cancel moves j out of Pending or Running into Cancelled (spec §4.2). In
// both cases ErrCancelled is published as the future's exception before the
// transition. A pending job is cancelled immediately; a running job has its context
// cancelled and its backend asked to interrupt it, then is marked
// cancelled without waiting for the goroutine to actually unwind — the
// goroutine's own onAttemptFailed/onSucceeded path will see a cancelled
// context and do nothing further.
func (j *Job) Cancel() error {
	switch j.status {
	case Pending:
		cbs := j.future.publishError(ErrCancelled)
		if err := j.transitionTo(Cancelled); err != nil {
			return err
		}
		runErrCallbacks(cbs, ErrCancelled)
		return nil
	case Running:
		if j.cancel != nil {
			j.cancel()
		}
		if backend, err := j.Host.Backend(j.Backend); err == nil {
			backend.CancelRuntime(j)
		}
		j.releaseAllUnchecked()
		cbs := j.future.publishError(ErrCancelled)
		if err := j.transitionTo(Cancelled); err != nil {
			return err
		}
		runErrCallbacks(cbs, ErrCancelled)
		return nil
	default:
		return ErrInvalidState
	}
}

// releaseAllUnchecked is used by Cancel, which does not have a Backend
// handle readily in scope the way run()'s deferred releaseAll does.
func (j *Job) releaseAllUnchecked() {
	if !j.consumed {
		return
	}
	if backend, err := j.Host.Backend(j.Backend); err == nil {
		backend.ReleaseResource(j)
	}
	j.Host.Release(j)
	j.consumed = false
}

// Rerun moves a terminal job back to Pending, resetting its retry budget
// to MaxRetries (see DESIGN.md's Open Question 1 decision: a rerun starts
// fresh rather than inheriting whatever retry budget remained).
func (j *Job) Rerun() error {
	if !j.status.Terminal() {
		return ErrNotTerminal
	}
	j.retriesLeft = j.MaxRetries
	j.future = NewFuture(j.ID)
	j.gen = nil
	return j.transitionTo(Pending)
}

// CancelAll cancels every job in jobs, collecting per-job failures into a
// single aggregate error (spec §7 batch-cancel behavior), grounded on the
// teacher's errutils.MultiError aggregate-failure convention.
func CancelAll(jobs []*Job) error {
	var merr errutils.MultiError
	for _, j := range jobs {
		if err := j.Cancel(); err != nil {
			merr.Add(fmt.Errorf("job %s: %w", j.ID, err))
		}
	}
	if merr.HasErrors() {
		return &merr
	}
	return nil
}
