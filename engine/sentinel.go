package engine

import (
	"context"
	"fmt"
	"time"

	"oss.nandlabs.io/jobengine/condition"
	"oss.nandlabs.io/jobengine/fnutils"
	"oss.nandlabs.io/jobengine/job"
	"oss.nandlabs.io/jobengine/uuid"
)

// NewSentinelJob builds the cron/sentinel extension facet (spec §4.4, §8
// scenario 6): a job gated by condition.EveryPeriod that reschedules itself
// after every run, so fn runs roughly once per period for as long as the
// engine is up. immediate controls whether the first run happens right
// away or after the first full period, matching EveryPeriod's own flag.
//
// The reschedule delay is driven by fnutils.ExecuteAfter — a blocking,
// non-cancellable sleep — raced against the job's own context in an outer
// select, so stopping the engine (or cancelling this job) doesn't leave a
// goroutine sleeping past shutdown.
func NewSentinelJob(e *Engine, name string, period time.Duration, immediate bool, fn job.Callable, args ...any) (*job.Job, error) {
	id, err := uuid.V4()
	if err != nil {
		return nil, fmt.Errorf("engine: generate sentinel job id: %w", err)
	}

	var j *job.Job
	tick := func(ctx context.Context, callArgs []any) (any, error) {
		result, err := fn(ctx, callArgs)
		scheduleNextTick(e, j, ctx, period)
		return result, err
	}

	j = job.NewJob(id.String(), e, tick)
	j.Name = name
	j.Args = args
	j.UserCondition = &condition.EveryPeriod{Period: period, Immediate: immediate}
	j.PrepareDependencies()
	return j, nil
}

// scheduleNextTick waits period (or until ctx is cancelled) and, if the
// context is still alive, reruns j and wakes the supervisor loop so it is
// picked up without waiting for the next idle poll.
func scheduleNextTick(e *Engine, j *job.Job, ctx context.Context, period time.Duration) {
	go func() {
		woke := make(chan struct{})
		go func() {
			_ = fnutils.ExecuteAfter(func() { close(woke) }, period)
		}()

		select {
		case <-woke:
		case <-ctx.Done():
			return
		}

		if err := j.Rerun(); err != nil {
			logger.DebugF("engine: sentinel job %s not rescheduled: %v", j.ID, err)
			return
		}
		e.wake()
	}()
}
