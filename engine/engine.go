package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"oss.nandlabs.io/jobengine/backend"
	"oss.nandlabs.io/jobengine/errutils"
	"oss.nandlabs.io/jobengine/job"
	"oss.nandlabs.io/jobengine/l3"
	"oss.nandlabs.io/jobengine/lifecycle"
	"oss.nandlabs.io/jobengine/store"
	"oss.nandlabs.io/jobengine/uuid"
)

var logger = l3.Get()

// defaultIdlePoll is the loop's wake interval when no job is pending, so the
// supervisor still notices a job submitted concurrently with a timer about
// to fire (wake() also short-circuits this, but the idle tick is cheap
// insurance against a missed wake-up).
const defaultIdlePoll = 200 * time.Millisecond

// Engine is the supervisor from spec §4.5: the job manager, the resource
// counters, and the backend registry, all driven by one dedicated loop
// goroutine. It implements job.Host so a *Job never has to import this
// package.
type Engine struct {
	lifecycle.SimpleComponent

	id      string
	setting EngineSetting

	jobs     *store.Jobs
	backends map[string]job.Backend

	globalCounter *backend.Counter

	resMu     sync.Mutex
	resources map[string]*backend.Counter

	startMu sync.Mutex
	runCtx  context.Context
	cancel  context.CancelFunc
	wakeCh  chan struct{}
	done    chan struct{}
}

// NewEngine builds an Engine from setting. It does not start the supervisor
// loop; call Start for that (spec §4.5 separates construction from
// admission — an Engine can be configured, inspected, and torn down without
// ever running a job).
func NewEngine(setting EngineSetting) (*Engine, error) {
	setting = setting.normalize()

	id, err := uuid.V4()
	if err != nil {
		return nil, fmt.Errorf("engine: generate engine id: %w", err)
	}

	var jobStore store.Store
	switch setting.CacheType {
	case CacheDisk:
		jobStore, err = store.NewDiskStore(setting.cacheDir(id.String()) + "/state.json")
		if err != nil {
			return nil, ConfigurationError("create disk-backed job store: %v", err)
		}
	default:
		jobStore = store.NewMemStore()
	}

	e := &Engine{
		id:            id.String(),
		setting:       setting,
		jobs:          store.NewJobs(jobStore),
		globalCounter: backend.NewCounter(setting.MaxJobs),
		resources:     make(map[string]*backend.Counter),
	}
	for name, limit := range setting.ResourceCaps {
		e.resources[name] = backend.NewCounter(limit)
	}

	e.backends = map[string]job.Backend{
		backend.KindLocal: backend.NewLocal(),
	}
	threadBackend, err := backend.NewThread(setting.MaxThreadJobs)
	if err != nil {
		return nil, ConfigurationError("create thread backend: %v", err)
	}
	e.backends[backend.KindThread] = threadBackend
	e.backends[backend.KindProcess] = backend.NewProcess(setting.MaxProcessJobs)
	if setting.DistributedClient != nil {
		e.backends[backend.KindDistributed] = backend.NewDistributed(setting.MaxDistributedJobs, setting.DistributedClient)
	}

	e.SimpleComponent = lifecycle.SimpleComponent{
		CompId:    e.id,
		StartFunc: e.onStart,
		StopFunc:  e.onStop,
	}

	return e, nil
}

// ID returns the engine's generated identifier.
func (e *Engine) ID() string {
	return e.id
}

// Start brings the supervisor loop up. It is idempotent: calling Start on an
// already-running engine is a no-op (spec §8 idempotence property) — a
// guard this method adds because lifecycle.SimpleComponent.Start itself
// does not check CompState before invoking StartFunc again.
func (e *Engine) Start() error {
	e.startMu.Lock()
	defer e.startMu.Unlock()
	if e.State() == lifecycle.Running {
		return nil
	}
	return e.SimpleComponent.Start()
}

// Stop tears the supervisor loop down, cancelling every pending or running
// job and closing every backend and the job store. Idempotent for the same
// reason Start is.
func (e *Engine) Stop() error {
	e.startMu.Lock()
	defer e.startMu.Unlock()
	if e.State() != lifecycle.Running {
		return nil
	}
	return e.SimpleComponent.Stop()
}

func (e *Engine) onStart() error {
	e.runCtx, e.cancel = context.WithCancel(context.Background())
	e.wakeCh = make(chan struct{}, 1)
	e.done = make(chan struct{})
	go e.runLoop()
	logger.InfoF("engine %s started", e.id)
	return nil
}

func (e *Engine) onStop() error {
	e.cancel()
	<-e.done

	var merr errutils.MultiError
	if err := job.CancelAll(e.jobs.PendingOrRunning()); err != nil {
		merr.Add(err)
	}
	for kind, b := range e.backends {
		if c, ok := b.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				merr.Add(fmt.Errorf("engine: close %s backend: %w", kind, err))
			}
		}
	}
	if err := e.jobs.Close(); err != nil {
		merr.Add(fmt.Errorf("engine: close job store: %w", err))
	}

	logger.InfoF("engine %s stopped", e.id)
	if merr.HasErrors() {
		return &merr
	}
	return nil
}

// wake nudges the supervisor loop to re-scan pending jobs immediately
// instead of waiting for its next timer tick.
func (e *Engine) wake() {
	select {
	case e.wakeCh <- struct{}{}:
	default:
	}
}

// Use runs fn against a freshly started Engine built from setting, and
// guarantees Stop is called on every exit path including a panic inside fn
// — the Go shape of spec §4.5's scoped-engine-as-a-context-manager pattern.
func Use(setting EngineSetting, fn func(e *Engine) error) (err error) {
	e, err := NewEngine(setting)
	if err != nil {
		return err
	}
	if err = e.Start(); err != nil {
		return err
	}
	defer func() {
		stopErr := e.Stop()
		if err == nil {
			err = stopErr
		}
	}()
	return fn(e)
}

// --- job.Host ---

// Backend resolves kind to a registered backend, defaulting to "local" when
// kind is empty.
func (e *Engine) Backend(kind string) (job.Backend, error) {
	if kind == "" {
		kind = backend.KindLocal
	}
	b, ok := e.backends[kind]
	if !ok {
		return nil, job.ErrNoBackend
	}
	return b, nil
}

// Admit reserves the engine-global job slot and every named resource j
// declares, all-or-nothing: if any resource is unavailable, everything
// already reserved for this call is rolled back before returning false
// (spec §5 step 2).
func (e *Engine) Admit(j *job.Job) bool {
	if !e.globalCounter.Consume() {
		return false
	}

	consumed := make(map[string]int, len(j.Resources))
	ok := true
outer:
	for name, want := range j.Resources {
		counter := e.resourceCounter(name)
		for i := 0; i < want; i++ {
			if !counter.Consume() {
				ok = false
				break outer
			}
			consumed[name]++
		}
	}

	if !ok {
		for name, n := range consumed {
			counter := e.resourceCounter(name)
			for i := 0; i < n; i++ {
				counter.Release()
			}
		}
		e.globalCounter.Release()
		return false
	}
	return true
}

// Release returns the engine-global slot and every named resource j
// declares. It is only ever called after a matching, successful Admit
// (job.Job tracks this with its own consumed flag), so releasing exactly
// j.Resources again is always correct.
func (e *Engine) Release(j *job.Job) {
	for name, amount := range j.Resources {
		counter := e.resourceCounter(name)
		for i := 0; i < amount; i++ {
			counter.Release()
		}
	}
	e.globalCounter.Release()
}

// resourceCounter returns (creating if necessary) the Counter for a named
// resource. A name absent from EngineSetting.ResourceCaps gets an unlimited
// counter, matching spec's "a name absent here is unlimited".
func (e *Engine) resourceCounter(name string) *backend.Counter {
	e.resMu.Lock()
	defer e.resMu.Unlock()
	c, ok := e.resources[name]
	if !ok {
		c = backend.NewCounter(e.setting.ResourceCaps[name])
		e.resources[name] = c
	}
	return c
}

// Notify re-indexes j in the job manager and wakes the loop so any job
// whose condition depended on j's new status gets re-evaluated promptly.
func (e *Engine) Notify(j *job.Job, old, new job.Status) {
	e.jobs.Move(j, old, new)
	if new == job.Failed {
		if cause, ok := j.Future().Exception(); ok {
			if e.setting.PrintTraceback {
				logger.ErrorF("job %s failed: %+v", j.ID, cause)
			} else {
				logger.DebugF("job %s failed: %v", j.ID, cause)
			}
		}
	}
	e.wake()
}

// InjectionKey implements job.Host.
func (e *Engine) InjectionKey() string {
	return e.setting.KwargsInjectKey
}

// PrintTraceback implements job.Host.
func (e *Engine) PrintTraceback() bool {
	return e.setting.PrintTraceback
}

// --- condition.Snapshot ---

// JobStatus implements condition.Snapshot.
func (e *Engine) JobStatus(jobID string) (string, bool) {
	j, err := e.jobs.Get(jobID)
	if err != nil {
		return "", false
	}
	return string(j.Status()), true
}

// Now implements condition.Snapshot.
func (e *Engine) Now() time.Time {
	return time.Now()
}

// --- job factories ---

// NewFunctionJob builds a non-generator job bound to this engine, with a
// freshly generated id.
func (e *Engine) NewFunctionJob(name string, fn job.Callable, args ...any) (*job.Job, error) {
	id, err := uuid.V4()
	if err != nil {
		return nil, fmt.Errorf("engine: generate job id: %w", err)
	}
	j := job.NewJob(id.String(), e, fn)
	j.Name = name
	j.Args = args
	return j, nil
}

// NewGeneratorJob builds a generator-backed job bound to this engine.
func (e *Engine) NewGeneratorJob(name string, fn job.GeneratorFunc, args ...any) (*job.Job, error) {
	id, err := uuid.V4()
	if err != nil {
		return nil, fmt.Errorf("engine: generate job id: %w", err)
	}
	j := job.NewGeneratorJob(id.String(), e, fn)
	j.Name = name
	j.Args = args
	return j, nil
}

// --- submission & waiting ---

// Submit registers each job with the manager and moves it to Pending,
// computing its dependency-derived condition first (spec §4.2). It fails
// fast on the first job that cannot be added or submitted, leaving any
// already-submitted jobs in the manager (spec does not specify all-or-
// nothing submission across a batch).
func (e *Engine) Submit(jobs ...*job.Job) error {
	if e.State() != lifecycle.Running {
		return ErrNotRunning
	}
	for _, j := range jobs {
		j.PrepareDependencies()
		if err := e.jobs.Add(j); err != nil {
			return fmt.Errorf("engine: add job %s: %w", j.ID, err)
		}
		if err := j.Submit(); err != nil {
			return fmt.Errorf("engine: submit job %s: %w", j.ID, err)
		}
	}
	e.wake()
	return nil
}

// Wait blocks until selectFn returns no jobs, ctx is done, or timeout
// elapses (timeout<=0 means no timeout). selectFn defaults to
// jobs.PendingOrRunning, the spec §4.5 "wait()" default.
func (e *Engine) Wait(ctx context.Context, timeout time.Duration, selectFn func() []*job.Job) error {
	if selectFn == nil {
		selectFn = e.jobs.PendingOrRunning
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if len(selectFn()) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitJob blocks until j reaches a terminal status or timeout elapses
// (timeout<=0 means no timeout), returning its result and whether it
// succeeded (spec §4.5's single-job convenience wait).
func (e *Engine) WaitJob(j *job.Job, timeout time.Duration) (any, bool) {
	type outcome struct {
		value any
		ok    bool
	}
	ch := make(chan outcome, 1)
	j.Future().OnDone(func(_ context.Context, v any) error {
		select {
		case ch <- outcome{v, true}:
		default:
		}
		return nil
	})
	j.Future().OnError(func(_ context.Context, _ error) error {
		select {
		case ch <- outcome{nil, false}:
		default:
		}
		return nil
	})

	if timeout > 0 {
		select {
		case o := <-ch:
			return o.value, o.ok
		case <-time.After(timeout):
			return nil, false
		}
	}
	o := <-ch
	return o.value, o.ok
}

// Join waits for every job in jobs to reach a terminal status, aggregating
// every failure/cancellation into a single error (spec §4.5 "join()").
func (e *Engine) Join(jobs []*job.Job, timeout time.Duration) error {
	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}

	var wg sync.WaitGroup
	var merr errutils.MultiError
	finished := make(chan struct{})

	for _, j := range jobs {
		wg.Add(1)
		go func(j *job.Job) {
			defer wg.Done()
			if _, ok := e.WaitJob(j, 0); !ok {
				if cause, hasErr := j.Future().Exception(); hasErr {
					merr.Add(fmt.Errorf("job %s: %w", j.ID, cause))
				}
			}
		}(j)
	}
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-deadline:
		return ErrCancellation
	}
	if merr.HasErrors() {
		return &merr
	}
	return nil
}

// Cancel cancels the given jobs (spec §4.5 "cancel(jobs)").
func (e *Engine) Cancel(jobs ...*job.Job) error {
	return job.CancelAll(jobs)
}

// CancelAll cancels every pending or running job known to the engine (spec
// §4.5 "cancel_all()").
func (e *Engine) CancelAll() error {
	return job.CancelAll(e.jobs.PendingOrRunning())
}

// Remove cancels j if active and deletes it from the manager (spec §4.5
// "remove(job)").
func (e *Engine) Remove(j *job.Job) error {
	return e.jobs.Remove(j)
}

// Jobs exposes the underlying manager for listing/inspection use cases
// (spec §4.3's pending/running/done/failed/cancelled/all_jobs accessors).
func (e *Engine) Jobs() *store.Jobs {
	return e.jobs
}
