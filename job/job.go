package job

import (
	"context"
	"fmt"
	"time"

	"oss.nandlabs.io/jobengine/condition"
)

// Callable is the shape every unit of work submitted to the engine takes.
// Go has no *args/**kwargs, so spec §3's "positional and keyword arguments"
// collapse to a single ordered slice; a callable that wants named parameters
// accepts a struct and its caller builds one. ctx carries cancellation: a
// backend cancels a running job's context rather than killing a goroutine.
type Callable func(ctx context.Context, args []any) (any, error)

// GeneratorFunc is the shape of a job whose body yields intermediate values
// before producing (or failing to produce) a final result, mirroring a
// Python generator function (spec §4.4, §8 scenario 5). yield blocks the
// goroutine running fn until the caller calls Generator.Send.
type GeneratorFunc func(ctx context.Context, args []any, yield func(v any) any) (any, error)

// Host is the minimal surface a Job needs from whatever owns it. It is
// satisfied by *engine.Engine; Job never imports the engine package, which
// would create an import cycle (engine imports job to run it).
type Host interface {
	condition.Snapshot

	// Backend resolves a named backend kind ("local", "thread", "process",
	// "distributed", or an extension-registered name) for a job to run on.
	Backend(kind string) (Backend, error)
	// Admit attempts to reserve whatever resources j declares it needs. It
	// returns false if admission should be deferred (spec §5 step 2).
	Admit(j *Job) bool
	// Release returns resources reserved by a prior successful Admit.
	Release(j *Job)
	// Notify is called on every status transition, after the Job's own
	// bookkeeping (store move, future publication) has already happened.
	Notify(j *Job, old, new Status)
	// InjectionKey returns the argument name the host injects itself under
	// when a callable declares it wants engine access (spec §4.2's
	// "engine injection key"), or "" if injection is disabled.
	InjectionKey() string
	// PrintTraceback reports whether captured exceptions should be logged
	// with their full error chain (engine setting, spec AMBIENT STACK).
	PrintTraceback() bool
}

// Backend is the contract a job execution backend must satisfy (spec §4.4).
type Backend interface {
	// HasResource reports whether the backend has spare capacity for j right
	// now, without reserving it.
	HasResource(j *Job) bool
	// ConsumeResource reserves backend-local capacity for j. It is called
	// only after Host.Admit already reserved the job's declared resources.
	ConsumeResource(j *Job) error
	// ReleaseResource returns backend-local capacity reserved for j.
	ReleaseResource(j *Job)
	// RunFunction executes a non-generator job to completion.
	RunFunction(ctx context.Context, j *Job) (any, error)
	// RunGenerator starts a generator job and returns a handle the state
	// machine drives with successive Send calls.
	RunGenerator(ctx context.Context, j *Job) (*Generator, error)
	// CancelRuntime asks the backend to interrupt a running job, best
	// effort; the backend is responsible for cancelling j's context.
	CancelRuntime(j *Job)
}

// Job is one unit of submitted work and its full lifecycle record (spec
// §4.2). All mutation of a Job happens on the engine's loop goroutine except
// where noted; observers use the exported accessor methods, which take the
// same lock the loop uses.
type Job struct {
	ID   string
	Host Host

	Name      string
	Fn        Callable
	GenFn     GeneratorFunc
	IsGen     bool
	Args      []any
	Backend   string
	Resources map[string]int

	// UserCondition is the caller-supplied run condition, if any. The
	// condition actually evaluated at admission time is effectiveCondition,
	// which additionally guards on this job's dependencies (see
	// PrepareDependencies).
	UserCondition condition.Condition

	MaxRetries   int
	retriesLeft  int
	RetryDelay   time.Duration
	PollInterval time.Duration

	ChangeDir      string
	RedirectOutErr bool

	status Status

	CreatedAt   time.Time
	SubmittedAt time.Time
	StartedAt   time.Time
	StoppedAt   time.Time

	future *Future

	dependsOn           []string
	effectiveCondition  condition.Condition

	cancel context.CancelFunc
	gen    *Generator

	consumed bool
}

// NewJob builds a Job in the Created state. The caller still needs to call
// Submit (via the owning store/manager) to move it to Pending.
func NewJob(id string, host Host, fn Callable) *Job {
	j := &Job{
		ID:           id,
		Host:         host,
		Fn:           fn,
		Backend:      "local",
		MaxRetries:   0,
		PollInterval: 50 * time.Millisecond,
		status:       Created,
		CreatedAt:    host.Now(),
		future:       NewFuture(id),
	}
	j.retriesLeft = j.MaxRetries
	return j
}

// NewGeneratorJob builds a generator-backed Job.
func NewGeneratorJob(id string, host Host, fn GeneratorFunc) *Job {
	j := NewJob(id, host, nil)
	j.GenFn = fn
	j.IsGen = true
	return j
}

// SetMaxRetries configures how many times a failed attempt is retried
// before the job is marked Failed for good, and resets the remaining
// budget to match. Callers outside this package have no other way to
// enable retries, since NewJob snapshots retriesLeft from MaxRetries at
// construction, before a caller ever gets a chance to change it. Must be
// called before the job is submitted.
func (j *Job) SetMaxRetries(n int) {
	j.MaxRetries = n
	j.retriesLeft = n
}

// Status returns the job's current lifecycle state.
func (j *Job) Status() Status {
	return j.status
}

// Future returns the job's result/exception handle.
func (j *Job) Future() *Future {
	return j.future
}

// PreparedArgs returns this job's arguments with every dependency *Future
// substituted by its published result and, if the host wants engine
// injection, the host itself appended. Backends call this rather than
// reading Args directly, so dependency substitution happens exactly once,
// in one place.
func (j *Job) PreparedArgs() []any {
	return injectedArgs(j.Host, resolveArgs(j.Args))
}

// Dependencies returns the job ids this job's arguments declared a data
// dependency on, computed once at construction/emit time from ExtractDependencies.
func (j *Job) Dependencies() []string {
	return j.dependsOn
}

// SetDependencies is called by the emitting code once args are finalized.
// Deprecated in favor of PrepareDependencies, which also builds the
// effective run condition; kept so tests can set dependsOn directly without
// caring about condition combination.
func (j *Job) SetDependencies(ids []string) {
	j.dependsOn = ids
}

// PrepareDependencies scans j.Args for *Future placeholders and builds the
// job's effective run condition (spec §4.2 "Dependency resolution"): the
// auto-added AfterOthers(dep_ids, {done,failed,cancelled}) guard, combined
// with any user condition via AllSatisfied, or standing alone if the user
// set no condition. It must be called once, after Args is finalized and
// before Submit.
func (j *Job) PrepareDependencies() {
	j.dependsOn = ExtractDependencies(j.Args)
	if len(j.dependsOn) == 0 {
		j.effectiveCondition = j.UserCondition
		return
	}
	dep := condition.NewAfterOthers(j.dependsOn, condition.ModeAll)
	if j.UserCondition == nil {
		j.effectiveCondition = dep
	} else {
		j.effectiveCondition = condition.And(j.UserCondition, dep)
	}
}

// dependencyOutcome inspects this job's dependency producers and reports
// whether the job must be cancelled instead of run: a failed or cancelled
// producer cancels downstream jobs rather than letting them run with a
// missing result (spec §4.2). It is only meaningful once Ready() is true,
// i.e. every producer has reached a terminal status.
func (j *Job) dependencyOutcome() (cancel bool, reason error) {
	for _, id := range j.dependsOn {
		status, found := j.Host.JobStatus(id)
		if !found {
			continue
		}
		switch Status(status) {
		case Failed:
			return true, fmt.Errorf("job: dependency %s failed", id)
		case Cancelled:
			return true, fmt.Errorf("job: dependency %s cancelled", id)
		}
	}
	return false, nil
}

// transitionTo performs a validated status move, stamping timestamps and
// notifying the host. It does not itself run any callbacks; callers (the
// state machine) are responsible for sequencing those around the call.
func (j *Job) transitionTo(to Status) error {
	if !ValidTransition(j.status, to) {
		return ErrInvalidState
	}
	old := j.status
	j.status = to

	now := j.Host.Now()
	switch to {
	case Pending:
		j.SubmittedAt = now
		j.StoppedAt = time.Time{}
	case Running:
		j.StartedAt = now
	case Done, Failed, Cancelled:
		j.StoppedAt = now
	}

	j.Host.Notify(j, old, to)
	return nil
}

// resolveArgs replaces any *Future argument with its published result,
// per spec §9's emit-time substitution rule. It must only be called once
// every dependency's future carries a result (i.e. all deps are Done).
func resolveArgs(args []any) []any {
	resolved := make([]any, len(args))
	for i, a := range args {
		if fut, ok := IsFuture(a); ok {
			v, _ := fut.Result()
			resolved[i] = v
			continue
		}
		resolved[i] = a
	}
	return resolved
}

// injectedArgs appends the host under the injection key, represented here
// as a single trailing argument when the host requests it, since Go
// callables take a plain slice rather than a keyword map.
func injectedArgs(host Host, args []any) []any {
	if host.InjectionKey() == "" {
		return args
	}
	return append(append([]any{}, args...), host)
}
