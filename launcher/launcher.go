package launcher

import (
	"fmt"
	"time"

	"oss.nandlabs.io/jobengine/engine"
	"oss.nandlabs.io/jobengine/job"
)

// Option configures a Launcher at construction time, grounded on chrono's
// functional-option style (chrono/scheduler.go's JobOption/Option).
type Option func(*config)

type config struct {
	engine       *engine.Engine
	tags         []string
	description  string
	maxRetries   int
	retryDelay   time.Duration
	pollInterval time.Duration
	resources    map[string]int
}

// WithEngine binds the Launcher to a specific engine instead of whatever is
// installed as the process default at call time.
func WithEngine(e *engine.Engine) Option {
	return func(c *config) { c.engine = e }
}

// WithTags attaches descriptive tags to the Launcher, readable through
// Tags. They are not copied onto the jobs it creates and have no
// engine-side behavior.
func WithTags(tags ...string) Option {
	return func(c *config) { c.tags = tags }
}

// WithDescription attaches a human-readable description.
func WithDescription(desc string) Option {
	return func(c *config) { c.description = desc }
}

// WithMaxRetries sets the retry budget every job this Launcher creates gets
// (spec §4.2's per-job max_retries, fixed here at the launcher level).
func WithMaxRetries(n int) Option {
	return func(c *config) { c.maxRetries = n }
}

// WithRetryDelay sets the delay between retry attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(c *config) { c.retryDelay = d }
}

// WithPollInterval overrides the default admission poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) { c.pollInterval = d }
}

// WithResources declares the named resource quantities every job this
// Launcher creates requires (spec §3's per-resource counters).
func WithResources(resources map[string]int) Option {
	return func(c *config) { c.resources = resources }
}

// Launcher decorates a plain Go function so every call runs as a job on a
// fixed backend kind (spec §4's decorator pattern: "wraps a function so
// calling it submits a job instead of running inline"). Description and
// tags are carried for operator inspection only, since this contract has no
// HTTP/CLI surface to render them through.
type Launcher struct {
	name        string
	kind        string
	fn          job.Callable
	description string
	tags        []string
	cfg         config
}

// New builds a Launcher named name, bound to the fixed backend kind, for
// fn. kind is one of backend.KindLocal/KindThread/KindProcess/
// KindDistributed or an extension-registered name.
func New(name, kind string, fn job.Callable, opts ...Option) *Launcher {
	c := config{}
	for _, opt := range opts {
		opt(&c)
	}
	return &Launcher{
		name:        name,
		kind:        kind,
		fn:          fn,
		description: c.description,
		tags:        c.tags,
		cfg:         c,
	}
}

// resolveEngine picks the launcher's bound engine, or the process default,
// returning ErrNoDefaultEngine if neither is set.
func (l *Launcher) resolveEngine() (*engine.Engine, error) {
	if l.cfg.engine != nil {
		return l.cfg.engine, nil
	}
	if e := GetDefaultEngine(); e != nil {
		return e, nil
	}
	return nil, ErrNoDefaultEngine
}

// newJob builds the underlying *job.Job for one invocation, applying the
// Launcher's fixed configuration (backend kind, retries, resources).
func (l *Launcher) newJob(e *engine.Engine, args []any) (*job.Job, error) {
	j, err := e.NewFunctionJob(l.name, l.fn, args...)
	if err != nil {
		return nil, err
	}
	j.Backend = l.kind
	if l.cfg.maxRetries > 0 {
		j.SetMaxRetries(l.cfg.maxRetries)
	}
	j.RetryDelay = l.cfg.retryDelay
	if l.cfg.pollInterval > 0 {
		j.PollInterval = l.cfg.pollInterval
	}
	if l.cfg.resources != nil {
		j.Resources = l.cfg.resources
	}
	return j, nil
}

// Submit creates and submits a job for this call without waiting for it,
// returning its Future (spec §4's "async" launch mode).
func (l *Launcher) Submit(args ...any) (*job.Future, error) {
	e, err := l.resolveEngine()
	if err != nil {
		return nil, err
	}
	j, err := l.newJob(e, args)
	if err != nil {
		return nil, err
	}
	if err := e.Submit(j); err != nil {
		return nil, fmt.Errorf("launcher %s: %w", l.name, err)
	}
	return j.Future(), nil
}

// Invoke submits a job for this call and blocks until it finishes,
// returning its result or its exception (spec §4's "sync" launch mode). A
// cancelled job surfaces job.ErrCancelled.
func (l *Launcher) Invoke(args ...any) (any, error) {
	e, err := l.resolveEngine()
	if err != nil {
		return nil, err
	}
	j, err := l.newJob(e, args)
	if err != nil {
		return nil, err
	}
	if err := e.Submit(j); err != nil {
		return nil, fmt.Errorf("launcher %s: %w", l.name, err)
	}

	result, ok := e.WaitJob(j, 0)
	if ok {
		return result, nil
	}
	if cause, hasErr := j.Future().Exception(); hasErr {
		return nil, cause
	}
	return nil, job.ErrCancelled
}

// ToAsync returns a function with the same arguments as Invoke but
// returning a channel delivering the eventual (result, error) pair instead
// of blocking — the Go-idiomatic rendering of spec §4's "to_async()", since
// Go has no coroutine to await.
func (l *Launcher) ToAsync() func(args ...any) <-chan Outcome {
	return func(args ...any) <-chan Outcome {
		out := make(chan Outcome, 1)
		go func() {
			v, err := l.Invoke(args...)
			out <- Outcome{Value: v, Err: err}
			close(out)
		}()
		return out
	}
}

// ToSync returns a function with Invoke's exact blocking signature, useful
// when a Launcher was built for async use but one call site wants to block
// (spec §4's "to_sync()").
func (l *Launcher) ToSync() func(args ...any) (any, error) {
	return l.Invoke
}

// Outcome is the (result, error) pair delivered on the channel ToAsync
// returns.
type Outcome struct {
	Value any
	Err   error
}

// Name returns the launcher's registered name.
func (l *Launcher) Name() string { return l.name }

// Description returns the launcher's operator-facing description.
func (l *Launcher) Description() string { return l.description }

// Tags returns the launcher's operator-facing tags.
func (l *Launcher) Tags() []string { return l.tags }
