// Package backend implements the execution backend contract and its
// variants (spec §4.4): the engine hands a job to a backend to actually
// run, once the job has cleared admission.
package backend

import (
	"context"
	"sync"

	"oss.nandlabs.io/jobengine/job"
	"oss.nandlabs.io/jobengine/l3"
)

var logger = l3.Get()

// Counter is an atomic, all-or-nothing resource counter, grounded on the
// spec's "engine-global n_job > 0 and backend-specific counter > 0" rule
// (§4.4) and on pool's own min/max bookkeeping style (pool/pool.go). It
// backs every backend variant's local capacity limit.
type Counter struct {
	mu       sync.Mutex
	capacity int
	inUse    int
}

// NewCounter creates a Counter with the given capacity. A non-positive
// capacity means unlimited (HasResource/Consume never block on this
// counter — used by the Local backend, whose only real limit is the
// engine-global job counter).
func NewCounter(capacity int) *Counter {
	return &Counter{capacity: capacity}
}

// HasResource reports whether one unit of capacity is currently free.
func (c *Counter) HasResource() bool {
	if c.capacity <= 0 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inUse < c.capacity
}

// Consume reserves one unit of capacity, failing if none is free.
func (c *Counter) Consume() bool {
	if c.capacity <= 0 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inUse >= c.capacity {
		return false
	}
	c.inUse++
	return true
}

// Release returns one unit of capacity. It is safe to call even when the
// counter is unlimited (capacity<=0); it is then a no-op, preserving the
// invariant capacity - in_use == free regardless of configuration.
func (c *Counter) Release() {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inUse > 0 {
		c.inUse--
	}
}

// InUse returns the current number of consumed units.
func (c *Counter) InUse() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inUse
}

// Names of the backend kinds recognized by engine.Engine.Backend.
const (
	KindLocal       = "local"
	KindThread      = "thread"
	KindProcess     = "process"
	KindDistributed = "distributed"
)

// runCallable is shared by every backend variant's RunFunction: it checks
// for an already-cancelled context, then invokes j's callable with its
// fully prepared arguments (dependencies substituted, host injected).
func runCallable(ctx context.Context, j *job.Job, fn job.Callable) (any, error) {
	if fn == nil {
		return nil, job.ErrNoBackend
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return fn(ctx, j.PreparedArgs())
}
