package backend

import (
	"context"
	"fmt"
	"sync"

	"oss.nandlabs.io/jobengine/job"
)

// DistributedClient is the worker-submission contract the Distributed
// backend needs from an external async client (spec §1: "only its worker
// interface is specified" — the transport itself, e.g. a dask scheduler
// connection, is out of scope). An Engine holds one DistributedClient and
// closes it on Stop (spec §3 Engine data model).
type DistributedClient interface {
	// Submit dispatches fn(args) to the remote worker pool and returns a
	// handle for awaiting or cancelling it.
	Submit(ctx context.Context, name string, fn job.Callable, args []any) (DistributedHandle, error)
	// Close releases the client's connection to the remote scheduler.
	Close() error
}

// DistributedHandle is a single in-flight remote invocation.
type DistributedHandle interface {
	// Wait blocks until the remote invocation finishes, or ctx is done.
	Wait(ctx context.Context) (any, error)
	// Cancel requests the remote invocation stop, best effort and
	// idempotent (spec §4.4: "Request cancel on the remote handle").
	Cancel()
}

// Distributed is the distributed execution variant (spec §4.4): it submits
// work to an external client rather than running it locally. Generator
// jobs are not supported — see RunGenerator — for the same reason they
// aren't on Process: no portable way to pin worker-local iterator state
// across this module's minimal client contract.
type Distributed struct {
	counter *Counter
	client  DistributedClient

	mu      sync.Mutex
	handles map[string]DistributedHandle
}

// NewDistributed creates a Distributed backend limited to capacity
// concurrent remote invocations, submitting through client. A nil client
// makes every ConsumeResource call fail with ErrNoClient — the engine is
// expected to only register this backend kind once a client is configured
// (spec §7 ConfigurationError: "non-async distributed client handed to the
// engine" generalizes here to "no client at all").
func NewDistributed(capacity int, client DistributedClient) *Distributed {
	return &Distributed{
		counter: NewCounter(capacity),
		client:  client,
		handles: make(map[string]DistributedHandle),
	}
}

// ErrNoClient is returned when the Distributed backend is used without a
// configured DistributedClient.
var ErrNoClient = fmt.Errorf("backend: distributed backend has no client configured")

func (d *Distributed) HasResource(j *job.Job) bool {
	return d.client != nil && d.counter.HasResource()
}

func (d *Distributed) ConsumeResource(j *job.Job) error {
	if d.client == nil {
		return ErrNoClient
	}
	if !d.counter.Consume() {
		return fmt.Errorf("backend: distributed backend at capacity")
	}
	return nil
}

func (d *Distributed) ReleaseResource(j *job.Job) {
	d.mu.Lock()
	delete(d.handles, j.ID)
	d.mu.Unlock()
	d.counter.Release()
}

func (d *Distributed) RunFunction(ctx context.Context, j *job.Job) (any, error) {
	if d.client == nil {
		return nil, ErrNoClient
	}
	handle, err := d.client.Submit(ctx, j.Name, j.Fn, j.PreparedArgs())
	if err != nil {
		return nil, fmt.Errorf("backend: submit to distributed client: %w", err)
	}
	d.mu.Lock()
	d.handles[j.ID] = handle
	d.mu.Unlock()

	return handle.Wait(ctx)
}

func (d *Distributed) RunGenerator(ctx context.Context, j *job.Job) (*job.Generator, error) {
	return nil, fmt.Errorf("backend: distributed backend does not support generator jobs")
}

// CancelRuntime requests cancellation on the job's remote handle, if any is
// still outstanding.
func (d *Distributed) CancelRuntime(j *job.Job) {
	d.mu.Lock()
	h, ok := d.handles[j.ID]
	d.mu.Unlock()
	if ok {
		h.Cancel()
	}
}

// Close closes the underlying client.
func (d *Distributed) Close() error {
	if d.client == nil {
		return nil
	}
	return d.client.Close()
}
