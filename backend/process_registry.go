package backend

import (
	"context"
	"fmt"
	"sync"

	"oss.nandlabs.io/jobengine/job"
)

// A callable can't cross a process boundary — a Go closure carries no
// portable representation of its captured state. Jobs destined for the
// Process backend are therefore addressed by a name registered once, up
// front, in every process image that might run as a worker (the worker is
// a re-exec of the same binary, so the same registrations are always
// present — see RunProcessWorker).
var (
	processFuncsMu sync.RWMutex
	processFuncs   = map[string]job.Callable{}
)

// RegisterProcessFunc makes fn runnable by name on the Process backend.
// Call it from an init() func or equivalent startup code, exactly the way
// codec.Register wires in a content-type codec at package load time.
func RegisterProcessFunc(name string, fn job.Callable) {
	processFuncsMu.Lock()
	defer processFuncsMu.Unlock()
	processFuncs[name] = fn
}

func lookupProcessFunc(name string) (job.Callable, bool) {
	processFuncsMu.RLock()
	defer processFuncsMu.RUnlock()
	fn, ok := processFuncs[name]
	return fn, ok
}

// invokeRegistered is the entry point the worker loop (RunProcessWorker)
// uses to run a registered function by name.
func invokeRegistered(ctx context.Context, name string, args []any) (any, error) {
	fn, ok := lookupProcessFunc(name)
	if !ok {
		return nil, fmt.Errorf("backend: no process function registered under name %q", name)
	}
	return fn(ctx, args)
}
