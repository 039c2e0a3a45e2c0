// Package jobengine is an in-process asynchronous job execution engine.
//
// It schedules callable work units under resource caps across multiple
// execution backends (in-process, worker thread, worker process,
// distributed worker), honors declarative run conditions and inter-job
// data dependencies, supervises job lifecycle transitions, and exposes
// structured results, retries, cancellation, and persistence.
//
// Each concern lives in its own sub-package:
//
//	import "oss.nandlabs.io/jobengine/condition" // boolean run-condition evaluators
//	import "oss.nandlabs.io/jobengine/job"       // Job / JobFuture / state machine
//	import "oss.nandlabs.io/jobengine/store"     // per-status job stores + manager
//	import "oss.nandlabs.io/jobengine/backend"   // backend contract + variants
//	import "oss.nandlabs.io/jobengine/engine"    // engine supervisor
//	import "oss.nandlabs.io/jobengine/launcher"  // launcher decorator + default engine
package jobengine
