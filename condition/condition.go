// Package condition implements the boolean run-condition evaluators that
// gate a job's admission into the running state (spec §4.1).
//
// A Condition is a pure predicate over an engine snapshot: it never mutates
// anything it is handed (EveryPeriod is the one stateful exception, and it
// only mutates its own internal bookkeeping). Conditions are plain values —
// no closures — so they can be copied, stored, and serialized freely.
package condition

import "time"

// Snapshot is the minimal read-only view of engine/job state a Condition
// needs to evaluate itself. It is satisfied by engine.Engine, so this
// package never has to import the engine or the job package (which would
// create an import cycle, since the job package embeds a Condition on
// every Job).
type Snapshot interface {
	// JobStatus returns the status literal ("pending", "running", "done",
	// "failed", "cancelled") of the job with the given id, and whether the
	// job is known at all. A missing job is reported as found=false.
	JobStatus(jobID string) (status string, found bool)
	// Now returns the time the snapshot was taken (so evaluation never
	// races against the wall clock mid-decision).
	Now() time.Time
}

// Status literals used by AfterAnother/AfterOthers. These mirror the
// terminal status literals from the job package without importing it.
const (
	StatusDone      = "done"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Condition is a pure predicate gating a job's admission to running.
type Condition interface {
	// Satisfy reports whether the condition currently holds against snap.
	Satisfy(snap Snapshot) bool
}

// And combines two conditions into an AllSatisfied pair (short-circuiting).
// It is the Go equivalent of the source's `&` operator overload.
func And(a, b Condition) Condition {
	return &AllSatisfied{Conditions: []Condition{a, b}}
}

// Or combines two conditions into an AnySatisfied pair (short-circuiting).
// It is the Go equivalent of the source's `|` operator overload.
func Or(a, b Condition) Condition {
	return &AnySatisfied{Conditions: []Condition{a, b}}
}
