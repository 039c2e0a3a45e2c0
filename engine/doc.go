// Package engine implements the supervisor described in spec §4.5: it owns
// the job manager, the resource counters, and the backend registry, and
// drives pending jobs toward admission on its own dedicated loop goroutine.
package engine
