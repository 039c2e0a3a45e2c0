package condition

import (
	"sync"
	"time"
)

// EveryPeriod is the one stateful condition: it is true on the first
// evaluation iff Immediate, and thereafter true once now-lastTrue >= Period,
// updating lastTrue on every true evaluation. It is the building block for
// sentinel/cron jobs (spec §4.4, §8 scenario 6).
type EveryPeriod struct {
	Period    time.Duration
	Immediate bool

	mu       sync.Mutex
	lastTrue time.Time
	fired    bool
}

// NewEveryPeriod parses expr with ParseDuration and builds an EveryPeriod
// condition.
func NewEveryPeriod(expr string, immediate bool) (*EveryPeriod, error) {
	d, err := ParseDuration(expr)
	if err != nil {
		return nil, err
	}
	return &EveryPeriod{Period: d, Immediate: immediate}, nil
}

// Satisfy implements Condition. It mutates ep.lastTrue, the one condition in
// this package permitted to mutate its own state during evaluation.
func (ep *EveryPeriod) Satisfy(snap Snapshot) bool {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	now := snap.Now()
	if !ep.fired {
		ep.fired = true
		if ep.Immediate {
			ep.lastTrue = now
			return true
		}
		ep.lastTrue = now
		return false
	}

	if now.Sub(ep.lastTrue) >= ep.Period {
		ep.lastTrue = now
		return true
	}
	return false
}
