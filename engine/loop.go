package engine

import "time"

// runLoop is the supervisor's dedicated goroutine (spec §4.5: "a dedicated
// event-loop thread"), grounded on chrono/impl.go's defaultScheduler.run:
// a precise timer sized to the shortest pending job's PollInterval, woken
// early by wake() whenever submission or a status change might have
// changed what is runnable.
func (e *Engine) runLoop() {
	defer close(e.done)

	timer := time.NewTimer(e.nextPollInterval())
	defer timer.Stop()

	resetTimer := func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(e.nextPollInterval())
	}

	for {
		select {
		case <-e.runCtx.Done():
			return
		case <-timer.C:
			e.tick()
			resetTimer()
		case <-e.wakeCh:
			e.tick()
			resetTimer()
		}
	}
}

// nextPollInterval is the shortest PollInterval among currently pending
// jobs, or defaultIdlePoll when nothing is pending.
func (e *Engine) nextPollInterval() time.Duration {
	shortest := defaultIdlePoll
	found := false
	for _, j := range e.jobs.Pending() {
		d := j.PollInterval
		if d <= 0 {
			continue
		}
		if !found || d < shortest {
			shortest = d
			found = true
		}
	}
	return shortest
}

// tick attempts to start every currently pending job. TryStart is cheap and
// side-effect-free when admission fails, so scanning the whole pending set
// every tick is simpler than tracking per-job next-eligible times and
// correct by construction (spec §5's admission loop has no notion of
// "skip this job until later").
func (e *Engine) tick() {
	for _, j := range e.jobs.Pending() {
		if _, err := j.TryStart(e.runCtx); err != nil {
			logger.ErrorF("engine: job %s failed admission: %v", j.ID, err)
		}
	}
}
