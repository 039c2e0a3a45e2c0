package condition

import "time"

// AfterTimepoint is true once now is after T. If Fields is non-empty, every
// named field of now must individually exceed the corresponding field of T
// (rather than comparing the instants directly) — naming only hour, for
// example, holds on any day once the current hour is later than T's hour.
// With hour and minute named, both must be greater: against 14:30, 15:45
// holds but 15:10 does not.
type AfterTimepoint struct {
	T      time.Time
	Fields []TimepointField
}

// Satisfy implements Condition.
func (c *AfterTimepoint) Satisfy(snap Snapshot) bool {
	return compareTimepoint(snap.Now(), c.T, c.Fields, true)
}

// BeforeTimepoint is the symmetric counterpart of AfterTimepoint.
type BeforeTimepoint struct {
	T      time.Time
	Fields []TimepointField
}

// Satisfy implements Condition.
func (c *BeforeTimepoint) Satisfy(snap Snapshot) bool {
	return compareTimepoint(snap.Now(), c.T, c.Fields, false)
}

func compareTimepoint(now, t time.Time, fields []TimepointField, after bool) bool {
	if len(fields) == 0 {
		if after {
			return now.After(t)
		}
		return now.Before(t)
	}
	for _, f := range fields {
		nv, err := fieldValue(now, f)
		if err != nil {
			return false
		}
		tv, err := fieldValue(t, f)
		if err != nil {
			return false
		}
		if after {
			if nv <= tv {
				return false
			}
		} else {
			if nv >= tv {
				return false
			}
		}
	}
	return true
}

// AfterClock is true once the current local wall-clock time is after the
// given H:M:S. Only the time-of-day is compared; the date is ignored.
type AfterClock struct {
	Hour, Minute, Second int
}

// NewAfterClock parses expr (H, H:M, or H:M:S) into an AfterClock.
func NewAfterClock(expr string) (*AfterClock, error) {
	h, m, s, err := ParseClock(expr)
	if err != nil {
		return nil, err
	}
	return &AfterClock{Hour: h, Minute: m, Second: s}, nil
}

// Satisfy implements Condition.
func (c *AfterClock) Satisfy(snap Snapshot) bool {
	now := snap.Now()
	return clockSeconds(now.Hour(), now.Minute(), now.Second()) > clockSeconds(c.Hour, c.Minute, c.Second)
}

// BeforeClock is the symmetric counterpart of AfterClock.
type BeforeClock struct {
	Hour, Minute, Second int
}

// NewBeforeClock parses expr (H, H:M, or H:M:S) into a BeforeClock.
func NewBeforeClock(expr string) (*BeforeClock, error) {
	h, m, s, err := ParseClock(expr)
	if err != nil {
		return nil, err
	}
	return &BeforeClock{Hour: h, Minute: m, Second: s}, nil
}

// Satisfy implements Condition.
func (c *BeforeClock) Satisfy(snap Snapshot) bool {
	now := snap.Now()
	return clockSeconds(now.Hour(), now.Minute(), now.Second()) < clockSeconds(c.Hour, c.Minute, c.Second)
}

func clockSeconds(h, m, s int) int {
	return h*3600 + m*60 + s
}

// AfterWeekday is true once today's weekday index (Mon=0...Sun=6) is after
// the named weekday's index.
type AfterWeekday struct {
	Weekday int
}

// NewAfterWeekday parses name into an AfterWeekday condition.
func NewAfterWeekday(name string) (*AfterWeekday, error) {
	idx, err := ParseWeekday(name)
	if err != nil {
		return nil, err
	}
	return &AfterWeekday{Weekday: idx}, nil
}

// Satisfy implements Condition.
func (c *AfterWeekday) Satisfy(snap Snapshot) bool {
	return mondayZeroIndex(snap.Now().Weekday()) > c.Weekday
}

// BeforeWeekday is the symmetric counterpart of AfterWeekday.
type BeforeWeekday struct {
	Weekday int
}

// NewBeforeWeekday parses name into a BeforeWeekday condition.
func NewBeforeWeekday(name string) (*BeforeWeekday, error) {
	idx, err := ParseWeekday(name)
	if err != nil {
		return nil, err
	}
	return &BeforeWeekday{Weekday: idx}, nil
}

// Satisfy implements Condition.
func (c *BeforeWeekday) Satisfy(snap Snapshot) bool {
	return mondayZeroIndex(snap.Now().Weekday()) < c.Weekday
}
