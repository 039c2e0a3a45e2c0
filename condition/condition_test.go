package condition

import (
	"testing"
	"time"
)

type fakeSnapshot struct {
	now    time.Time
	status map[string]string
}

func (f *fakeSnapshot) Now() time.Time { return f.now }

func (f *fakeSnapshot) JobStatus(jobID string) (string, bool) {
	s, ok := f.status[jobID]
	return s, ok
}

func TestAfterAnother(t *testing.T) {
	snap := &fakeSnapshot{now: time.Now(), status: map[string]string{"a": StatusDone}}

	c := NewAfterAnother("a")
	if !c.Satisfy(snap) {
		t.Fatal("expected condition to be satisfied when dependency is done")
	}

	snap.status["a"] = "running"
	if c.Satisfy(snap) {
		t.Fatal("expected condition to be unsatisfied while dependency is running")
	}

	unknown := NewAfterAnother("missing")
	if unknown.Satisfy(snap) {
		t.Fatal("expected condition referencing unknown job to be unsatisfied")
	}
}

func TestAfterOthersModeAll(t *testing.T) {
	snap := &fakeSnapshot{now: time.Now(), status: map[string]string{
		"a": StatusDone,
		"b": StatusFailed,
	}}

	allCond := NewAfterOthers([]string{"a", "b"}, ModeAll)
	if !allCond.Satisfy(snap) {
		t.Fatal("expected all-of condition satisfied when every job reached a terminal status")
	}

	snap.status["b"] = "running"
	if allCond.Satisfy(snap) {
		t.Fatal("expected all-of condition unsatisfied while one job is still running")
	}

	anyCond := NewAfterOthers([]string{"a", "b"}, ModeAny)
	if !anyCond.Satisfy(snap) {
		t.Fatal("expected any-of condition satisfied once one job reached a terminal status")
	}
}

func TestAfterOthersEmptyIsTrivial(t *testing.T) {
	snap := &fakeSnapshot{now: time.Now()}
	c := NewAfterOthers(nil, ModeAll)
	if !c.Satisfy(snap) {
		t.Fatal("expected empty dependency set to be trivially satisfied")
	}
}

func TestAndOrCombinators(t *testing.T) {
	snap := &fakeSnapshot{now: time.Now(), status: map[string]string{"a": StatusDone}}

	always := NewAfterAnother("a")
	never := NewAfterAnother("missing")

	if !And(always, always).Satisfy(snap) {
		t.Fatal("expected And of two true conditions to be true")
	}
	if And(always, never).Satisfy(snap) {
		t.Fatal("expected And with one false condition to be false")
	}
	if !Or(always, never).Satisfy(snap) {
		t.Fatal("expected Or with one true condition to be true")
	}
	if Or(never, never).Satisfy(snap) {
		t.Fatal("expected Or of two false conditions to be false")
	}
}

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"1d":   24 * time.Hour,
		"2h":   2 * time.Hour,
		"30m":  30 * time.Minute,
		"15s":  15 * time.Second,
		"1.5h": 90 * time.Minute,
	}
	for expr, want := range cases {
		got, err := ParseDuration(expr)
		if err != nil {
			t.Fatalf("ParseDuration(%q): %v", expr, err)
		}
		if got != want {
			t.Fatalf("ParseDuration(%q) = %v, want %v", expr, got, want)
		}
	}

	if _, err := ParseDuration("-1h"); err == nil {
		t.Fatal("expected negative duration to be rejected")
	}
	if _, err := ParseDuration("1x"); err == nil {
		t.Fatal("expected unrecognized unit to be rejected")
	}
}

func TestEveryPeriodImmediate(t *testing.T) {
	ep, err := NewEveryPeriod("1h", true)
	if err != nil {
		t.Fatalf("NewEveryPeriod: %v", err)
	}
	base := time.Now()
	snap := &fakeSnapshot{now: base}

	if !ep.Satisfy(snap) {
		t.Fatal("expected immediate EveryPeriod to fire on first evaluation")
	}
	snap.now = base.Add(time.Minute)
	if ep.Satisfy(snap) {
		t.Fatal("expected EveryPeriod not to fire before the period elapses")
	}
	snap.now = base.Add(2 * time.Hour)
	if !ep.Satisfy(snap) {
		t.Fatal("expected EveryPeriod to fire again once the period elapses")
	}
}

func TestEveryPeriodNotImmediate(t *testing.T) {
	ep, err := NewEveryPeriod("10m", false)
	if err != nil {
		t.Fatalf("NewEveryPeriod: %v", err)
	}
	base := time.Now()
	snap := &fakeSnapshot{now: base}

	if ep.Satisfy(snap) {
		t.Fatal("expected non-immediate EveryPeriod not to fire on first evaluation")
	}
	snap.now = base.Add(11 * time.Minute)
	if !ep.Satisfy(snap) {
		t.Fatal("expected EveryPeriod to fire once the period elapses after priming")
	}
}

func TestAfterBeforeClock(t *testing.T) {
	after, err := NewAfterClock("14:30")
	if err != nil {
		t.Fatalf("NewAfterClock: %v", err)
	}
	before, err := NewBeforeClock("14:30")
	if err != nil {
		t.Fatalf("NewBeforeClock: %v", err)
	}

	later := time.Date(2026, 1, 1, 15, 0, 0, 0, time.UTC)
	earlier := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	if !after.Satisfy(&fakeSnapshot{now: later}) {
		t.Fatal("expected AfterClock satisfied after 14:30")
	}
	if after.Satisfy(&fakeSnapshot{now: earlier}) {
		t.Fatal("expected AfterClock unsatisfied before 14:30")
	}
	if !before.Satisfy(&fakeSnapshot{now: earlier}) {
		t.Fatal("expected BeforeClock satisfied before 14:30")
	}
}

func TestParseWeekdayInvalid(t *testing.T) {
	if _, err := ParseWeekday("funday"); err == nil {
		t.Fatal("expected invalid weekday name to error")
	}
}
