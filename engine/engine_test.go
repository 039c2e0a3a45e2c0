package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"oss.nandlabs.io/jobengine/job"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultEngineSetting())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := e.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = e.Stop() })
	return e
}

func TestEngineRunsFunctionJob(t *testing.T) {
	e := newTestEngine(t)

	j, err := e.NewFunctionJob("square", func(ctx context.Context, args []any) (any, error) {
		n := args[0].(int)
		return n * n, nil
	}, 7)
	if err != nil {
		t.Fatalf("NewFunctionJob: %v", err)
	}
	if err := e.Submit(j); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	result, ok := e.WaitJob(j, time.Second)
	if !ok || result != 49 {
		t.Fatalf("expected 49, got %v (ok=%v)", result, ok)
	}
}

func TestEngineChainedFutureDependency(t *testing.T) {
	e := newTestEngine(t)

	producer, err := e.NewFunctionJob("produce", func(ctx context.Context, args []any) (any, error) {
		return 10, nil
	})
	if err != nil {
		t.Fatalf("NewFunctionJob producer: %v", err)
	}

	consumer, err := e.NewFunctionJob("consume", func(ctx context.Context, args []any) (any, error) {
		return args[0].(int) + 5, nil
	}, producer.Future())
	if err != nil {
		t.Fatalf("NewFunctionJob consumer: %v", err)
	}

	if err := e.Submit(producer, consumer); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	result, ok := e.WaitJob(consumer, time.Second)
	if !ok || result != 15 {
		t.Fatalf("expected 15, got %v (ok=%v)", result, ok)
	}
}

func TestEngineUpstreamFailurePropagatesAsCancel(t *testing.T) {
	e := newTestEngine(t)

	boom := errors.New("boom")
	producer, _ := e.NewFunctionJob("fails", func(ctx context.Context, args []any) (any, error) {
		return nil, boom
	})

	ran := false
	consumer, _ := e.NewFunctionJob("never-runs", func(ctx context.Context, args []any) (any, error) {
		ran = true
		return nil, nil
	}, producer.Future())

	if err := e.Submit(producer, consumer); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitFor(t, time.Second, func() bool { return consumer.Status().Terminal() })

	if consumer.Status() != job.Cancelled {
		t.Fatalf("expected consumer cancelled, got %v", consumer.Status())
	}
	if ran {
		t.Fatal("expected consumer callable never to run")
	}
}

func TestEngineRetriesUntilSuccess(t *testing.T) {
	e := newTestEngine(t)

	attempts := 0
	j, _ := e.NewFunctionJob("flaky", func(ctx context.Context, args []any) (any, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	})
	j.SetMaxRetries(5)

	if err := e.Submit(j); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	result, ok := e.WaitJob(j, 2*time.Second)
	if !ok || result != "ok" {
		t.Fatalf("expected eventual success, got %v (ok=%v)", result, ok)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestEngineGeneratorSend(t *testing.T) {
	e := newTestEngine(t)

	j, err := e.NewGeneratorJob("accumulate", func(ctx context.Context, args []any, yield func(v any) any) (any, error) {
		total := 0
		v := yield(total)
		total += v.(int)
		v = yield(total)
		total += v.(int)
		return total, nil
	})
	if err != nil {
		t.Fatalf("NewGeneratorJob: %v", err)
	}

	if err := e.Submit(j); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// The generator job drains itself via job.run's internal Send loop
	// without external interaction in this harness, so it behaves like a
	// plain function job from the engine's point of view: each yield
	// receives back the value it yielded, and the job finishes when the
	// generator returns.
	waitFor(t, time.Second, func() bool { return j.Status().Terminal() })
	if j.Status() != job.Done {
		t.Fatalf("expected Done, got %v", j.Status())
	}
}

func TestEngineCancelPendingJob(t *testing.T) {
	e := newTestEngine(t)

	blocker, _ := e.NewFunctionJob("blocker", func(ctx context.Context, args []any) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	blocker.Resources = map[string]int{"gpu": 1}
	e.setting.ResourceCaps = map[string]int{"gpu": 1}

	gated, _ := e.NewFunctionJob("gated", func(ctx context.Context, args []any) (any, error) {
		return nil, nil
	})
	gated.Resources = map[string]int{"gpu": 1}

	if err := e.Submit(blocker, gated); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFor(t, time.Second, func() bool { return blocker.Status() == job.Running })

	if err := e.Cancel(gated); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if gated.Status() != job.Cancelled {
		t.Fatalf("expected Cancelled, got %v", gated.Status())
	}

	_ = e.Cancel(blocker)
}

func TestEngineStartStopIdempotent(t *testing.T) {
	e, err := NewEngine(DefaultEngineSetting())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := e.Start(); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := e.Start(); err != nil {
		t.Fatalf("second Start should be a no-op, got: %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("second Stop should be a no-op, got: %v", err)
	}
}

func TestEngineSentinelJobRepeats(t *testing.T) {
	e := newTestEngine(t)

	runs := 0
	j, err := NewSentinelJob(e, "heartbeat", 20*time.Millisecond, true, func(ctx context.Context, args []any) (any, error) {
		runs++
		return runs, nil
	})
	if err != nil {
		t.Fatalf("NewSentinelJob: %v", err)
	}
	if err := e.Submit(j); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitFor(t, time.Second, func() bool { return runs >= 3 })
	_ = e.Cancel(j)
}

func TestEngineUseStopsOnPanic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic to propagate")
		}
	}()
	_ = Use(DefaultEngineSetting(), func(e *Engine) error {
		panic("boom")
	})
}
