package store

import (
	"context"
	"testing"
	"time"

	"oss.nandlabs.io/jobengine/job"
)

type fakeHost struct {
	now time.Time
}

func (h *fakeHost) Now() time.Time { return h.now }
func (h *fakeHost) JobStatus(id string) (string, bool) { return "", false }
func (h *fakeHost) Backend(kind string) (job.Backend, error) { return nil, job.ErrNoBackend }
func (h *fakeHost) Admit(j *job.Job) bool { return true }
func (h *fakeHost) Release(j *job.Job)    {}
func (h *fakeHost) Notify(j *job.Job, old, new job.Status) {}
func (h *fakeHost) InjectionKey() string { return "" }
func (h *fakeHost) PrintTraceback() bool { return false }

func newTestJob(id string) *job.Job {
	return job.NewJob(id, &fakeHost{now: time.Now()}, func(ctx context.Context, args []any) (any, error) {
		return nil, nil
	})
}

func TestMemStoreAddGetRemove(t *testing.T) {
	ms := NewMemStore()
	j := newTestJob("j1")

	if err := ms.Add(j); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := ms.Add(j); err == nil {
		t.Fatal("expected ErrAlreadyExists on duplicate Add")
	}

	got, err := ms.Get("j1")
	if err != nil || got != j {
		t.Fatalf("Get: got=%v err=%v", got, err)
	}

	if _, err := ms.Get("missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := ms.Remove("j1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := ms.Get("j1"); err != ErrNotFound {
		t.Fatal("expected job gone after Remove")
	}
}

func TestMemStoreByStatusAndMoved(t *testing.T) {
	ms := NewMemStore()
	j := newTestJob("j1")
	_ = ms.Add(j)

	created := ms.ByStatus(job.Created)
	if len(created) != 1 || created[0] != j {
		t.Fatalf("expected job in Created bucket, got %v", created)
	}

	ms.Moved(j, job.Created, job.Pending)

	if len(ms.ByStatus(job.Created)) != 0 {
		t.Fatal("expected Created bucket empty after move")
	}
	pending := ms.ByStatus(job.Pending)
	if len(pending) != 1 || pending[0] != j {
		t.Fatalf("expected job in Pending bucket, got %v", pending)
	}
}

func TestMemStoreAll(t *testing.T) {
	ms := NewMemStore()
	_ = ms.Add(newTestJob("a"))
	_ = ms.Add(newTestJob("b"))

	all := ms.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(all))
	}
}
