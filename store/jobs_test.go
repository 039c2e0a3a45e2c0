package store

import (
	"testing"

	"oss.nandlabs.io/jobengine/job"
)

func TestJobsAddMoveRemove(t *testing.T) {
	jobs := NewJobs(NewMemStore())
	j := newTestJob("j1")

	if err := jobs.Add(j); err != nil {
		t.Fatalf("Add: %v", err)
	}

	jobs.Move(j, job.Created, job.Pending)
	if got := jobs.Pending(); len(got) != 1 || got[0] != j {
		t.Fatalf("expected job in Pending, got %v", got)
	}

	jobs.Move(j, job.Pending, job.Running)
	if got := jobs.PendingOrRunning(); len(got) != 1 || got[0] != j {
		t.Fatalf("expected job in PendingOrRunning, got %v", got)
	}

	jobs.Move(j, job.Running, job.Done)
	if got := jobs.Done(); len(got) != 1 || got[0] != j {
		t.Fatalf("expected job in Done, got %v", got)
	}
	if got := jobs.PendingOrRunning(); len(got) != 0 {
		t.Fatalf("expected job no longer pending/running, got %v", got)
	}

	if err := jobs.Remove(j); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := jobs.Get("j1"); err != ErrNotFound {
		t.Fatal("expected job gone after Remove")
	}
}

func TestJobsAllJobs(t *testing.T) {
	jobs := NewJobs(NewMemStore())
	_ = jobs.Add(newTestJob("a"))
	_ = jobs.Add(newTestJob("b"))

	if len(jobs.AllJobs()) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs.AllJobs()))
	}
}
