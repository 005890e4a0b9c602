package store

import (
	"testing"
	"time"
)

func TestSetJobCreatesPlanned(t *testing.T) {
	s := New()
	now := time.Now().UTC()
	execution := now.Add(time.Hour)

	job, err := s.SetJob("app.x", execution, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Status != JobPlanned {
		t.Errorf("expected status Planned, got %s", job.Status)
	}
	if !job.Execution.Equal(execution.Truncate(time.Second)) {
		t.Errorf("expected execution %v, got %v", execution, job.Execution)
	}
}

func TestSetJobOnTriggeredIsRejected(t *testing.T) {
	s := New()
	now := time.Now().UTC()

	s.PutJob(Job{ID: "app.x", Status: JobTriggered, Execution: now, LastTransition: now})

	_, err := s.SetJob("app.x", now.Add(time.Hour), now)
	if err != ErrConflictTriggered {
		t.Fatalf("expected ErrConflictTriggered, got %v", err)
	}
}

func TestSetJobOnExecutedResetsToPlanned(t *testing.T) {
	s := New()
	now := time.Now().UTC()

	s.PutJob(Job{ID: "app.x", Status: JobExecuted, Execution: now, LastTransition: now})

	job, err := s.SetJob("app.x", now.Add(time.Hour), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Status != JobPlanned {
		t.Errorf("expected status reset to Planned, got %s", job.Status)
	}
}

func TestSetJobIdempotent(t *testing.T) {
	s := New()
	now := time.Now().UTC()
	execution := now.Add(time.Hour)

	first, err := s.SetJob("app.x", execution, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := s.SetJob("app.x", execution, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Status != second.Status || !first.Execution.Equal(second.Execution) {
		t.Errorf("expected idempotent SET, got %+v then %+v", first, second)
	}
}

func TestUnsetJobNotFound(t *testing.T) {
	s := New()

	if err := s.UnsetJob("missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDueJobsOrdering(t *testing.T) {
	s := New()
	now := time.Now().UTC()
	past := now.Add(-time.Minute)

	s.PutJob(Job{ID: "b", Status: JobPlanned, Execution: past})
	s.PutJob(Job{ID: "a", Status: JobPlanned, Execution: past})
	s.PutJob(Job{ID: "z", Status: JobPlanned, Execution: past.Add(time.Second)})
	s.PutJob(Job{ID: "future", Status: JobPlanned, Execution: now.Add(time.Hour)})
	s.PutJob(Job{ID: "already-triggered", Status: JobTriggered, Execution: past})

	due := s.DueJobs(now)
	if len(due) != 3 {
		t.Fatalf("expected 3 due jobs, got %d (%+v)", len(due), due)
	}
	gotOrder := []string{due[0].ID, due[1].ID, due[2].ID}
	wantOrder := []string{"a", "b", "z"}
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Errorf("expected order %v, got %v", wantOrder, gotOrder)
		}
	}
}

func TestRulesSnapshotIsDefensiveCopy(t *testing.T) {
	s := New()
	s.SetRule(Rule{ID: "r1", Pattern: "app.", RunnerKind: RunnerShell, RunnerArgs: []string{"/bin/true"}})

	snapshot := s.RulesSnapshot()
	snapshot[0].RunnerArgs[0] = "mutated"

	rule, _ := s.GetRule("r1")
	if rule.RunnerArgs[0] != "/bin/true" {
		t.Errorf("snapshot mutation leaked into store: %v", rule.RunnerArgs)
	}
}

func TestTriggeredJobsOrdering(t *testing.T) {
	s := New()
	now := time.Now().UTC()

	s.PutJob(Job{ID: "later", Status: JobTriggered, Execution: now.Add(time.Minute)})
	s.PutJob(Job{ID: "earlier", Status: JobTriggered, Execution: now})
	s.PutJob(Job{ID: "planned", Status: JobPlanned, Execution: now})

	triggered := s.TriggeredJobs()
	if len(triggered) != 2 {
		t.Fatalf("expected 2 triggered jobs, got %d", len(triggered))
	}
	if triggered[0].ID != "earlier" || triggered[1].ID != "later" {
		t.Errorf("unexpected order: %+v", triggered)
	}
}
