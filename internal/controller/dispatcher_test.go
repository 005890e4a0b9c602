package controller

import (
	"context"
	"testing"
	"time"

	"kairoi/internal/controller/kcp"
	"kairoi/internal/store"
)

type fakeEngine struct {
	jobs  map[string]store.Job
	rules map[string]store.Rule
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{jobs: map[string]store.Job{}, rules: map[string]store.Rule{}}
}

func (f *fakeEngine) SetJob(ctx context.Context, id string, execution time.Time) (store.Job, error) {
	if existing, ok := f.jobs[id]; ok && existing.Status == store.JobTriggered {
		return store.Job{}, store.ErrConflictTriggered
	}
	job := store.Job{ID: id, Execution: execution, Status: store.JobPlanned}
	f.jobs[id] = job

	return job, nil
}

func (f *fakeEngine) UnsetJob(ctx context.Context, id string) error {
	if _, ok := f.jobs[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.jobs, id)

	return nil
}

func (f *fakeEngine) SetRule(ctx context.Context, rule store.Rule) error {
	f.rules[rule.ID] = rule
	return nil
}

func (f *fakeEngine) UnsetRule(ctx context.Context, id string) error {
	if _, ok := f.rules[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.rules, id)

	return nil
}

func TestDispatcherSet(t *testing.T) {
	eng := newFakeEngine()
	dispatch := NewDispatcher(eng)

	reason, err := dispatch(context.Background(), kcp.Instruction{Kind: kcp.KindSet, JobID: "app.x", Execution: time.Now()})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if reason != "" {
		t.Errorf("expected no reason, got %q", reason)
	}
	if _, ok := eng.jobs["app.x"]; !ok {
		t.Error("expected job to be set")
	}
}

func TestDispatcherUnsetNotFound(t *testing.T) {
	eng := newFakeEngine()
	dispatch := NewDispatcher(eng)

	reason, err := dispatch(context.Background(), kcp.Instruction{Kind: kcp.KindUnset, JobID: "missing"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if reason != "not_found" {
		t.Errorf("expected not_found, got %q", reason)
	}
}

func TestDispatcherSetConflictTriggered(t *testing.T) {
	eng := newFakeEngine()
	eng.jobs["app.x"] = store.Job{ID: "app.x", Status: store.JobTriggered}
	dispatch := NewDispatcher(eng)

	reason, err := dispatch(context.Background(), kcp.Instruction{Kind: kcp.KindSet, JobID: "app.x", Execution: time.Now()})
	if err == nil {
		t.Fatal("expected an error")
	}
	if reason != "conflict_triggered" {
		t.Errorf("expected conflict_triggered, got %q", reason)
	}
}

func TestDispatcherRuleSetAndUnset(t *testing.T) {
	eng := newFakeEngine()
	dispatch := NewDispatcher(eng)

	rule := store.Rule{ID: "r1", Pattern: "app.", RunnerKind: store.RunnerShell, RunnerArgs: []string{"/bin/true"}}
	if _, err := dispatch(context.Background(), kcp.Instruction{Kind: kcp.KindRuleSet, Rule: rule}); err != nil {
		t.Fatalf("dispatch RULE SET: %v", err)
	}
	if _, ok := eng.rules["r1"]; !ok {
		t.Fatal("expected rule to be set")
	}

	if _, err := dispatch(context.Background(), kcp.Instruction{Kind: kcp.KindRuleUnset, Rule: store.Rule{ID: "r1"}}); err != nil {
		t.Fatalf("dispatch RULE UNSET: %v", err)
	}
	if _, ok := eng.rules["r1"]; ok {
		t.Error("expected rule to be removed")
	}
}
