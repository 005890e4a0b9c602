package runner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"kairoi/internal/engine"
	"kairoi/internal/store"
)

type fakeEngine struct {
	mu      sync.Mutex
	reports []engine.ExecutionReport
}

func (f *fakeEngine) ReportExecution(ctx context.Context, report engine.ExecutionReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, report)

	return nil
}

func (f *fakeEngine) waitForReport(t *testing.T) engine.ExecutionReport {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		if len(f.reports) > 0 {
			report := f.reports[0]
			f.mu.Unlock()
			return report
		}
		f.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for a report")

	return engine.ExecutionReport{}
}

func TestPoolReportsDisabledShellRunner(t *testing.T) {
	fake := &fakeEngine{}
	execute := make(chan Execution, 1)
	pool := New(Config{ShellEnabled: false}, fake, execute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pool.Run(ctx)

	execute <- Execution{
		ID:   uuid.New(),
		Job:  store.Job{ID: "app.x"},
		Rule: store.Rule{ID: "r1", RunnerKind: store.RunnerShell, RunnerArgs: []string{"/bin/true"}},
	}

	report := fake.waitForReport(t)
	if report.Outcome != engine.OutcomeFailed || report.Reason != "RunnerDisabled" {
		t.Errorf("expected Failed/RunnerDisabled, got %s/%s", report.Outcome, report.Reason)
	}
}

func TestPoolReportsDisabledAmqpRunner(t *testing.T) {
	fake := &fakeEngine{}
	execute := make(chan Execution, 1)
	pool := New(Config{AmqpEnabled: false}, fake, execute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pool.Run(ctx)

	execute <- Execution{
		ID:   uuid.New(),
		Job:  store.Job{ID: "app.x"},
		Rule: store.Rule{ID: "r1", RunnerKind: store.RunnerAmqp, RunnerArgs: []string{"amqp://x", "ex", "rk"}},
	}

	report := fake.waitForReport(t)
	if report.Outcome != engine.OutcomeFailed || report.Reason != "RunnerDisabled" {
		t.Errorf("expected Failed/RunnerDisabled, got %s/%s", report.Outcome, report.Reason)
	}
}

func TestPoolReportsUnknownRunnerKind(t *testing.T) {
	fake := &fakeEngine{}
	execute := make(chan Execution, 1)
	pool := New(Config{}, fake, execute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pool.Run(ctx)

	execute <- Execution{
		ID:   uuid.New(),
		Job:  store.Job{ID: "app.x"},
		Rule: store.Rule{ID: "r1", RunnerKind: "bogus"},
	}

	report := fake.waitForReport(t)
	if report.Outcome != engine.OutcomeFailed || report.Reason != "UnknownRunnerKind" {
		t.Errorf("expected Failed/UnknownRunnerKind, got %s/%s", report.Outcome, report.Reason)
	}
}
