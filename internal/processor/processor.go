// Package processor implements the Processor (§4.2): the stateless pairing
// stage between the Database Engine and the Runner Pool. It never mutates
// state and never persists; every decision it makes is reproducible from a
// rule snapshot plus a job snapshot.
package processor

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"kairoi/internal/engine"
	"kairoi/internal/runner"
	"kairoi/internal/store"
)

var tracer = otel.Tracer("kairoi/processor")

// Engine is the subset of *engine.Engine the Processor depends on. Matching
// against an interface, rather than the concrete type, lets tests substitute
// a fake without standing up a full tick loop — the same reason the teacher
// depends on store.Queue rather than a concrete queue implementation.
type Engine interface {
	RulesSnapshot(ctx context.Context) ([]store.Rule, error)
	ReportExecution(ctx context.Context, report engine.ExecutionReport) error
}

// Config configures one Processor instance.
type Config struct {
	// Workers is the number of pairing goroutines. §5 "tests assume a
	// single Processor worker unless stated": callers that care about
	// strict FIFO ordering across the whole Pair stream must leave this
	// at the default of 1.
	Workers int

	// ExecuteQueueSize bounds the outbound channel to the Runner Pool.
	ExecuteQueueSize int

	Logger *slog.Logger
}

func (c *Config) setDefaults() {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.ExecuteQueueSize <= 0 {
		c.ExecuteQueueSize = 256
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Processor consumes engine.Pairing messages and turns matched ones into
// runner.Execution messages, reporting unmatched ones back to the Engine as
// failed (§4.2 step 4).
type Processor struct {
	cfg     Config
	eng     Engine
	pairs   <-chan engine.Pairing
	execute chan runner.Execution
}

// New constructs a Processor. pairs is typically eng.Pairs().
func New(cfg Config, eng Engine, pairs <-chan engine.Pairing) *Processor {
	cfg.setDefaults()

	return &Processor{
		cfg:     cfg,
		eng:     eng,
		pairs:   pairs,
		execute: make(chan runner.Execution, cfg.ExecuteQueueSize),
	}
}

// Execute returns the channel the Runner Pool consumes from.
func (p *Processor) Execute() <-chan runner.Execution {
	return p.execute
}

// Run starts cfg.Workers pairing goroutines and blocks until ctx is
// cancelled or the pairs channel is closed.
func (p *Processor) Run(ctx context.Context) error {
	done := make(chan struct{}, p.cfg.Workers)
	for i := 0; i < p.cfg.Workers; i++ {
		go func() {
			p.worker(ctx)
			done <- struct{}{}
		}()
	}

	for i := 0; i < p.cfg.Workers; i++ {
		<-done
	}

	return nil
}

func (p *Processor) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case pairing, ok := <-p.pairs:
			if !ok {
				return
			}
			p.pair(ctx, pairing)
		}
	}
}

// pair implements §4.2 steps 1-4 for one triggered job: read a rule
// snapshot, pick the best match, and either forward to the Runner Pool or
// report NoMatchingRule back to the Engine.
func (p *Processor) pair(ctx context.Context, pairing engine.Pairing) {
	ctx, span := tracer.Start(ctx, "processor.pair")
	defer span.End()

	rules, err := p.eng.RulesSnapshot(ctx)
	if err != nil {
		span.RecordError(err)

		return
	}

	rule, ok := BestMatch(pairing.Job.ID, rules)
	if !ok {
		p.cfg.Logger.Debug("no matching rule", "job", pairing.Job.ID)
		p.reportFailure(ctx, pairing.Job.ID, "NoMatchingRule")

		return
	}

	execution := runner.Execution{
		ID:   uuid.New(),
		Job:  pairing.Job,
		Rule: rule,
	}

	select {
	case p.execute <- execution:
	case <-ctx.Done():
	}
}

func (p *Processor) reportFailure(ctx context.Context, jobID string, reason string) {
	report := engine.ExecutionReport{
		JobID:   jobID,
		Outcome: engine.OutcomeFailed,
		Reason:  reason,
	}
	if err := p.eng.ReportExecution(ctx, report); err != nil {
		p.cfg.Logger.Error("failed to report pairing failure", "job", jobID, "error", err)
	}
}
