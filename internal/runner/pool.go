package runner

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"kairoi/internal/engine"
	"kairoi/internal/store"
)

var tracer = otel.Tracer("kairoi/runner")

// Engine is the subset of *engine.Engine the Runner Pool depends on.
type Engine interface {
	ReportExecution(ctx context.Context, report engine.ExecutionReport) error
}

// Config configures one Pool instance.
type Config struct {
	// ShellEnabled/AmqpEnabled mirror the original's compile-time runner
	// feature flags as runtime booleans (§9: Open Question resolution).
	// A disabled backend fails every execution routed to it immediately.
	ShellEnabled bool
	AmqpEnabled  bool

	// AmqpWorkers is the size of the dedicated AMQP worker group that owns
	// the connection cache (§5, §4.3). Default 4.
	AmqpWorkers int

	// AmqpCacheCapacity bounds the connection cache (§2 "LRU connection
	// cache", capacity 16).
	AmqpCacheCapacity int

	Logger *slog.Logger
}

func (c *Config) setDefaults() {
	if c.AmqpWorkers <= 0 {
		c.AmqpWorkers = 4
	}
	if c.AmqpCacheCapacity <= 0 {
		c.AmqpCacheCapacity = 16
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Pool is the Runner Pool (§4.3). It consumes Execution messages and
// dispatches them to the Shell or AMQP back-end, reporting the outcome back
// to the Engine. Shell executions get one goroutine per job, since a
// hanging script must never starve the rest of the pool; AMQP executions
// are handled by a small fixed worker group that owns the connection cache.
type Pool struct {
	cfg     Config
	eng     Engine
	execute <-chan Execution
	amqpIn  chan Execution
	cache   *connectionCache

	shellWG sync.WaitGroup
}

// New constructs a Pool. execute is typically processor.Processor.Execute().
func New(cfg Config, eng Engine, execute <-chan Execution) *Pool {
	cfg.setDefaults()

	return &Pool{
		cfg:     cfg,
		eng:     eng,
		execute: execute,
		amqpIn:  make(chan Execution, cfg.AmqpWorkers),
		cache:   newConnectionCache(cfg.AmqpCacheCapacity),
	}
}

// Run dispatches until ctx is cancelled or the execute channel closes. It
// blocks until every in-flight shell goroutine and AMQP worker has
// returned.
func (p *Pool) Run(ctx context.Context) error {
	var amqpWG sync.WaitGroup
	for i := 0; i < p.cfg.AmqpWorkers; i++ {
		amqpWG.Add(1)
		go func() {
			defer amqpWG.Done()
			p.amqpWorker(ctx)
		}()
	}

	defer func() {
		close(p.amqpIn)
		amqpWG.Wait()
		p.shellWG.Wait()
		p.cache.closeAll()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case execution, ok := <-p.execute:
			if !ok {
				return nil
			}
			p.dispatch(ctx, execution)
		}
	}
}

func (p *Pool) dispatch(ctx context.Context, execution Execution) {
	ctx, span := tracer.Start(ctx, "runner.dispatch",
		trace.WithAttributes(
			attribute.String("kairoi.job_id", execution.Job.ID),
			attribute.String("kairoi.runner_kind", string(execution.Rule.RunnerKind)),
		),
	)
	defer span.End()

	switch execution.Rule.RunnerKind {
	case store.RunnerShell:
		if !p.cfg.ShellEnabled {
			p.report(ctx, execution, engine.OutcomeFailed, "RunnerDisabled")
			return
		}
		p.shellWG.Add(1)
		go func() {
			defer p.shellWG.Done()
			p.runShell(ctx, execution)
		}()
	case store.RunnerAmqp:
		if !p.cfg.AmqpEnabled {
			p.report(ctx, execution, engine.OutcomeFailed, "RunnerDisabled")
			return
		}
		select {
		case p.amqpIn <- execution:
		case <-ctx.Done():
		}
	default:
		p.report(ctx, execution, engine.OutcomeFailed, "UnknownRunnerKind")
	}
}

func (p *Pool) amqpWorker(ctx context.Context) {
	for execution := range p.amqpIn {
		p.runAmqp(ctx, execution)
	}
}

func (p *Pool) report(ctx context.Context, execution Execution, outcome engine.Outcome, reason string) {
	report := engine.ExecutionReport{
		ExecutionID: execution.ID,
		JobID:       execution.Job.ID,
		Outcome:     outcome,
		Reason:      reason,
	}
	if err := p.eng.ReportExecution(ctx, report); err != nil {
		p.cfg.Logger.Error("failed to report execution outcome", "job", execution.Job.ID, "error", err)
	}
}
