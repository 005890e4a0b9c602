// Package engine implements the Database Engine (§4.1): the serialising
// centre of Kairoi. It owns the in-memory Job/Rule store and the
// Persistence Journal, applies client writes, detects due jobs, and drives
// the trigger/pairing/execution state machine forward.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"

	"kairoi/internal/engine/clockutil"
	"kairoi/internal/journal"
	"kairoi/internal/store"
)

var tracer = otel.Tracer("kairoi/engine")

// Config configures one Engine instance.
type Config struct {
	// Framerate is the number of ticks per second, in [1, 65535] (§4.1).
	Framerate int

	// Persistence enables the write-ahead journal. When false, Recover
	// skips replay and Run discards every record instead of writing to
	// JournalPath, the way the original's in-memory-only mode runs with
	// no durability at all.
	Persistence bool

	// FsyncOnPersist controls whether Append blocks on fsync before
	// replies are released (§4.4 durability contract). Meaningless when
	// Persistence is false.
	FsyncOnPersist bool

	// JournalPath is the path to the append-only log file.
	JournalPath string

	// RequestQueueSize bounds the inbound client-request channel.
	RequestQueueSize int

	// PairQueueSize bounds the outbound Pair channel to the Processor.
	PairQueueSize int

	// FeedbackQueueSize bounds the inbound ExecutionReport channel.
	FeedbackQueueSize int

	// Clock is injectable for deterministic tests; defaults to clockutil.Real.
	Clock clockutil.Clock

	// Metrics receives tick/trigger observations; defaults to Noop.
	Metrics Metrics

	Logger *slog.Logger

	// Exit is called with a non-zero exit code on durability failure
	// (§4.1, §7: journal write failure is fatal). Defaults to os.Exit;
	// tests substitute a function that records the call instead of
	// killing the test process.
	Exit func(code int)
}

func (c *Config) setDefaults() {
	if c.Framerate <= 0 {
		c.Framerate = 512
	}
	if c.RequestQueueSize <= 0 {
		c.RequestQueueSize = 1024
	}
	if c.PairQueueSize <= 0 {
		c.PairQueueSize = 256
	}
	if c.FeedbackQueueSize <= 0 {
		c.FeedbackQueueSize = 256
	}
	if c.Clock == nil {
		c.Clock = clockutil.Real
	}
	if c.Metrics == nil {
		c.Metrics = Noop{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Exit == nil {
		c.Exit = os.Exit
	}
}

// Engine is the Database Engine. One Engine owns exactly one Store and one
// Journal; both are accessed only from the goroutine running Run.
type Engine struct {
	cfg     Config
	store   *store.Store
	journal *journal.Journal

	requests  chan operation
	feedback  chan ExecutionReport
	pairs     chan Pairing
	snapshots chan snapshotRequest
}

// New constructs an Engine. It does not open the journal or read it; call
// Recover before Run to perform startup recovery (§4.4).
func New(cfg Config) *Engine {
	cfg.setDefaults()

	return &Engine{
		cfg:       cfg,
		store:     store.New(),
		requests:  make(chan operation, cfg.RequestQueueSize),
		feedback:  make(chan ExecutionReport, cfg.FeedbackQueueSize),
		pairs:     make(chan Pairing, cfg.PairQueueSize),
		snapshots: make(chan snapshotRequest),
	}
}

// Pairs returns the channel the Processor consumes Pairing messages from.
func (e *Engine) Pairs() <-chan Pairing {
	return e.pairs
}

// Recover opens the journal, replaying every record into the in-memory
// store in file order, then re-enqueues any job recovered as Triggered for
// pairing (§4.4 "Startup recovery"). It must be called exactly once, before
// Run.
func (e *Engine) Recover() error {
	if !e.cfg.Persistence {
		e.journal = journal.Discard()
		return nil
	}

	records, err := journal.ReadAll(e.cfg.JournalPath)
	if err != nil {
		return fmt.Errorf("engine: recovery: %w", err)
	}

	for _, rec := range records {
		applyRecord(e.store, rec)
	}

	j, err := journal.Open(e.cfg.JournalPath, e.cfg.FsyncOnPersist)
	if err != nil {
		return fmt.Errorf("engine: open journal: %w", err)
	}
	e.journal = j

	for _, job := range e.store.TriggeredJobs() {
		e.cfg.Logger.Debug("recovered triggered job, re-enqueueing for pairing", "job", job.ID)
		e.pairs <- Pairing{Job: job}
	}

	return nil
}

// applyRecord installs one journal record into store during recovery.
// Unlike the live request path, this bypasses conflict checks: the
// journal already represents the accepted outcome of each transition.
func applyRecord(s *store.Store, rec journal.Record) {
	switch rec.Tag {
	case journal.TagJobUpserted:
		s.PutJob(store.Job{
			ID:             rec.JobID,
			Execution:      rec.JobExecution,
			Status:         rec.JobStatus,
			LastTransition: rec.JobLastTransition,
		})
	case journal.TagJobStatusChanged:
		existing, ok := s.GetJob(rec.JobID)
		if !ok {
			return
		}
		existing.Status = rec.JobStatus
		existing.LastTransition = rec.JobLastTransition
		s.PutJob(existing)
	case journal.TagJobRemoved:
		s.UnsetJob(rec.JobID)
	case journal.TagRuleUpserted:
		s.SetRule(store.Rule{
			ID:         rec.RuleID,
			Pattern:    rec.RulePattern,
			RunnerKind: rec.RuleRunnerKind,
			RunnerArgs: rec.RuleRunnerArgs,
		})
	case journal.TagRuleRemoved:
		s.UnsetRule(rec.RuleID)
	}
}

// Run executes the framerate-paced tick loop (§4.1) until ctx is
// cancelled. On cancellation it performs one final drain-and-persist pass,
// closes the journal, and returns.
func (e *Engine) Run(ctx context.Context) error {
	period := time.Second / time.Duration(e.cfg.Framerate)

	defer e.journal.Close()

	for {
		start := time.Now()

		e.tickTraced(ctx)

		e.cfg.Metrics.TickDuration(time.Since(start))

		if ctx.Err() != nil {
			e.cfg.Logger.Info("engine draining before shutdown")
			e.tickTraced(ctx)

			return nil
		}

		elapsed := time.Since(start)
		if remaining := period - elapsed; remaining > 0 {
			select {
			case <-ctx.Done():
				e.tickTraced(ctx)
				return nil
			case <-time.After(remaining):
			}
		}
	}
}

// tickTraced wraps tick in a span so each loop iteration is visible in a
// trace backend, per the tick-duration metric's counterpart.
func (e *Engine) tickTraced(ctx context.Context) {
	_, span := tracer.Start(ctx, "engine.tick")
	defer span.End()

	e.tick()
}

// tick performs one iteration of the loop: drain client requests, trigger
// due jobs, drain feedback, per §4.1.
func (e *Engine) tick() {
	now := e.cfg.Clock()

	e.cfg.Metrics.RequestQueueDepth(len(e.requests))
	e.drainRequests()
	e.drainSnapshots()
	e.triggerDueJobs(now)
	e.drainFeedback(now)
}

// drainRequests applies every request queued at tick start, journals the
// resulting transitions as one batch, then releases replies (§4.1 step 1-2;
// §4.5 transition boundary).
func (e *Engine) drainRequests() {
	depth := len(e.requests)
	if depth == 0 {
		return
	}

	ops := make([]operation, 0, depth)
	for i := 0; i < depth; i++ {
		ops = append(ops, <-e.requests)
	}

	records := make([]journal.Record, 0, depth)
	results := make([]opResult, depth)
	applied := make([]bool, depth)

	for i, op := range ops {
		job, err := e.applyOperation(op)
		results[i] = opResult{job: job, err: err}
		if err == nil {
			applied[i] = true
			records = append(records, recordFor(op, job))
		}
	}

	if len(records) > 0 {
		if err := e.journal.Append(records); err != nil {
			e.fatal("journal write failure", err)
		}
	}

	for i, op := range ops {
		op.reply <- results[i]
	}
}

// applyOperation performs the in-memory half of one client request. It
// does not journal; the caller batches journaling across the whole drain.
func (e *Engine) applyOperation(op operation) (store.Job, error) {
	switch op.kind {
	case opSetJob:
		return e.store.SetJob(op.jobID, op.execution, e.cfg.Clock())
	case opUnsetJob:
		return store.Job{}, e.store.UnsetJob(op.jobID)
	case opSetRule:
		e.store.SetRule(op.rule)
		return store.Job{}, nil
	case opUnsetRule:
		return store.Job{}, e.store.UnsetRule(op.ruleID)
	default:
		return store.Job{}, fmt.Errorf("engine: unknown operation kind %d", op.kind)
	}
}

func recordFor(op operation, job store.Job) journal.Record {
	switch op.kind {
	case opSetJob:
		return journal.JobUpsertedRecord(job)
	case opUnsetJob:
		return journal.JobRemovedRecord(op.jobID)
	case opSetRule:
		return journal.RuleUpsertedRecord(op.rule)
	case opUnsetRule:
		return journal.RuleRemovedRecord(op.ruleID)
	default:
		return journal.Record{}
	}
}

// triggerDueJobs implements §4.1 step 3: scan for due jobs, transition
// them to Triggered in ascending (execution, identifier) order, journal
// the transitions as one batch, then enqueue Pair messages. Journaling
// happens before the Pair send so that a crash between them still leaves
// the job durably Triggered, ready to be re-enqueued on recovery.
func (e *Engine) triggerDueJobs(now time.Time) {
	due := e.store.DueJobs(now)
	if len(due) == 0 {
		return
	}

	lastTransition := now.Truncate(time.Second)

	triggered := make([]store.Job, len(due))
	records := make([]journal.Record, len(due))
	for i, job := range due {
		job.Status = store.JobTriggered
		job.LastTransition = lastTransition
		e.store.PutJob(job)

		triggered[i] = job
		records[i] = journal.JobStatusChangedRecord(job)
	}

	if err := e.journal.Append(records); err != nil {
		e.fatal("journal write failure", err)
	}

	e.cfg.Metrics.JobsTriggered(len(triggered))

	for _, job := range triggered {
		e.cfg.Logger.Debug("triggered job", "job", job.ID, "execution", job.Execution)
		e.pairs <- Pairing{Job: job}
	}
}

// drainFeedback implements §4.1 step 4: apply every pending
// ExecutionReport. A report for a job that no longer exists or is not
// Triggered is a no-op (protects against racing client mutations, §4.1).
func (e *Engine) drainFeedback(now time.Time) {
	lastTransition := now.Truncate(time.Second)

	var records []journal.Record

	for {
		select {
		case report := <-e.feedback:
			job, ok := e.store.GetJob(report.JobID)
			if !ok || job.Status != store.JobTriggered {
				continue
			}

			job.LastTransition = lastTransition
			switch report.Outcome {
			case OutcomeExecuted:
				job.Status = store.JobExecuted
				e.cfg.Metrics.JobExecuted()
				e.cfg.Logger.Debug("job executed", "job", job.ID)
			default:
				job.Status = store.JobFailed
				e.cfg.Metrics.JobFailed()
				e.cfg.Logger.Debug("job failed", "job", job.ID, "reason", report.Reason)
			}
			e.store.PutJob(job)
			records = append(records, journal.JobStatusChangedRecord(job))
		default:
			if len(records) > 0 {
				if err := e.journal.Append(records); err != nil {
					e.fatal("journal write failure", err)
				}
			}

			return
		}
	}
}

// drainSnapshots answers any pending rule-snapshot requests from the
// Processor (§4.2: request/reply is one of the two allowed contracts for
// obtaining a rule snapshot).
func (e *Engine) drainSnapshots() {
	for {
		select {
		case req := <-e.snapshots:
			req.reply <- e.store.RulesSnapshot()
		default:
			return
		}
	}
}

// fatal logs, closes the journal and terminates the process with exit code
// 3. It is called when a journal append fails (§4.1/§7: durability cannot
// silently degrade). A disconnected channel peer is not detected and does
// not lead here.
func (e *Engine) fatal(message string, err error) {
	e.cfg.Logger.Error(message, "error", err)
	e.journal.Close()
	e.cfg.Exit(3)
}
