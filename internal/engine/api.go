package engine

import (
	"context"
	"time"

	"kairoi/internal/store"
)

// SetJob implements the SET instruction (§4.1). It blocks until the
// Engine's tick loop has applied and journaled the transition.
func (e *Engine) SetJob(ctx context.Context, id string, execution time.Time) (store.Job, error) {
	reply := make(chan opResult, 1)
	op := operation{kind: opSetJob, jobID: id, execution: execution, reply: reply}

	select {
	case e.requests <- op:
	case <-ctx.Done():
		return store.Job{}, ctx.Err()
	}

	select {
	case result := <-reply:
		return result.job, result.err
	case <-ctx.Done():
		return store.Job{}, ctx.Err()
	}
}

// UnsetJob implements the (optionally exposed) UNSET instruction.
func (e *Engine) UnsetJob(ctx context.Context, id string) error {
	reply := make(chan opResult, 1)
	op := operation{kind: opUnsetJob, jobID: id, reply: reply}

	select {
	case e.requests <- op:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case result := <-reply:
		return result.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetRule implements the RULE SET instruction.
func (e *Engine) SetRule(ctx context.Context, rule store.Rule) error {
	reply := make(chan opResult, 1)
	op := operation{kind: opSetRule, rule: rule, reply: reply}

	select {
	case e.requests <- op:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case result := <-reply:
		return result.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UnsetRule implements the (optionally exposed) RULE UNSET instruction.
func (e *Engine) UnsetRule(ctx context.Context, id string) error {
	reply := make(chan opResult, 1)
	op := operation{kind: opUnsetRule, ruleID: id, reply: reply}

	select {
	case e.requests <- op:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case result := <-reply:
		return result.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReportExecution delivers internal feedback from the Processor (pairing
// failure) or the Runner Pool (execution outcome) to the Engine (§4.1
// "ReportExecution"). It may block if the feedback channel is full,
// providing the same back-pressure mechanism as the Execute channel.
func (e *Engine) ReportExecution(ctx context.Context, report ExecutionReport) error {
	select {
	case e.feedback <- report:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RulesSnapshot returns a recent, consistent snapshot of every Rule,
// fulfilling the request/reply half of the Processor's snapshot contract
// (§4.2).
func (e *Engine) RulesSnapshot(ctx context.Context) ([]store.Rule, error) {
	reply := make(chan []store.Rule, 1)

	select {
	case e.snapshots <- snapshotRequest{reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case rules := <-reply:
		return rules, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
