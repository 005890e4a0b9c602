package controller

import (
	"context"
	"errors"
	"time"

	"kairoi/internal/controller/kcp"
	"kairoi/internal/store"
)

// Engine is the subset of *engine.Engine the Controller Front depends on.
// Matching against an interface keeps session tests free of a real tick
// loop, the same reasoning as processor.Engine and runner.Engine.
type Engine interface {
	SetJob(ctx context.Context, id string, execution time.Time) (store.Job, error)
	UnsetJob(ctx context.Context, id string) error
	SetRule(ctx context.Context, rule store.Rule) error
	UnsetRule(ctx context.Context, id string) error
}

// Dispatcher applies one parsed instruction against the Database Engine,
// returning the simple-string reason for an ERROR response, or "" on
// success (§6.1).
type Dispatcher func(ctx context.Context, inst kcp.Instruction) (reason string, err error)

// NewDispatcher builds the default Dispatcher, translating store.ErrNotFound
// and store.ErrConflictTriggered into the wire-level reasons named in §4.1.
func NewDispatcher(eng Engine) Dispatcher {
	return func(ctx context.Context, inst kcp.Instruction) (string, error) {
		switch inst.Kind {
		case kcp.KindSet:
			_, err := eng.SetJob(ctx, inst.JobID, inst.Execution)
			return reasonFor(err), err
		case kcp.KindUnset:
			err := eng.UnsetJob(ctx, inst.JobID)
			return reasonFor(err), err
		case kcp.KindRuleSet:
			err := eng.SetRule(ctx, inst.Rule)
			return reasonFor(err), err
		case kcp.KindRuleUnset:
			err := eng.UnsetRule(ctx, inst.Rule.ID)
			return reasonFor(err), err
		default:
			return "unknown_instruction", errors.New("controller: unknown instruction kind")
		}
	}
}

func reasonFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, store.ErrConflictTriggered):
		return "conflict_triggered"
	default:
		return "internal_error"
	}
}
