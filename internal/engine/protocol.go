package engine

import (
	"time"

	"github.com/google/uuid"

	"kairoi/internal/store"
)

// Outcome is the result a Processor or Runner Pool reports back to the
// Engine about one triggered job.
type Outcome string

const (
	OutcomeExecuted Outcome = "executed"
	OutcomeFailed   Outcome = "failed"
)

// ExecutionReport is the internal feedback message described in §4.1
// ("ReportExecution") and §4.2 ("report Failed back to the Engine with
// reason NoMatchingRule"). Reason is used only for logging; it never
// changes acceptance semantics.
type ExecutionReport struct {
	ExecutionID uuid.UUID
	JobID       string
	Outcome     Outcome
	Reason      string
}

// Pairing is the message sent from the Engine to the Processor once a job
// has been transitioned to Triggered (§4.1 step 3).
type Pairing struct {
	Job store.Job
}

type opKind int

const (
	opSetJob opKind = iota
	opUnsetJob
	opSetRule
	opUnsetRule
)

// operation is the envelope carried on the Engine's request channel: one
// client-visible write plus a reply channel, the standard Go "mailbox with
// reply channel" shape for a single-writer owner.
type operation struct {
	kind      opKind
	jobID     string
	execution time.Time
	rule      store.Rule
	ruleID    string
	reply     chan opResult
}

type opResult struct {
	job store.Job
	err error
}

type snapshotRequest struct {
	reply chan []store.Rule
}
