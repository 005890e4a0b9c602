// Package runner implements the Runner Pool (§4.3): the back-pressured
// dispatch stage that turns a Processor-chosen (job, rule) pairing into a
// Shell or AMQP side effect and reports the outcome back to the Engine.
package runner

import (
	"github.com/google/uuid"

	"kairoi/internal/store"
)

// Execution is one unit of dispatch work handed from the Processor to the
// Runner Pool: a job paired with the rule that matched it. ID identifies
// this attempt for tracing and for the "exactly one Execute message in
// flight per triggered job" invariant (§4.1).
type Execution struct {
	ID   uuid.UUID
	Job  store.Job
	Rule store.Rule
}
