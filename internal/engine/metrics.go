package engine

import "time"

// Metrics receives point-in-time observations from the tick loop. The
// concrete implementation (internal/observability) wires these into
// OpenTelemetry instruments; tests and callers that don't care use Noop.
type Metrics interface {
	TickDuration(d time.Duration)
	JobsTriggered(n int)
	JobExecuted()
	JobFailed()
	RequestQueueDepth(n int)
}

// Noop discards every observation.
type Noop struct{}

func (Noop) TickDuration(time.Duration) {}
func (Noop) JobsTriggered(int)          {}
func (Noop) JobExecuted()               {}
func (Noop) JobFailed()                 {}
func (Noop) RequestQueueDepth(int)      {}
