package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// EngineMetrics adapts OpenTelemetry instruments to engine.Metrics (§2
// Domain Stack: "wire the teacher's Prometheus exporter into the tick
// loop's observations instead of leaving it unused").
type EngineMetrics struct {
	tickDuration      metric.Float64Histogram
	jobsTriggered     metric.Int64Counter
	jobsExecuted      metric.Int64Counter
	jobsFailed        metric.Int64Counter
	requestQueueDepth metric.Int64Gauge
}

// NewEngineMetrics creates the Engine-facing instrument set against the
// global meter provider. Call InitMetrics first so a Prometheus-backed
// provider is registered; otherwise otel's no-op provider is used.
func NewEngineMetrics() (*EngineMetrics, error) {
	meter := otel.Meter("kairoi/engine")

	tickDuration, err := meter.Float64Histogram(
		"kairoi_engine_tick_duration_seconds",
		metric.WithDescription("Wall-clock duration of one tick-loop iteration."),
	)
	if err != nil {
		return nil, err
	}

	jobsTriggered, err := meter.Int64Counter(
		"kairoi_jobs_triggered_total",
		metric.WithDescription("Jobs transitioned from Planned to Triggered."),
	)
	if err != nil {
		return nil, err
	}

	jobsExecuted, err := meter.Int64Counter(
		"kairoi_jobs_executed_total",
		metric.WithDescription("Jobs that reported Executed."),
	)
	if err != nil {
		return nil, err
	}

	jobsFailed, err := meter.Int64Counter(
		"kairoi_jobs_failed_total",
		metric.WithDescription("Jobs that reported Failed (pairing or execution)."),
	)
	if err != nil {
		return nil, err
	}

	requestQueueDepth, err := meter.Int64Gauge(
		"kairoi_request_queue_depth",
		metric.WithDescription("Depth of the client-request queue observed at tick start."),
	)
	if err != nil {
		return nil, err
	}

	return &EngineMetrics{
		tickDuration:      tickDuration,
		jobsTriggered:     jobsTriggered,
		jobsExecuted:      jobsExecuted,
		jobsFailed:        jobsFailed,
		requestQueueDepth: requestQueueDepth,
	}, nil
}

func (m *EngineMetrics) TickDuration(d time.Duration) {
	m.tickDuration.Record(context.Background(), d.Seconds())
}

func (m *EngineMetrics) JobsTriggered(n int) {
	m.jobsTriggered.Add(context.Background(), int64(n))
}

func (m *EngineMetrics) JobExecuted() {
	m.jobsExecuted.Add(context.Background(), 1)
}

func (m *EngineMetrics) JobFailed() {
	m.jobsFailed.Add(context.Background(), 1)
}

func (m *EngineMetrics) RequestQueueDepth(n int) {
	m.requestQueueDepth.Record(context.Background(), int64(n))
}
