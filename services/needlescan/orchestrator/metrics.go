package orchestrator

import (
	"go.opentelemetry.io/otel/metric"
)

type instruments struct {
	runs          metric.Int64Counter
	matches       metric.Int64Counter
	iterations    metric.Int64Counter
	activeWorkers metric.Int64UpDownCounter
	stopLatency   metric.Float64Histogram
}

func newInstruments(meter metric.Meter) instruments {
	runs, _ := meter.Int64Counter("needlescan_runs_total")
	matches, _ := meter.Int64Counter("needlescan_matches_total")
	iterations, _ := meter.Int64Counter("needlescan_worker_iterations_total")
	active, _ := meter.Int64UpDownCounter("needlescan_workers_active")
	stopLatency, _ := meter.Float64Histogram("needlescan_stop_duration_ms")
	return instruments{
		runs:          runs,
		matches:       matches,
		iterations:    iterations,
		activeWorkers: active,
		stopLatency:   stopLatency,
	}
}
