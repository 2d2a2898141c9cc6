package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "renum"

// Metrics holds all Renum metric instruments.
type Metrics struct {
	ExecutionsStarted   metric.Int64Counter
	ExecutionsCompleted metric.Int64Counter
	ExecutionsFailed    metric.Int64Counter
	ExecutionDuration   metric.Float64Histogram
	SearchRequests      metric.Int64Counter
	SearchCacheHits     metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.ExecutionsStarted, err = meter.Int64Counter("renum.executions.started",
		metric.WithDescription("Number of executions started"))
	if err != nil {
		return nil, err
	}

	m.ExecutionsCompleted, err = meter.Int64Counter("renum.executions.completed",
		metric.WithDescription("Number of executions that completed successfully"))
	if err != nil {
		return nil, err
	}

	m.ExecutionsFailed, err = meter.Int64Counter("renum.executions.failed",
		metric.WithDescription("Number of executions that failed or were cancelled"))
	if err != nil {
		return nil, err
	}

	m.ExecutionDuration, err = meter.Float64Histogram("renum.execution.duration_seconds",
		metric.WithDescription("Execution wall time in seconds"))
	if err != nil {
		return nil, err
	}

	m.SearchRequests, err = meter.Int64Counter("renum.search.requests",
		metric.WithDescription("Number of knowledge base searches"))
	if err != nil {
		return nil, err
	}

	m.SearchCacheHits, err = meter.Int64Counter("renum.search.cache_hits",
		metric.WithDescription("Number of knowledge base searches served from cache"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
