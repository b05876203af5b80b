package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "roundtable"

// Metrics holds all Roundtable metric instruments.
type Metrics struct {
	TurnsStarted      metric.Int64Counter
	TurnsPaused       metric.Int64Counter
	TurnsWaiting      metric.Int64Counter
	PersonasTriggered metric.Int64Counter
	SelectorLatency   metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TurnsStarted, err = meter.Int64Counter("roundtable.turns.started",
		metric.WithDescription("Number of conductor turns started"))
	if err != nil {
		return nil, err
	}

	m.TurnsPaused, err = meter.Int64Counter("roundtable.turns.paused",
		metric.WithDescription("Number of turns stopped by the circuit breaker"))
	if err != nil {
		return nil, err
	}

	m.TurnsWaiting, err = meter.Int64Counter("roundtable.turns.waiting",
		metric.WithDescription("Number of turns resolved to waiting for user input"))
	if err != nil {
		return nil, err
	}

	m.PersonasTriggered, err = meter.Int64Counter("roundtable.personas.triggered",
		metric.WithDescription("Number of persona speaking turns dispatched"))
	if err != nil {
		return nil, err
	}

	m.SelectorLatency, err = meter.Float64Histogram("roundtable.selector.latency_seconds",
		metric.WithDescription("Selector call latency in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
