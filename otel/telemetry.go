package otel

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	traceNoop "go.opentelemetry.io/otel/trace/noop"
)

const scopeName = "github.com/jyterencekim/decaton"

// Telemetry holds all OpenTelemetry instruments for the processing engine
// When no providers are configured, all instruments are noops with zero overhead
type Telemetry struct {
	Tracer     trace.Tracer
	Propagator propagation.TextMapPropagator

	// Consumer metrics
	TasksConsumed metric.Int64Counter
	PollDuration  metric.Float64Histogram

	// Extraction metrics
	ExtractionFailures metric.Int64Counter

	// Processing metrics
	ProcessDuration  metric.Float64Histogram
	RetriesScheduled metric.Int64Counter
	TasksDiscarded   metric.Int64Counter
	TasksInFlight    metric.Int64UpDownCounter
	TasksDeferred    metric.Int64UpDownCounter

	// Commit metrics
	OffsetsCommitted metric.Int64Counter
}

// NewTelemetry creates a Telemetry instance from the given providers.
// all providers are optional and defaulted to noops if nil
func NewTelemetry(tp trace.TracerProvider, mp metric.MeterProvider, prop propagation.TextMapPropagator) (
	*Telemetry, error,
) {
	if tp == nil {
		tp = traceNoop.NewTracerProvider()
	}
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	if prop == nil {
		prop = propagation.TraceContext{}
	}

	tracer := tp.Tracer(scopeName)
	meter := mp.Meter(scopeName)

	tasksConsumed, err := meter.Int64Counter(
		"messaging.consumer.tasks",
		metric.WithDescription("Records pulled from the transport"),
	)
	if err != nil {
		return nil, err
	}

	pollDuration, err := meter.Float64Histogram(
		"decaton.poll.duration",
		metric.WithDescription("Time per Poll() call"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	extractionFailures, err := meter.Int64Counter(
		"decaton.extraction.failures",
		metric.WithDescription("Records whose task extraction failed"),
	)
	if err != nil {
		return nil, err
	}

	processDuration, err := meter.Float64Histogram(
		"decaton.process.duration",
		metric.WithDescription("Duration of a single processing attempt"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	retriesScheduled, err := meter.Int64Counter(
		"decaton.retries.scheduled",
		metric.WithDescription("Delayed redeliveries scheduled"),
	)
	if err != nil {
		return nil, err
	}

	tasksDiscarded, err := meter.Int64Counter(
		"decaton.tasks.discarded",
		metric.WithDescription("Tasks given up on after exhausting retries"),
	)
	if err != nil {
		return nil, err
	}

	tasksInFlight, err := meter.Int64UpDownCounter(
		"decaton.tasks.in_flight",
		metric.WithDescription("Dispatched tasks not yet resolved"),
	)
	if err != nil {
		return nil, err
	}

	tasksDeferred, err := meter.Int64UpDownCounter(
		"decaton.tasks.deferred",
		metric.WithDescription("Tasks whose completion is deferred past the Process call"),
	)
	if err != nil {
		return nil, err
	}

	offsetsCommitted, err := meter.Int64Counter(
		"decaton.offsets.committed",
		metric.WithDescription("Partition offsets acknowledged to the transport"),
	)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Tracer:             tracer,
		Propagator:         prop,
		TasksConsumed:      tasksConsumed,
		PollDuration:       pollDuration,
		ExtractionFailures: extractionFailures,
		ProcessDuration:    processDuration,
		RetriesScheduled:   retriesScheduled,
		TasksDiscarded:     tasksDiscarded,
		TasksInFlight:      tasksInFlight,
		TasksDeferred:      tasksDeferred,
		OffsetsCommitted:   offsetsCommitted,
	}, nil
}

// Noop returns a Telemetry instance with all noop instruments
func Noop() *Telemetry {
	t, _ := NewTelemetry(nil, nil, nil)
	return t
}
