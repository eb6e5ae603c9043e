package observability

import (
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// NewNoopTracer creates a tracer that does nothing.
func NewNoopTracer() *Tracer {
	return &Tracer{
		tracer:      tracenoop.NewTracerProvider().Tracer(""),
		serviceName: "",
	}
}

// NewNoopMetrics creates metrics that do nothing.
func NewNoopMetrics() *Metrics {
	meter := noop.NewMeterProvider().Meter("")
	m := &Metrics{}

	// Note: noop meter never returns errors, but we must check them to satisfy the linter.
	m.compileDuration, _ = meter.Float64Histogram("propql.compile.duration") //nolint:errcheck
	m.compileCount, _ = meter.Int64Counter("propql.compile.count")           //nolint:errcheck
	m.ignoredCount, _ = meter.Int64Counter("propql.compile.ignored")         //nolint:errcheck
	m.catalogDuration, _ = meter.Float64Histogram("propql.catalog.duration") //nolint:errcheck
	m.errorCount, _ = meter.Int64Counter("propql.error.count")               //nolint:errcheck

	return m
}
