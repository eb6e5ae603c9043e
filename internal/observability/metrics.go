package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the compiler's metric instruments.
type Metrics struct {
	compileDuration metric.Float64Histogram
	compileCount    metric.Int64Counter
	ignoredCount    metric.Int64Counter
	catalogDuration metric.Float64Histogram
	errorCount      metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with the given MeterProvider.
func NewMetrics(mp metric.MeterProvider) *Metrics {
	meter := mp.Meter(MeterName)
	m := &Metrics{}

	// Note: errors from meter instrument creation are unlikely in practice
	// and would only occur with invalid parameters. We use explicit checks
	// to satisfy the linter while continuing with partial metrics on error.
	var err error

	m.compileDuration, err = meter.Float64Histogram(
		"propql.compile.duration",
		metric.WithDescription("Duration of filter compiles in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		m.compileDuration, _ = meter.Float64Histogram("propql.compile.duration")
	}

	m.compileCount, err = meter.Int64Counter(
		"propql.compile.count",
		metric.WithDescription("Total number of filter compiles"),
		metric.WithUnit("{compile}"),
	)
	if err != nil {
		m.compileCount, _ = meter.Int64Counter("propql.compile.count")
	}

	m.ignoredCount, err = meter.Int64Counter(
		"propql.compile.ignored",
		metric.WithDescription("Malformed filters collapsed to the constant true"),
		metric.WithUnit("{filter}"),
	)
	if err != nil {
		m.ignoredCount, _ = meter.Int64Counter("propql.compile.ignored")
	}

	m.catalogDuration, err = meter.Float64Histogram(
		"propql.catalog.duration",
		metric.WithDescription("Duration of catalog reads in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		m.catalogDuration, _ = meter.Float64Histogram("propql.catalog.duration")
	}

	m.errorCount, err = meter.Int64Counter(
		"propql.error.count",
		metric.WithDescription("Total number of compile errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.errorCount, _ = meter.Int64Counter("propql.error.count")
	}

	return m
}

// RecordCompile records metrics for a completed compile.
func (m *Metrics) RecordCompile(ctx context.Context, operation, scope string, duration time.Duration) {
	attrs := metric.WithAttributes(
		OperationAttr(operation),
		ScopeAttr(scope),
	)
	m.compileDuration.Record(ctx, float64(duration.Microseconds())/1000.0, attrs)
	m.compileCount.Add(ctx, 1, attrs)
}

// RecordIgnored records a malformed filter that soft-fell back to true.
func (m *Metrics) RecordIgnored(ctx context.Context, scope string) {
	m.ignoredCount.Add(ctx, 1, metric.WithAttributes(ScopeAttr(scope)))
}

// RecordCatalogRead records metrics for a catalog read.
func (m *Metrics) RecordCatalogRead(ctx context.Context, kind string, duration time.Duration) {
	attrs := metric.WithAttributes(CatalogKindAttr(kind))
	m.catalogDuration.Record(ctx, float64(duration.Microseconds())/1000.0, attrs)
}

// RecordError records a compile error by taxonomy kind.
func (m *Metrics) RecordError(ctx context.Context, operation, errorKind string) {
	attrs := metric.WithAttributes(
		OperationAttr(operation),
		ErrorKindAttr(errorKind),
	)
	m.errorCount.Add(ctx, 1, attrs)
}
