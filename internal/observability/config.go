package observability

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Config holds the observability configuration for the compiler.
type Config struct {
	// TracerProvider is the OpenTelemetry tracer provider.
	// If nil, tracing is disabled.
	TracerProvider trace.TracerProvider

	// MeterProvider is the OpenTelemetry meter provider.
	// If nil, metrics collection is disabled.
	MeterProvider metric.MeterProvider

	// ServiceName is used to identify this service in traces and metrics.
	ServiceName string

	// ServiceVersion is the version of this service.
	ServiceVersion string

	// EnableCatalogTracing enables spans for individual catalog reads
	// (property definitions, cohorts, actions, warehouse metadata). This
	// adds overhead but shows where a slow compile spends its time.
	EnableCatalogTracing bool

	// EnableServerTiming enables exporting phase timings as a
	// Server-Timing header when the caller carries one in its context.
	EnableServerTiming bool

	// tracer is the configured tracer instance.
	tracer *Tracer

	// metrics is the configured metrics instance.
	metrics *Metrics
}

// Option is a functional option for configuring observability.
type Option func(*Config)

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) {
		c.TracerProvider = tp
	}
}

// WithMeterProvider sets the meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Config) {
		c.MeterProvider = mp
	}
}

// WithServiceName sets the service name for identification.
func WithServiceName(name string) Option {
	return func(c *Config) {
		c.ServiceName = name
	}
}

// WithServiceVersion sets the service version for identification.
func WithServiceVersion(version string) Option {
	return func(c *Config) {
		c.ServiceVersion = version
	}
}

// WithCatalogTracing enables spans for individual catalog reads.
func WithCatalogTracing() Option {
	return func(c *Config) {
		c.EnableCatalogTracing = true
	}
}

// WithServerTiming enables Server-Timing export of phase timings.
func WithServerTiming() Option {
	return func(c *Config) {
		c.EnableServerTiming = true
	}
}

// NewConfig creates a new observability configuration with the given options.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		ServiceName: "propql",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Initialize sets up the tracer and metrics based on configuration.
// This should be called after all options are set.
func (c *Config) Initialize() error {
	if c.TracerProvider != nil {
		c.tracer = NewTracer(c.TracerProvider, c.ServiceName)
	} else {
		c.tracer = NewNoopTracer()
	}

	if c.MeterProvider != nil {
		c.metrics = NewMetrics(c.MeterProvider)
	} else {
		c.metrics = NewNoopMetrics()
	}
	return nil
}

// Tracer returns the configured tracer, or a no-op tracer if not configured.
func (c *Config) Tracer() *Tracer {
	if c == nil || c.tracer == nil {
		return NewNoopTracer()
	}
	return c.tracer
}

// Metrics returns the configured metrics, or a no-op metrics if not configured.
func (c *Config) Metrics() *Metrics {
	if c == nil || c.metrics == nil {
		return NewNoopMetrics()
	}
	return c.metrics
}

// IsEnabled returns true if any observability features are configured.
func (c *Config) IsEnabled() bool {
	return c != nil && (c.TracerProvider != nil || c.MeterProvider != nil)
}

// CatalogTracingEnabled returns true if catalog read tracing is enabled.
func (c *Config) CatalogTracingEnabled() bool {
	return c != nil && c.EnableCatalogTracing
}

// ServerTimingEnabled returns true if Server-Timing export is enabled.
func (c *Config) ServerTimingEnabled() bool {
	return c != nil && c.EnableServerTiming
}
