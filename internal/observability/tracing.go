package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry tracer with compile-phase span creation
// methods.
type Tracer struct {
	tracer      trace.Tracer
	serviceName string
}

// NewTracer creates a new Tracer using the given TracerProvider.
func NewTracer(tp trace.TracerProvider, serviceName string) *Tracer {
	return &Tracer{
		tracer:      tp.Tracer(TracerName),
		serviceName: serviceName,
	}
}

// StartSpan starts a new span with the given name and attributes.
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartCompile starts a span for a property-filter compile.
func (t *Tracer) StartCompile(ctx context.Context, teamID int, scope string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "propql.compile", trace.WithAttributes(
		OperationAttr(OpCompileProperty),
		TeamIDAttr(teamID),
		ScopeAttr(scope),
	))
}

// StartActionCompile starts a span for an action compile.
func (t *Tracer) StartActionCompile(ctx context.Context, teamID int, actionID int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "propql.compile_action", trace.WithAttributes(
		OperationAttr(OpCompileAction),
		TeamIDAttr(teamID),
		ActionIDAttr(actionID),
	))
}

// StartEntityCompile starts a span for an entity compile.
func (t *Tracer) StartEntityCompile(ctx context.Context, teamID int, kind string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "propql.compile_entity", trace.WithAttributes(
		OperationAttr(OpCompileEntity),
		TeamIDAttr(teamID),
		EntityKindAttr(kind),
	))
}

// StartParse starts a span for parsing an embedded expression string.
func (t *Tracer) StartParse(ctx context.Context) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "propql.parse", trace.WithAttributes(
		OperationAttr(OpParseExpr),
	))
}

// StartCatalogLookup starts a span for a catalog read.
func (t *Tracer) StartCatalogLookup(ctx context.Context, kind string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "propql.catalog", trace.WithAttributes(
		CatalogKindAttr(kind),
	))
}

// RecordError records an error on the span.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// LoggerWithTrace returns a logger enriched with trace context.
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return logger
	}
	return logger.With(
		slog.String(LogFieldTraceID, span.SpanContext().TraceID().String()),
		slog.String(LogFieldSpanID, span.SpanContext().SpanID().String()),
	)
}
