// Package observability provides OpenTelemetry-based instrumentation for
// the filter compiler.
//
// It supports tracing of compile phases, metrics collection, and enhanced
// structured logging. All features are opt-in: when not configured, no-op
// implementations are used with zero overhead, and the compiler contract
// stays free of side effects.
package observability

import "go.opentelemetry.io/otel/attribute"

// Instrumentation identity constants
const (
	// TracerName is the instrumentation name for tracing.
	TracerName = "github.com/nlstn/go-propql"
	// MeterName is the instrumentation name for metrics.
	MeterName = "github.com/nlstn/go-propql"
)

// Semantic attribute keys for compile spans and metrics.
const (
	// Compile attributes
	AttrScope        = "propql.scope"
	AttrFilterKind   = "propql.filter_kind"
	AttrOperation    = "propql.operation"
	AttrPropertyType = "propql.property_type"
	AttrTeamID       = "propql.team_id"
	AttrActionID     = "propql.action_id"
	AttrEntityKind   = "propql.entity_kind"

	// Catalog lookup attributes
	AttrCatalogKind = "propql.catalog.kind"
	AttrCatalogKey  = "propql.catalog.key"

	// Error attributes
	AttrErrorKind = "propql.error.kind"
)

// Operation types for the propql.operation attribute.
const (
	OpCompileProperty = "compile_property"
	OpCompileAction   = "compile_action"
	OpCompileEntity   = "compile_entity"
	OpCompileTestAcct = "compile_test_account_filters"
	OpParseExpr       = "parse_expr"
)

// Log field keys for structured logging with trace context.
const (
	LogFieldOperation = "operation"
	LogFieldScope     = "scope"
	LogFieldTraceID   = "trace_id"
	LogFieldSpanID    = "span_id"
	LogFieldDuration  = "duration_ms"
	LogFieldError     = "error"
)

// ScopeAttr creates an attribute for the compile scope.
func ScopeAttr(scope string) attribute.KeyValue {
	return attribute.String(AttrScope, scope)
}

// OperationAttr creates an attribute for the operation type.
func OperationAttr(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// TeamIDAttr creates an attribute for the team the compile runs under.
func TeamIDAttr(id int) attribute.KeyValue {
	return attribute.Int(AttrTeamID, id)
}

// ActionIDAttr creates an attribute for the action being compiled.
func ActionIDAttr(id int) attribute.KeyValue {
	return attribute.Int(AttrActionID, id)
}

// EntityKindAttr creates an attribute for the entity kind being compiled.
func EntityKindAttr(kind string) attribute.KeyValue {
	return attribute.String(AttrEntityKind, kind)
}

// CatalogKindAttr creates an attribute for the catalog record kind.
func CatalogKindAttr(kind string) attribute.KeyValue {
	return attribute.String(AttrCatalogKind, kind)
}

// ErrorKindAttr creates an attribute for the error taxonomy kind.
func ErrorKindAttr(kind string) attribute.KeyValue {
	return attribute.String(AttrErrorKind, kind)
}
