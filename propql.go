// Package propql compiles analytics filter definitions (property
// comparisons, boolean filter groups, cohort membership, actions with
// autocapture element matchers) into a ClickHouse-flavoured SQL expression
// tree. The caller embeds the returned expression into a larger SELECT;
// this package never executes queries.
package propql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nlstn/go-propql/ast"
	"github.com/nlstn/go-propql/internal/catalog"
	"github.com/nlstn/go-propql/internal/filter"
	"github.com/nlstn/go-propql/internal/observability"
	"github.com/nlstn/go-propql/timings"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// ObservabilityConfig controls optional tracing and metrics. The zero
// value disables everything; the compiler contract stays free of side
// effects unless providers are installed.
type ObservabilityConfig struct {
	// TracerProvider enables OpenTelemetry tracing of compile phases.
	TracerProvider trace.TracerProvider

	// MeterProvider enables OpenTelemetry metrics (compile durations,
	// ignored-filter counts, catalog read durations).
	MeterProvider metric.MeterProvider

	// ServiceName identifies this service in traces and metrics.
	ServiceName string

	// ServiceVersion is the version reported alongside ServiceName.
	ServiceVersion string

	// EnableCatalogTracing adds spans for individual catalog reads.
	EnableCatalogTracing bool

	// EnableServerTiming enables WriteServerTiming exports.
	EnableServerTiming bool
}

// Compiler compiles filters for one team. Construct with New; safe for
// concurrent use as long as the catalog stores are, except when a Timings
// recorder is attached (attach one per compile pipeline instead).
type Compiler struct {
	team      *catalog.Team
	stores    catalog.Stores
	db        *gorm.DB
	logger    *slog.Logger
	recorder  *timings.Timings
	obs       *observability.Config
	onIgnored func(input any, err error)
	ctx       context.Context
	inner     *filter.Compiler
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithStores installs the catalog lookups (property definitions, cohorts,
// actions, data-warehouse metadata) the compiler consults.
func WithStores(stores Stores) Option {
	return func(c *Compiler) {
		c.stores = stores
	}
}

// WithDB installs GORM-backed catalog stores reading through the given
// session. The session's connection and transaction lifetime stay with
// the caller.
func WithDB(db *gorm.DB) Option {
	return func(c *Compiler) {
		c.db = db
	}
}

// WithActions installs a pre-fetched action lookup, overriding the action
// store. Callers that batch-load their actions avoid any database round
// trip during compiles.
func WithActions(actions map[int]*Action) Option {
	return func(c *Compiler) {
		c.stores.Actions = catalog.ActionMap(actions)
	}
}

// WithLogger sets the structured logger. Malformed filters that collapse
// to true are reported at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// WithTimings attaches a phase-duration recorder. Each facade call
// records its phase under the recorder's current position.
func WithTimings(t *timings.Timings) Option {
	return func(c *Compiler) {
		c.recorder = t
	}
}

// WithObservability enables OpenTelemetry tracing and metrics.
func WithObservability(cfg ObservabilityConfig) Option {
	return func(c *Compiler) {
		c.obs = observability.NewConfig(
			observability.WithTracerProvider(cfg.TracerProvider),
			observability.WithMeterProvider(cfg.MeterProvider),
			observability.WithServiceName(cfg.ServiceName),
			observability.WithServiceVersion(cfg.ServiceVersion),
		)
		c.obs.EnableCatalogTracing = cfg.EnableCatalogTracing
		c.obs.EnableServerTiming = cfg.EnableServerTiming
	}
}

// WithOnIgnored registers a callback invoked with the raw input and the
// decode error whenever a malformed filter soft-falls back to true.
func WithOnIgnored(fn func(input any, err error)) Option {
	return func(c *Compiler) {
		c.onIgnored = fn
	}
}

// New creates a Compiler for the given team.
func New(team *Team, opts ...Option) (*Compiler, error) {
	if team == nil {
		return nil, fmt.Errorf("propql: team context is required")
	}
	c := &Compiler{
		team:   team,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.obs == nil {
		c.obs = observability.NewConfig()
	}
	if err := c.obs.Initialize(); err != nil {
		return nil, err
	}

	if c.db != nil {
		actions := c.stores.Actions
		c.stores = catalog.GormStores(c.db)
		if actions != nil {
			c.stores.Actions = actions
		}
		if err := observability.RegisterGORMCallbacks(c.db, c.obs); err != nil {
			return nil, err
		}
	}

	c.inner = &filter.Compiler{
		Team:      c.team,
		Stores:    c.stores,
		Logger:    c.logger,
		OnIgnored: c.reportIgnored,
	}
	return c, nil
}

// WithContext returns a shallow copy of the compiler whose spans and
// metrics attach to ctx, and whose debug logging carries the trace and
// span ids from ctx. The compiler itself still never honors
// cancellation; callers wanting a timeout wrap the call.
func (c *Compiler) WithContext(ctx context.Context) *Compiler {
	clone := *c
	clone.ctx = ctx
	clone.inner = &filter.Compiler{
		Team:      clone.team,
		Stores:    clone.stores,
		Logger:    observability.LoggerWithTrace(ctx, clone.logger),
		OnIgnored: clone.reportIgnored,
	}
	return &clone
}

func (c *Compiler) context() context.Context {
	if c.ctx != nil {
		return c.ctx
	}
	return context.Background()
}

// PropertyToExpr compiles an arbitrary filter input: a raw map, a list
// (implicit AND), a Property, a PropertyGroup, or a prebuilt expression
// (cloned). Empty input compiles to the constant true.
func (c *Compiler) PropertyToExpr(input any, scope Scope) (ast.Expr, error) {
	if c.recorder != nil {
		stop := c.recorder.Measure("compile_property")
		defer stop()
	}
	ctx, span := c.obs.Tracer().StartCompile(c.context(), c.team.ID, string(scope))
	defer span.End()
	start := time.Now()

	expr, err := c.inner.PropertyToExpr(input, scope)
	if err != nil {
		c.obs.Tracer().RecordError(span, err)
		c.obs.Metrics().RecordError(ctx, observability.OpCompileProperty, errorKind(err))
		return nil, err
	}
	c.obs.Metrics().RecordCompile(ctx, observability.OpCompileProperty, string(scope), time.Since(start))
	return expr, nil
}

// ActionToExpr compiles an action into an OR over its steps.
func (c *Compiler) ActionToExpr(action *Action) (ast.Expr, error) {
	if c.recorder != nil {
		stop := c.recorder.Measure("compile_action")
		defer stop()
	}
	actionID := 0
	if action != nil {
		actionID = action.ID
	}
	ctx, span := c.obs.Tracer().StartActionCompile(c.context(), c.team.ID, actionID)
	defer span.End()
	start := time.Now()

	expr, err := c.inner.ActionToExpr(action)
	if err != nil {
		c.obs.Tracer().RecordError(span, err)
		c.obs.Metrics().RecordError(ctx, observability.OpCompileAction, errorKind(err))
		return nil, err
	}
	c.obs.Metrics().RecordCompile(ctx, observability.OpCompileAction, string(ScopeEvent), time.Since(start))
	return expr, nil
}

// EntityToExpr compiles a query entity: a plain event name or an action
// reference. A missing action compiles to 1 = 2 so the query returns no
// rows instead of failing.
func (c *Compiler) EntityToExpr(entity Entity) (ast.Expr, error) {
	if c.recorder != nil {
		stop := c.recorder.Measure("compile_entity")
		defer stop()
	}
	ctx, span := c.obs.Tracer().StartEntityCompile(c.context(), c.team.ID, string(entity.Kind))
	defer span.End()
	start := time.Now()

	expr, err := c.inner.EntityToExpr(entity)
	if err != nil {
		c.obs.Tracer().RecordError(span, err)
		c.obs.Metrics().RecordError(ctx, observability.OpCompileEntity, errorKind(err))
		return nil, err
	}
	c.obs.Metrics().RecordCompile(ctx, observability.OpCompileEntity, string(ScopeEvent), time.Since(start))
	return expr, nil
}

// TestAccountFiltersExpr compiles the team's stored test-account filters
// as an implicit AND in event scope. A team without any compiles to true.
func (c *Compiler) TestAccountFiltersExpr() (ast.Expr, error) {
	if c.recorder != nil {
		stop := c.recorder.Measure("compile_test_account_filters")
		defer stop()
	}
	ctx, span := c.obs.Tracer().StartSpan(c.context(), "propql.compile_test_account_filters",
		observability.OperationAttr(observability.OpCompileTestAcct),
		observability.TeamIDAttr(c.team.ID),
	)
	defer span.End()
	start := time.Now()

	expr, err := c.inner.TestAccountFiltersExpr(ScopeEvent)
	if err != nil {
		c.obs.Tracer().RecordError(span, err)
		c.obs.Metrics().RecordError(ctx, observability.OpCompileTestAcct, errorKind(err))
		return nil, err
	}
	c.obs.Metrics().RecordCompile(ctx, observability.OpCompileTestAcct, string(ScopeEvent), time.Since(start))
	return expr, nil
}

// WriteServerTiming exports the attached Timings recorder into the
// Server-Timing header carried by ctx (see mitchellh/go-server-timing).
// A no-op unless a recorder is attached and EnableServerTiming is set.
func (c *Compiler) WriteServerTiming(ctx context.Context) {
	if c.recorder == nil || !c.obs.ServerTimingEnabled() {
		return
	}
	observability.WriteTimings(ctx, c.recorder.ToMap())
}

// ParseExpr parses an embedded expression string (the hogql property
// type) into an expression tree, recording a parse span and metrics.
func (c *Compiler) ParseExpr(input string) (ast.Expr, error) {
	if c.recorder != nil {
		stop := c.recorder.Measure("parse_expr")
		defer stop()
	}
	ctx, span := c.obs.Tracer().StartParse(c.context())
	defer span.End()
	start := time.Now()

	expr, err := filter.ParseExpr(input)
	if err != nil {
		c.obs.Tracer().RecordError(span, err)
		c.obs.Metrics().RecordError(ctx, observability.OpParseExpr, errorKind(err))
		return nil, err
	}
	c.obs.Metrics().RecordCompile(ctx, observability.OpParseExpr, "", time.Since(start))
	return expr, nil
}

// ParseExpr parses an embedded expression string without a compiler.
// Instrumented callers use the Compiler method of the same name.
func ParseExpr(input string) (ast.Expr, error) {
	return filter.ParseExpr(input)
}

func (c *Compiler) reportIgnored(input any, err error) {
	c.obs.Metrics().RecordIgnored(c.context(), "")
	if c.onIgnored != nil {
		c.onIgnored(input, err)
	}
}

// errorKind maps an error to its taxonomy bucket for metrics.
func errorKind(err error) string {
	var parseErr *ParseError
	switch {
	case errors.Is(err, ErrNotImplemented):
		return "not_implemented"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.As(err, &parseErr):
		return "parse"
	}
	return "other"
}
