package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	gormSpanKey      = "propql:gorm:span"
	gormStartTimeKey = "propql:gorm:start"
)

// RegisterGORMCallbacks registers GORM callbacks that trace catalog reads.
// The compiler only ever reads, so only the query and row paths are
// instrumented. Call this after GORM is initialized and observability is
// configured.
func RegisterGORMCallbacks(db *gorm.DB, cfg *Config) error {
	if cfg == nil || cfg.TracerProvider == nil || !cfg.EnableCatalogTracing {
		return nil
	}

	tracer := cfg.Tracer()

	if err := db.Callback().Query().Before("gorm:query").Register("propql:before_query", beforeQuery(tracer)); err != nil {
		return err
	}
	if err := db.Callback().Query().After("gorm:query").Register("propql:after_query", afterQuery(tracer, cfg)); err != nil {
		return err
	}

	if err := db.Callback().Row().Before("gorm:row").Register("propql:before_row", beforeRow(tracer)); err != nil {
		return err
	}
	if err := db.Callback().Row().After("gorm:row").Register("propql:after_row", afterRow(tracer, cfg)); err != nil {
		return err
	}

	return nil
}

func beforeQuery(tracer *Tracer) func(*gorm.DB) {
	return func(db *gorm.DB) {
		startSpan(db, tracer, "query")
	}
}

func afterQuery(tracer *Tracer, cfg *Config) func(*gorm.DB) {
	return func(db *gorm.DB) {
		endSpan(db, tracer, cfg)
	}
}

func beforeRow(tracer *Tracer) func(*gorm.DB) {
	return func(db *gorm.DB) {
		startSpan(db, tracer, "row")
	}
}

func afterRow(tracer *Tracer, cfg *Config) func(*gorm.DB) {
	return func(db *gorm.DB) {
		endSpan(db, tracer, cfg)
	}
}

func startSpan(db *gorm.DB, tracer *Tracer, kind string) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := tracer.StartCatalogLookup(ctx, kind)

	db.Statement.Context = ctx
	db.InstanceSet(gormSpanKey, span)
	db.InstanceSet(gormStartTimeKey, time.Now())
}

func endSpan(db *gorm.DB, tracer *Tracer, cfg *Config) {
	spanVal, ok := db.InstanceGet(gormSpanKey)
	if !ok {
		return
	}

	span, ok := spanVal.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if db.Statement != nil {
		tableName := db.Statement.Table
		if tableName != "" {
			span.SetAttributes(attribute.String("db.sql.table", tableName))
		}
		span.SetAttributes(attribute.Int64("db.rows_affected", db.RowsAffected))
	}

	if db.Error != nil {
		tracer.RecordError(span, db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	}

	if startTimeVal, ok := db.InstanceGet(gormStartTimeKey); ok {
		if startTime, ok := startTimeVal.(time.Time); ok {
			table := ""
			if db.Statement != nil {
				table = db.Statement.Table
			}
			cfg.Metrics().RecordCatalogRead(db.Statement.Context, table, time.Since(startTime))
		}
	}
}
