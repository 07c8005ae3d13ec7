package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls the spans recorded for SQL statements
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // keep query variables in db.statement
	SlowQueryThresh time.Duration
	DBSystem        string
}

// DefaultDBTracingConfig returns tracing switched off with a 200ms slow
// query threshold
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

// DBTracingPlugin installs otelgorm plus callbacks that tag slow and
// failed statements on the otelgorm span
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a DBTracingPlugin
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = DefaultDBTracingConfig().SlowQueryThresh
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

type gormRegister func(name string, fn func(*gorm.DB)) error

// Register installs the plugin on db. It is a no-op when tracing is off.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	cb := db.Callback()
	// after hooks run before otelgorm ends its span
	hooks := []struct {
		name     string
		register gormRegister
		fn       func(*gorm.DB)
	}{
		{"taskprod:start:create", cb.Create().Before("gorm:create").Register, markQueryStart},
		{"taskprod:start:query", cb.Query().Before("gorm:query").Register, markQueryStart},
		{"taskprod:start:update", cb.Update().Before("gorm:update").Register, markQueryStart},
		{"taskprod:start:delete", cb.Delete().Before("gorm:delete").Register, markQueryStart},
		{"taskprod:start:row", cb.Row().Before("gorm:row").Register, markQueryStart},
		{"taskprod:start:raw", cb.Raw().Before("gorm:raw").Register, markQueryStart},
		{"taskprod:end:create", cb.Create().After("gorm:create").Before("otel:after:create").Register, p.annotate},
		{"taskprod:end:query", cb.Query().After("gorm:query").Before("otel:after:query").Register, p.annotate},
		{"taskprod:end:update", cb.Update().After("gorm:update").Before("otel:after:update").Register, p.annotate},
		{"taskprod:end:delete", cb.Delete().After("gorm:delete").Before("otel:after:delete").Register, p.annotate},
		{"taskprod:end:row", cb.Row().After("gorm:row").Before("otel:after:row").Register, p.annotate},
		{"taskprod:end:raw", cb.Raw().After("gorm:raw").Before("otel:after:raw").Register, p.annotate},
	}
	for _, h := range hooks {
		if err := h.register(h.name, h.fn); err != nil {
			return err
		}
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

type queryStartKey struct{}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

// annotate adds row counts, errors and the slow query flag to the span
func (p *DBTracingPlugin) annotate(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	started, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(started); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}
