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

// DBTracingConfig configures database spans.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include bind variables in spans; never in production
	SlowQueryThresh time.Duration // default 200ms
	DBSystem        string
}

func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

// DBTracingPlugin installs otelgorm plus slow query annotations.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

type queryStartKey struct{}

// RegisterOtelGorm registers the otelgorm plugin and the slow query callbacks on db.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled")
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
	if err := cb.Create().Before("gorm:create").Register("slow_query:before_create", p.before); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("slow_query:before_query", p.before); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("slow_query:before_update", p.before); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("slow_query:before_delete", p.before); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register("slow_query:before_raw", p.before); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("slow_query:after_create", p.after); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("slow_query:after_query", p.after); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("slow_query:after_update", p.after); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("slow_query:after_delete", p.after); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("slow_query:after_raw", p.after); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

func (p *DBTracingPlugin) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (p *DBTracingPlugin) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		p.logger.Warn("Slow query",
			zap.String("table", db.Statement.Table),
			zap.Duration("elapsed", elapsed),
			zap.String("trace_id", span.SpanContext().TraceID().String()),
		)
	}
}
