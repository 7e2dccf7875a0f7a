package telemetry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormConfig configures database instrumentation.
type GormConfig struct {
	Tracing       bool
	DBName        string
	LogFullSQL    bool
	SlowThreshold time.Duration
}

// GormPlugin records query spans through otelgorm and a query duration
// histogram labelled with operation and graph table.
type GormPlugin struct {
	cfg      GormConfig
	duration *Histogram
	errors   *Counter
	logger   *zap.Logger
}

var _ gorm.Plugin = (*GormPlugin)(nil)

type gormStartKey struct{}

// NewGormPlugin creates the plugin; meter may be nil to skip metrics
func NewGormPlugin(cfg GormConfig, meter metric.Meter, logger *zap.Logger) (*GormPlugin, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &GormPlugin{cfg: cfg, logger: logger}
	if meter == nil {
		return p, nil
	}

	var err error
	p.duration, err = NewHistogram(meter, HistogramOpts{
		Name:        "feedsync.db.query.duration",
		Description: "Graph store query duration",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	p.errors, err = NewCounter(meter, "feedsync.db.query.errors", "Failed graph store queries", "{queries}")
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Name implements gorm.Plugin
func (p *GormPlugin) Name() string {
	return "feedsync:telemetry"
}

// Initialize implements gorm.Plugin
func (p *GormPlugin) Initialize(db *gorm.DB) error {
	if p.cfg.Tracing {
		opts := []otelgorm.Option{}
		if p.cfg.DBName != "" {
			opts = append(opts, otelgorm.WithDBName(p.cfg.DBName))
		}
		if !p.cfg.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}

	cb := db.Callback()
	hooks := []struct {
		op            string
		before, after callbackRegistrar
	}{
		{"create", cb.Create().Before("gorm:create"), cb.Create().After("gorm:create")},
		{"query", cb.Query().Before("gorm:query"), cb.Query().After("gorm:query")},
		{"update", cb.Update().Before("gorm:update"), cb.Update().After("gorm:update")},
		{"delete", cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete")},
		{"row", cb.Row().Before("gorm:row"), cb.Row().After("gorm:row")},
		{"raw", cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw")},
	}
	for _, h := range hooks {
		if err := h.before.Register("feedsync:before_"+h.op, p.before); err != nil {
			return err
		}
		if err := h.after.Register("feedsync:after_"+h.op, p.after); err != nil {
			return err
		}
	}
	return nil
}

type callbackRegistrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

func (p *GormPlugin) before(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	db.Statement.Context = context.WithValue(ctx, gormStartKey{}, time.Now())
}

func (p *GormPlugin) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	start, ok := ctx.Value(gormStartKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	attrs := []attribute.KeyValue{
		AttrDBOperation.String(operationOf(db.Statement.SQL.String())),
		AttrDBTable.String(db.Statement.Table),
	}

	failed := db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound)
	if p.duration != nil {
		p.duration.RecordDuration(ctx, elapsed, attrs...)
		if failed {
			p.errors.Inc(ctx, attrs...)
		}
	}

	span := trace.SpanFromContext(ctx)
	if failed && span.IsRecording() {
		span.SetStatus(codes.Error, db.Error.Error())
	}
	if p.cfg.SlowThreshold > 0 && elapsed > p.cfg.SlowThreshold {
		if span.IsRecording() {
			span.AddEvent("slow_query", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", p.cfg.SlowThreshold.Milliseconds()),
			))
		}
		p.logger.Warn("Slow graph store query",
			zap.String("table", db.Statement.Table),
			zap.Duration("elapsed", elapsed),
		)
	}
}

// operationOf returns the leading SQL keyword
func operationOf(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	return "OTHER"
}
