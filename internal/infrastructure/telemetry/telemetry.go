// Package telemetry wires OpenTelemetry traces, metrics and logs for the
// feed service and offers span and instrument helpers to the sync loop.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceVersion is reported as service.version on every signal
const ServiceVersion = "1.0.0"

const shutdownTimeout = 10 * time.Second

// Config holds telemetry configuration.
type Config struct {
	Enabled           bool // traces
	MetricsEnabled    bool
	LogsEnabled       bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	ExportInterval    time.Duration
}

// Providers owns the signal providers created by Setup.
// Disabled signals fall back to the global no-op providers.
type Providers struct {
	traces  *TracerProvider
	metrics *MeterProvider
	logs    *LoggerProvider
	logger  *zap.Logger
}

// Setup creates and registers the enabled providers globally
func Setup(ctx context.Context, cfg Config, logger *zap.Logger) (*Providers, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Providers{logger: logger}

	var err error
	if p.traces, err = NewTracerProvider(ctx, cfg, logger); err != nil {
		return nil, err
	}
	if p.metrics, err = NewMeterProvider(ctx, cfg, logger); err != nil {
		_ = p.traces.Shutdown(ctx)
		return nil, err
	}
	if p.logs, err = NewLoggerProvider(ctx, cfg, logger); err != nil {
		_ = p.traces.Shutdown(ctx)
		_ = p.metrics.Shutdown(ctx)
		return nil, err
	}
	return p, nil
}

// Tracer returns a named tracer
func (p *Providers) Tracer(name string) trace.Tracer {
	return p.traces.Tracer(name)
}

// Meter returns a named meter
func (p *Providers) Meter(name string) metric.Meter {
	return p.metrics.Meter(name)
}

// Bridge returns base teed into the OpenTelemetry log pipeline.
// When logs are disabled base is returned unchanged.
func (p *Providers) Bridge(base *zap.Logger, name string, level zapcore.Level) *zap.Logger {
	if !p.logs.IsEnabled() {
		return base
	}
	core := NewZapCore(p.logs, name, level)
	return zap.New(zapcore.NewTee(base.Core(), core), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

// Shutdown flushes and stops every provider
func (p *Providers) Shutdown(ctx context.Context) error {
	return errors.Join(
		p.logs.Shutdown(ctx),
		p.metrics.Shutdown(ctx),
		p.traces.Shutdown(ctx),
	)
}

func newResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// shutdownWithTimeout bounds a provider shutdown
func shutdownWithTimeout(ctx context.Context, logger *zap.Logger, signal string, fn func(context.Context) error) error {
	logger.Info("Shutting down OpenTelemetry provider", zap.String("signal", signal))

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := fn(shutdownCtx); err != nil {
		logger.Error("Error shutting down provider", zap.String("signal", signal), zap.Error(err))
		return fmt.Errorf("failed to shutdown %s provider: %w", signal, err)
	}
	return nil
}

// globalTracer is used when tracing is disabled
func globalTracer(name string) trace.Tracer {
	return otel.GetTracerProvider().Tracer(name)
}
