package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetup_Disabled(t *testing.T) {
	ctx := context.Background()
	p, err := Setup(ctx, Config{ServiceName: "feedsync"}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, p.traces.IsEnabled())
	assert.False(t, p.metrics.IsEnabled())
	assert.False(t, p.logs.IsEnabled())
	assert.NotNil(t, p.Tracer("test"))
	assert.NotNil(t, p.Meter("test"))

	base := zap.NewNop()
	assert.Same(t, base, p.Bridge(base, "feedsync", zapcore.InfoLevel))

	require.NoError(t, p.Shutdown(ctx))
}

func TestSampler(t *testing.T) {
	assert.Contains(t, Sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, Sampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, Sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
	assert.Contains(t, Sampler(7).Description(), "AlwaysOnSampler")
}

func TestNewZapCore_Disabled(t *testing.T) {
	core := NewZapCore(&LoggerProvider{}, "feedsync", zapcore.InfoLevel)
	assert.False(t, core.Enabled(zapcore.ErrorLevel))

	var nilProvider *LoggerProvider
	core = NewZapCore(nilProvider, "feedsync", zapcore.InfoLevel)
	assert.False(t, core.Enabled(zapcore.ErrorLevel))
}

func TestLevelFilterCore(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}
	logger := zap.New(core).With(zap.String("event", "full_resync"))

	logger.Info("dropped")
	logger.Warn("kept")
	logger.Error("kept too")

	require.Equal(t, 2, logs.Len())
	entries := logs.All()
	assert.Equal(t, "kept", entries[0].Message)
	assert.Equal(t, "full_resync", entries[0].ContextMap()["event"])
	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.WarnLevel))
}

func TestInstrumentWrappers(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	meter := provider.Meter("test")
	ctx := context.Background()

	counter, err := NewCounter(meter, "test.counter", "a counter", "{n}")
	require.NoError(t, err)
	counter.Inc(ctx)
	counter.Add(ctx, 4)

	hist, err := NewHistogram(meter, HistogramOpts{Name: "test.hist", Unit: "s", Boundaries: DBDurationBuckets})
	require.NoError(t, err)
	hist.RecordDuration(ctx, 20*time.Millisecond)
	hist.Record(ctx, 0.5)

	gauge, err := NewGauge(meter, "test.gauge", "a gauge", "{n}")
	require.NoError(t, err)
	gauge.Record(ctx, 3)
	gauge.Record(ctx, 9)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	found := map[string]bool{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			found[m.Name] = true
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				assert.Equal(t, int64(5), data.DataPoints[0].Value)
			case metricdata.Histogram[float64]:
				assert.Equal(t, uint64(2), data.DataPoints[0].Count)
			case metricdata.Gauge[int64]:
				assert.Equal(t, int64(9), data.DataPoints[0].Value)
			}
		}
	}
	assert.True(t, found["test.counter"])
	assert.True(t, found["test.hist"])
	assert.True(t, found["test.gauge"])
}

func TestTracerProvider_Disabled(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("feedsync"))
	assert.NoError(t, tp.Shutdown(context.Background()))

	tp = &TracerProvider{provider: sdktrace.NewTracerProvider(), logger: zap.NewNop()}
	assert.True(t, tp.IsEnabled())
	assert.NoError(t, tp.Shutdown(context.Background()))
}
