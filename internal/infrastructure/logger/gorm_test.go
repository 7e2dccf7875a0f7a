package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func traceSQL(l gormlogger.Interface, ctx context.Context, begin time.Time, err error) {
	l.Trace(ctx, begin, func() (string, int64) {
		return `SELECT * FROM "node" WHERE kind = 'variant'`, 3
	}, err)
}

func TestGormLogger_Trace(t *testing.T) {
	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		begin   time.Time
		err     error
		wantMsg string
	}{
		{"error", gormlogger.Error, time.Now(), errors.New("connection reset"), "SQL error"},
		{"record not found ignored", gormlogger.Info, time.Now(), gormlogger.ErrRecordNotFound, ""},
		{"slow query", gormlogger.Warn, time.Now().Add(-time.Second), nil, "Slow SQL"},
		{"fast query at warn", gormlogger.Warn, time.Now(), nil, ""},
		{"statement at info", gormlogger.Info, time.Now(), nil, "SQL"},
		{"silent", gormlogger.Silent, time.Now(), errors.New("ignored"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			l := NewGormLogger(zap.New(core), tt.level, 100*time.Millisecond)

			traceSQL(l, context.Background(), tt.begin, tt.err)
			if tt.wantMsg == "" {
				assert.Zero(t, recorded.Len())
				return
			}
			require.Equal(t, 1, recorded.Len())
			entry := recorded.All()[0]
			assert.Equal(t, tt.wantMsg, entry.Message)
			assert.Equal(t, "gorm", entry.LoggerName)
			assert.EqualValues(t, 3, entry.ContextMap()["rows"])
		})
	}
}

func TestGormLogger_TraceCarriesRequestID(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core), gormlogger.Info, 0)
	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-7")

	traceSQL(l, ctx, time.Now().Add(-time.Hour), nil)
	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "SQL", recorded.All()[0].Message)
	assert.Equal(t, "req-7", recorded.All()[0].ContextMap()["request_id"])
}

func TestGormLogger_LogMode(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core), gormlogger.Silent, 0)

	l.LogMode(gormlogger.Info).Info(context.Background(), "migrated %d tables", 3)
	l.Warn(context.Background(), "suppressed")
	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "migrated 3 tables", recorded.All()[0].Message)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("info"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel(""))
}
