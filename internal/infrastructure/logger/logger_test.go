package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default config", cfg: DefaultConfig()},
		{name: "production config", cfg: ProductionConfig()},
		{name: "debug to stderr", cfg: Config{Level: "debug", Format: "json", Output: "stderr"}},
		{name: "unknown level", cfg: Config{Level: "loud"}, wantErr: true},
		{name: "unwritable file", cfg: Config{Output: filepath.Join(t.TempDir(), "missing", "app.log")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg, "feedsync")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := New(Config{Level: "info", Format: "json", Output: path}, "feedsync")
	require.NoError(t, err)

	logger.Info("Feed generated")
	logger.Debug("hidden")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Feed generated"`)
	assert.Contains(t, string(data), `"service":"feedsync"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestNewForEnvironment(t *testing.T) {
	for _, env := range []string{"production", "development", ""} {
		logger, err := NewForEnvironment(env, "feedsync")
		require.NoError(t, err, env)
		assert.NotNil(t, logger)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"":        zapcore.InfoLevel,
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}
