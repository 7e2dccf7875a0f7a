package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestRouter(logger *zap.Logger, quiet ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set("request_id", "req-42") })
	router.Use(Recovery(logger), GinMiddleware(logger, quiet...))
	return router
}

func serve(router *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestGinMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  zapcore.Level
	}{
		{"ok", http.StatusOK, zapcore.InfoLevel},
		{"client error", http.StatusConflict, zapcore.WarnLevel},
		{"server error", http.StatusInternalServerError, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			router := newTestRouter(zap.New(core))
			router.GET("/heureka.xml", func(c *gin.Context) { c.Status(tt.status) })

			w := serve(router, http.MethodGet, "/heureka.xml?debug=1")
			assert.Equal(t, tt.status, w.Code)

			logs := recorded.FilterMessage("HTTP Request").All()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.level, logs[0].Level)
			fields := logs[0].ContextMap()
			assert.Equal(t, "req-42", fields["request_id"])
			assert.Equal(t, "/heureka.xml", fields["path"])
			assert.Equal(t, "debug=1", fields["query"])
			assert.EqualValues(t, tt.status, fields["status"])
		})
	}
}

func TestGinMiddleware_QuietPaths(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	router := newTestRouter(zap.New(core), "/health")
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, http.MethodGet, "/health")
	logs := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, logs, 1)
	assert.Equal(t, zapcore.DebugLevel, logs[0].Level)
}

func TestGinMiddleware_StoresRequestLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	router := newTestRouter(zap.New(core))
	router.POST("/api/resync", func(c *gin.Context) {
		GetGinLogger(c).Info("from gin context")
		FromContext(c.Request.Context()).Info("from request context")
		c.Status(http.StatusAccepted)
	})

	serve(router, http.MethodPost, "/api/resync")
	for _, msg := range []string{"from gin context", "from request context"} {
		logs := recorded.FilterMessage(msg).All()
		require.Len(t, logs, 1, msg)
		assert.Equal(t, "req-42", logs[0].ContextMap()["request_id"])
	}
}

func TestGetGinLogger_NotSet(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotNil(t, GetGinLogger(c))
}

func TestRecovery(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)
	router := newTestRouter(zap.New(core))
	router.GET("/panic", func(*gin.Context) { panic("boom") })

	w := serve(router, http.MethodGet, "/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())

	logs := recorded.FilterMessage("Panic recovered").All()
	require.Len(t, logs, 1)
	assert.Equal(t, "req-42", logs[0].ContextMap()["request_id"])
}
