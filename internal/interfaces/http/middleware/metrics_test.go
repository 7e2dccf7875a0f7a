package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestHTTPMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	mw, err := HTTPMetrics(mp.Meter("test"))
	require.NoError(t, err)

	router := gin.New()
	router.Use(mw)
	router.GET("/heureka.xml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/xml", []byte("<SHOP></SHOP>"))
	})

	for range 2 {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/heureka.xml", nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	var sawSize bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if m.Name != "feedsync.http.server.requests" {
					continue
				}
				for _, dp := range data.DataPoints {
					route, _ := dp.Attributes.Value(attribute.Key("http.route"))
					counts[route.AsString()] += dp.Value
				}
			case metricdata.Histogram[float64]:
				if m.Name == "feedsync.http.server.response.size" {
					sawSize = true
				}
			}
		}
	}
	assert.Equal(t, int64(2), counts["/heureka.xml"])
	assert.Equal(t, int64(1), counts["unknown"])
	assert.True(t, sawSize)
}

func TestHTTPMetrics_NilMeter(t *testing.T) {
	mw, err := HTTPMetrics(nil)
	require.NoError(t, err)

	router := gin.New()
	router.Use(mw)
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
