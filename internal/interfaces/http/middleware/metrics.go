package middleware

import (
	"time"

	"github.com/feedsync/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type httpMetrics struct {
	requestTotal    *telemetry.Counter
	requestDuration *telemetry.Histogram
	responseSize    *telemetry.Histogram
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requestTotal, err := telemetry.NewCounter(meter,
		"feedsync.http.server.requests",
		"Total number of HTTP requests",
		"{request}",
	)
	if err != nil {
		return nil, err
	}
	requestDuration, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "feedsync.http.server.duration",
		Description: "HTTP request latency in seconds",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	responseSize, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "feedsync.http.server.response.size",
		Description: "HTTP response body size in bytes",
		Unit:        "By",
		Boundaries:  []float64{100, 1000, 10000, 100000, 1000000, 10000000, 50000000},
	})
	if err != nil {
		return nil, err
	}
	return &httpMetrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		responseSize:    responseSize,
	}, nil
}

// HTTPMetrics records request count, latency and response size per route.
// A nil meter disables the middleware.
func HTTPMetrics(meter metric.Meter) (gin.HandlerFunc, error) {
	if meter == nil {
		return func(c *gin.Context) { c.Next() }, nil
	}
	m, err := newHTTPMetrics(meter)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ctx := c.Request.Context()
		attrs := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(routePattern(c)),
		}
		m.requestTotal.Inc(ctx, append(attrs, telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()))...)
		m.requestDuration.RecordDuration(ctx, time.Since(start), attrs...)
		if size := c.Writer.Size(); size > 0 {
			m.responseSize.Record(ctx, float64(size), attrs...)
		}
	}, nil
}

// routePattern keeps metric cardinality bounded for unmatched paths
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}
