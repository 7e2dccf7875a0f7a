package router

import (
	"fmt"

	"github.com/feedsync/backend/internal/infrastructure/logger"
	"github.com/feedsync/backend/internal/interfaces/http/handler"
	"github.com/feedsync/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// HealthPath is served without tracing and logged at debug level
const HealthPath = "/health"

// EngineConfig configures the middleware chain
type EngineConfig struct {
	ServiceName    string
	Mode           string // gin mode; empty keeps the current one
	TrustedProxies []string
	MaxBodySize    int64
	TracingEnabled bool
	TracerProvider trace.TracerProvider
	Meter          metric.Meter
}

// NewEngine builds a gin engine with the standard middleware chain:
// recovery, request id, tracing, request logging, metrics and the body limit.
func NewEngine(cfg EngineConfig, log *zap.Logger) (*gin.Engine, error) {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("router: trusted proxies: %w", err)
	}

	metrics, err := middleware.HTTPMetrics(cfg.Meter)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName:    cfg.ServiceName,
			Enabled:        cfg.TracingEnabled,
			TracerProvider: cfg.TracerProvider,
			SkipPaths:      []string{HealthPath},
		}),
		middleware.SpanEnricher(),
		logger.GinMiddleware(log, HealthPath),
		metrics,
		middleware.BodyLimit(cfg.MaxBodySize),
	)
	return engine, nil
}

// Handlers are the handlers the service exposes
type Handlers struct {
	Webhook *handler.WebhookHandler
	Feed    *handler.FeedHandler
	Health  *handler.HealthHandler
}

// Groups returns the route groups of h
func (h Handlers) Groups() []RouteRegistrar {
	root := NewDomainGroup("root", "/")
	root.GET(HealthPath, h.Health.Health)
	root.GET("/heureka.xml", middleware.NoCache(), h.Feed.GetFeed)

	api := NewDomainGroup("api", "/api").Use(middleware.NoCache())
	api.POST("/webhooks", h.Webhook.Handle)
	api.POST("/resync", h.Feed.Resync)
	api.GET("/feed/summary", h.Feed.Summary)
	api.GET("/issues", h.Health.Issues)

	return []RouteRegistrar{root, api}
}

// Setup registers the routes of h on engine
func Setup(engine *gin.Engine, h Handlers) {
	r := NewRouter(engine)
	for _, g := range h.Groups() {
		r.Register(g)
	}
	r.Setup()
}
