package main

import (
	"context"
	"errors"
	"fmt"

	appfeed "github.com/feedsync/backend/internal/application/feed"
	"github.com/feedsync/backend/internal/application/syncer"
	"github.com/feedsync/backend/internal/infrastructure/apl"
	"github.com/feedsync/backend/internal/infrastructure/config"
	"github.com/feedsync/backend/internal/infrastructure/logger"
	"github.com/feedsync/backend/internal/infrastructure/persistence"
	"github.com/feedsync/backend/internal/infrastructure/saleor"
	"github.com/feedsync/backend/internal/infrastructure/scheduler"
	"github.com/feedsync/backend/internal/infrastructure/storage"
	"github.com/feedsync/backend/internal/infrastructure/telemetry"
	"github.com/feedsync/backend/internal/interfaces/http/handler"
	"github.com/feedsync/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const meterName = "github.com/feedsync/backend"

// app holds the wired components of the service
type app struct {
	db         *persistence.Database
	controller *syncer.Controller
	trigger    *scheduler.ResyncTrigger
	engine     *gin.Engine
	closers    []func() error
	log        *zap.Logger
}

func newApp(ctx context.Context, cfg *config.Config, providers *telemetry.Providers, log *zap.Logger) (a *app, err error) {
	a = &app{log: log}
	defer func() {
		if err != nil {
			a.close()
		}
	}()
	meter := providers.Meter(meterName)

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	a.db, err = persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.db.Close)
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	plugin, err := telemetry.NewGormPlugin(telemetry.GormConfig{
		Tracing:       cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBName:        cfg.Database.DBName,
		LogFullSQL:    cfg.Telemetry.DBLogFullSQL,
		SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, meter, log)
	if err != nil {
		return nil, fmt.Errorf("gorm plugin: %w", err)
	}
	if err := a.db.DB.Use(plugin); err != nil {
		return nil, fmt.Errorf("gorm plugin: %w", err)
	}

	if cfg.Database.AutoMigrate || cfg.Database.Driver == "sqlite" {
		if err := persistence.AutoMigrate(a.db.DB); err != nil {
			return nil, err
		}
	}
	store := persistence.NewGormGraphStore(a.db.DB)
	if err := persistence.EnsureSchemaVersion(ctx, store); err != nil {
		return nil, fmt.Errorf("run the migrate command first: %w", err)
	}

	// Source shop
	credentials, closeCredentials, err := apl.New(cfg, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeCredentials)
	client := saleor.New(saleor.Config{
		APIURL:           cfg.Saleor.APIURL,
		Timeout:          cfg.Saleor.Timeout,
		PageSize:         cfg.Saleor.PageSize,
		MaxCategoryDepth: cfg.Saleor.MaxCategoryDepth,
	}, credentials, log.Named("saleor"))

	// Feed
	generator, err := newFeedService(ctx, cfg, store, log)
	if err != nil {
		return nil, err
	}

	// Controller
	metrics, err := telemetry.NewSyncMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("sync metrics: %w", err)
	}
	a.controller = syncer.NewController(store, client, generator, syncer.Config{
		Channel:      cfg.Saleor.Channel,
		QueueSize:    cfg.Sync.QueueSize,
		EventTimeout: cfg.Sync.EventTimeout,
	}, syncer.WithLogger(log.Named("syncer")), syncer.WithMetrics(metrics))

	a.trigger, err = scheduler.NewResyncTrigger(scheduler.ResyncConfig{
		Spec:    cfg.Sync.ResyncCron,
		OnStart: cfg.Sync.ResyncOnStart,
	}, a.controller, log.Named("scheduler"))
	if err != nil {
		return nil, err
	}

	// HTTP
	mode := gin.DebugMode
	if cfg.App.IsProduction() {
		mode = gin.ReleaseMode
	}
	a.engine, err = router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		Mode:           mode,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TracingEnabled: cfg.Telemetry.Enabled,
		Meter:          meter,
	}, log)
	if err != nil {
		return nil, err
	}
	router.Setup(a.engine, router.Handlers{
		Webhook: handler.NewWebhookHandler(a.controller, cfg.Saleor.APIURL, credentials, log),
		Feed:    handler.NewFeedHandler(a.controller, cfg.Sync.EventTimeout),
		Health:  handler.NewHealthHandler(a.controller, store),
	})
	return a, nil
}

func newFeedService(ctx context.Context, cfg *config.Config, store *persistence.GormGraphStore, log *zap.Logger) (*appfeed.Service, error) {
	builder, err := appfeed.NewBuilder(cfg.Feed.VariantURLTemplate, cfg.Feed.TaxRate)
	if err != nil {
		return nil, fmt.Errorf("feed builder: %w", err)
	}
	strict := cfg.App.IsProduction()
	currencies, err := appfeed.NewCurrencyPolicy(cfg.Delivery.Currencies, strict)
	if err != nil {
		return nil, err
	}
	if !strict {
		log.Warn("Delivery prices accepted in any currency outside production",
			zap.Strings("configured", cfg.Delivery.Currencies))
	}
	deliveryOpts := []appfeed.DeliveryOption{appfeed.WithDeliveryLogger(log.Named("delivery"))}
	if cfg.Delivery.CashOnDelivery {
		surcharge, err := cfg.Delivery.Surcharge()
		if err != nil {
			return nil, err
		}
		deliveryOpts = append(deliveryOpts, appfeed.WithCashOnDelivery(surcharge))
	}
	deliveries := appfeed.NewDeliveryResolver(currencies, deliveryOpts...)

	opts := []appfeed.ServiceOption{appfeed.WithLogger(log.Named("feed"))}
	publisher, err := storage.New(ctx, cfg.Storage, cfg.Feed.FileName, log.Named("storage"))
	if err != nil {
		return nil, fmt.Errorf("feed storage: %w", err)
	}
	if publisher != nil {
		opts = append(opts, appfeed.WithPublisher(publisher))
	}
	return appfeed.NewService(store, deliveries, builder, opts...), nil
}

func (a *app) close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Error("Error releasing resources", zap.Error(err))
	}
}
