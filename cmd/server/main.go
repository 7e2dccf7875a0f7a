// Command server runs the catalog sync controller and serves the Heureka feed.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feedsync/backend/internal/infrastructure/config"
	"github.com/feedsync/backend/internal/infrastructure/logger"
	"github.com/feedsync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	base, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}, cfg.App.Name)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize logger:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, base); err != nil {
		base.Error("Server exited with error", zap.Error(err))
		_ = base.Sync()
		os.Exit(1)
	}
	_ = base.Sync()
}

func run(ctx context.Context, cfg *config.Config, base *zap.Logger) error {
	providers, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		MetricsEnabled:    cfg.Telemetry.MetricsEnabled,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, base)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			base.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}()

	level, _ := logger.ParseLevel(cfg.Log.Level)
	log := providers.Bridge(base, cfg.Telemetry.ServiceName, level)

	log.Info("Starting feed sync service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("saleor_api_url", cfg.Saleor.APIURL),
		zap.String("channel", cfg.Saleor.Channel),
	)

	app, err := newApp(ctx, cfg, providers, log)
	if err != nil {
		return err
	}
	defer app.close()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        app.engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
		ErrorLog:       zap.NewStdLog(log.Named("http").WithOptions(zap.IncreaseLevel(zapcore.WarnLevel))),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.controller.Run(gctx)
	})
	g.Go(func() error {
		return app.trigger.Run(gctx)
	})
	g.Go(func() error {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		app.controller.Close()
		if err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Server exited gracefully")
	return nil
}
