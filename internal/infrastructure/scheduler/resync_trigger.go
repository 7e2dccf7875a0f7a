// Package scheduler enqueues periodic full resyncs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/feedsync/backend/internal/application/syncer"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrInvalidSchedule is returned for cron specs that cannot be parsed
var ErrInvalidSchedule = errors.New("scheduler: invalid resync schedule")

// Submitter accepts sync events
type Submitter interface {
	Submit(ctx context.Context, ev syncer.Event) error
}

// ResyncConfig holds the resync schedule
type ResyncConfig struct {
	// Spec is a standard five field cron spec or a descriptor such as
	// "@hourly". Empty disables scheduled resyncs.
	Spec string
	// OnStart enqueues one resync when the trigger starts.
	OnStart bool
	// SubmitTimeout bounds the wait for mailbox space.
	SubmitTimeout time.Duration
}

// ResyncTrigger enqueues FullResync events on a cron schedule.
// It never waits for the resync itself; the controller serializes them.
type ResyncTrigger struct {
	config    ResyncConfig
	submitter Submitter
	cron      *cron.Cron
	logger    *zap.Logger

	mu        sync.Mutex
	isRunning bool
}

// NewResyncTrigger validates the schedule and creates a trigger
func NewResyncTrigger(cfg ResyncConfig, submitter Submitter, logger *zap.Logger) (*ResyncTrigger, error) {
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &ResyncTrigger{
		config:    cfg,
		submitter: submitter,
		logger:    logger,
	}

	cronLogger := cronLogger{logger: logger.Named("cron")}
	t.cron = cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger)),
	)
	if cfg.Spec != "" {
		if _, err := t.cron.AddFunc(cfg.Spec, t.fire); err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidSchedule, cfg.Spec, err)
		}
	}
	return t, nil
}

// Start starts the schedule. Calling Start twice is a no-op.
func (t *ResyncTrigger) Start() {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return
	}
	t.isRunning = true
	t.mu.Unlock()

	if t.config.OnStart {
		t.fire()
	}
	t.cron.Start()

	fields := []zap.Field{zap.String("spec", t.config.Spec), zap.Bool("on_start", t.config.OnStart)}
	if entries := t.cron.Entries(); len(entries) > 0 {
		fields = append(fields, zap.Time("next", entries[0].Next))
	}
	t.logger.Info("Resync trigger started", fields...)
}

// Stop stops the schedule and waits for a running submission until ctx is done
func (t *ResyncTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	select {
	case <-t.cron.Stop().Done():
		t.logger.Info("Resync trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the trigger and stops it when ctx is done
func (t *ResyncTrigger) Run(ctx context.Context) error {
	t.Start()
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), t.config.SubmitTimeout)
	defer cancel()
	return t.Stop(stopCtx)
}

func (t *ResyncTrigger) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), t.config.SubmitTimeout)
	defer cancel()

	if err := t.submitter.Submit(ctx, syncer.FullResync{}); err != nil {
		t.logger.Warn("Failed to enqueue scheduled resync", zap.Error(err))
		return
	}
	t.logger.Debug("Scheduled resync enqueued")
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
