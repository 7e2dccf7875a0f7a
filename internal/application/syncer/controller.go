// Package syncer runs the catalog sync loop.
//
// A Controller owns the graph store: it is the only writer and consumes a
// single mailbox, so ingestion, full resyncs and feed generation never
// overlap. Other components talk to it by submitting events.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	appfeed "github.com/feedsync/backend/internal/application/feed"
	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/graph"
	"github.com/feedsync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const (
	DefaultQueueSize    = 256
	DefaultEventTimeout = 10 * time.Minute
)

var (
	ErrClosed          = errors.New("syncer: controller closed")
	ErrAlreadyRunning  = errors.New("syncer: controller already running")
	ErrNilEvent        = errors.New("syncer: nil event")
	ErrEventSkipped    = errors.New("syncer: event skipped")
	ErrUnknownEvent    = errors.New("syncer: unknown event")
	ErrNoShippingZones = errors.New("syncer: no shipping zones configured")
)

// SourceClient reads the remote catalog
type SourceClient interface {
	FetchProducts(ctx context.Context, channel string) ([]catalog.Product, error)
	FetchShippingZones(ctx context.Context, channel string) ([]catalog.ShippingZone, error)
	// Ancestors returns the category followed by its parents up to the root.
	Ancestors(ctx context.Context, categoryID string) ([]catalog.Category, error)
	// Children returns the direct children of a category.
	Children(ctx context.Context, categoryID string) ([]catalog.Category, error)
}

// FeedGenerator builds the feed from the store
type FeedGenerator interface {
	Generate(ctx context.Context) (*appfeed.Result, error)
}

// State is the controller state
type State int32

const (
	StateIdle State = iota
	StateProcessing
)

// String returns the string representation of State
func (s State) String() string {
	if s == StateProcessing {
		return "processing"
	}
	return "idle"
}

// Config configures a Controller
type Config struct {
	Channel      string
	QueueSize    int
	EventTimeout time.Duration
}

// Controller is the single consumer of sync events
type Controller struct {
	store   graph.Store
	source  SourceClient
	feed    FeedGenerator
	channel string
	timeout time.Duration

	mailbox   chan Event
	done      chan struct{}
	closeOnce sync.Once
	running   atomic.Bool
	state     atomic.Int32

	metrics *telemetry.SyncMetrics
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithMetrics records event metrics
func WithMetrics(m *telemetry.SyncMetrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// NewController creates a Controller. Call Run to start consuming events.
func NewController(store graph.Store, source SourceClient, gen FeedGenerator, cfg Config, opts ...Option) *Controller {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = DefaultEventTimeout
	}
	c := &Controller{
		store:   store,
		source:  source,
		feed:    gen,
		channel: cfg.Channel,
		timeout: cfg.EventTimeout,
		mailbox: make(chan Event, cfg.QueueSize),
		done:    make(chan struct{}),
		logger:  zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns what the controller is doing right now
func (c *Controller) State() State {
	return State(c.state.Load())
}

// QueueDepth returns the number of events waiting in the mailbox
func (c *Controller) QueueDepth() int {
	return len(c.mailbox)
}

// Run consumes events until ctx is cancelled or Close is called.
// Events still queued at that point are discarded.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer c.Close()

	c.logger.Info("Sync controller started", zap.String("channel", c.channel), zap.Int("queue_size", cap(c.mailbox)))
	defer c.logger.Info("Sync controller stopped", zap.Int("discarded", len(c.mailbox)))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.done:
			return nil
		case ev := <-c.mailbox:
			c.process(ctx, ev)
		}
	}
}

// Close stops the controller. Pending and future requests fail with ErrClosed.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Submit enqueues an event, waiting for mailbox space until ctx is done
func (c *Controller) Submit(ctx context.Context, ev Event) error {
	if ev == nil {
		return ErrNilEvent
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.mailbox <- ev:
		c.metrics.RecordQueueDepth(ctx, len(c.mailbox))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}
}

// RequestFeed generates the feed through the mailbox and waits for the result
func (c *Controller) RequestFeed(ctx context.Context) (*appfeed.Result, error) {
	reply := make(chan FeedResult, 1)
	if err := c.Submit(ctx, FeedRequest{reply: reply}); err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res.Result, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
}

// RequestResync runs a full resync through the mailbox and waits for the report.
// The report is returned even when the resync failed.
func (c *Controller) RequestResync(ctx context.Context) (*SyncReport, error) {
	reply := make(chan ResyncResult, 1)
	if err := c.Submit(ctx, FullResync{reply: reply}); err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res.Report, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
}

func (c *Controller) process(parent context.Context, ev Event) {
	c.state.Store(int32(StateProcessing))
	defer c.state.Store(int32(StateIdle))

	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()
	ctx, span := telemetry.StartSpan(ctx, "sync."+ev.Name(),
		telemetry.WithAttribute(telemetry.SpanAttrEvent, ev.Name()),
		telemetry.WithAttribute(telemetry.SpanAttrQueueDepth, len(c.mailbox)),
	)
	defer span.End()
	if ref, ok := nodeOf(ev); ok {
		telemetry.SetAttributes(span, telemetry.SpanAttrNodeKind, ref.Kind.String(), telemetry.SpanAttrNodeID, ref.ID)
	}

	start := time.Now()
	err := c.dispatch(ctx, ev)
	elapsed := time.Since(start)

	log := c.logger.With(zap.String("event", ev.Name()), zap.Duration("elapsed", elapsed))
	outcome := telemetry.OutcomeOK
	switch {
	case err == nil:
		telemetry.SetOK(span)
		log.Debug("Sync event processed")
	case errors.Is(err, ErrEventSkipped):
		outcome = telemetry.OutcomeSkipped
		telemetry.AddEvent(span, "skipped", "reason", err.Error())
		log.Warn("Sync event skipped", zap.Error(err))
	default:
		outcome = telemetry.OutcomeFailed
		telemetry.RecordError(span, err)
		log.Error("Sync event failed", zap.Error(err))
	}
	c.metrics.RecordEvent(parent, ev.Name(), outcome, elapsed)
	c.metrics.RecordQueueDepth(parent, len(c.mailbox))
}

func (c *Controller) dispatch(ctx context.Context, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("syncer: panic handling %s: %v", ev.Name(), r)
			c.logger.Error("Recovered panic in sync event", zap.String("event", ev.Name()), zap.Stack("stack"))
			switch e := ev.(type) {
			case FullResync:
				e.answer(nil, err)
			case FeedRequest:
				e.answer(nil, err)
			}
		}
	}()

	switch e := ev.(type) {
	case ProductUpsert:
		return c.upsertProduct(ctx, e.Product)
	case VariantUpsert:
		return c.upsertVariant(ctx, e.Variant)
	case CategoryUpsert:
		return c.upsertCategory(ctx, e.Category)
	case ShippingZoneUpsert:
		return c.upsertShippingZone(ctx, e.Zone)
	case Delete:
		return c.delete(ctx, e)
	case FullResync:
		report, err := c.fullResync(ctx)
		e.answer(report, err)
		return err
	case FeedRequest:
		result, err := c.generateFeed(ctx)
		e.answer(result, err)
		return err
	default:
		return fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}
}

func skip(err error) error {
	return fmt.Errorf("%w: %w", ErrEventSkipped, err)
}
