package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Event outcomes recorded by SyncMetrics
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// SyncMetrics records the work of the catalog sync loop.
// A nil *SyncMetrics records nothing.
type SyncMetrics struct {
	eventsProcessed *Counter
	eventDuration   *Histogram
	queueDepth      *Gauge
	feedItems       *Gauge
	feedDropped     *Counter
}

// EventDurationBuckets are bucket boundaries for event processing time (seconds).
// Full resyncs walk the whole catalog and take minutes.
var EventDurationBuckets = []float64{0.005, 0.05, 0.25, 1, 5, 30, 120, 600}

// NewSyncMetrics creates the sync instruments on meter
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	sm := &SyncMetrics{}
	var err error

	sm.eventsProcessed, err = NewCounter(meter,
		"feedsync.events.processed",
		"Number of sync events processed",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	sm.eventDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "feedsync.event.duration",
		Description: "Time spent processing one sync event",
		Unit:        "s",
		Boundaries:  EventDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	sm.queueDepth, err = NewGauge(meter,
		"feedsync.queue.depth",
		"Events waiting in the sync mailbox",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	sm.feedItems, err = NewGauge(meter,
		"feedsync.feed.items",
		"Items in the last generated feed",
		"{items}",
	)
	if err != nil {
		return nil, err
	}

	sm.feedDropped, err = NewCounter(meter,
		"feedsync.feed.dropped",
		"Products and variants left out of generated feeds",
		"{items}",
	)
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// RecordEvent counts one processed event and its duration
func (sm *SyncMetrics) RecordEvent(ctx context.Context, event, outcome string, d time.Duration) {
	if sm == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrEvent.String(event), AttrOutcome.String(outcome)}
	sm.eventsProcessed.Inc(ctx, attrs...)
	sm.eventDuration.RecordDuration(ctx, d, attrs...)
}

// RecordQueueDepth records the number of pending events
func (sm *SyncMetrics) RecordQueueDepth(ctx context.Context, depth int) {
	if sm == nil {
		return
	}
	sm.queueDepth.Record(ctx, int64(depth))
}

// RecordFeed records the size of a generated feed
func (sm *SyncMetrics) RecordFeed(ctx context.Context, items, dropped int) {
	if sm == nil {
		return
	}
	sm.feedItems.Record(ctx, int64(items))
	if dropped > 0 {
		sm.feedDropped.Add(ctx, int64(dropped))
	}
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewSyncMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
