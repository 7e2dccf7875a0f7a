package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer of sync spans
const TracerName = "feedsync"

// SpanOption configures StartSpan
type SpanOption func(*[]attribute.KeyValue)

// WithAttribute sets an attribute when the span starts
func WithAttribute(key string, value any) SpanOption {
	return func(attrs *[]attribute.KeyValue) {
		*attrs = append(*attrs, toAttribute(key, value))
	}
}

// StartSpan starts an internal span on the global tracer provider.
// The caller ends it.
//
//	ctx, span := telemetry.StartSpan(ctx, "sync.full_resync")
//	defer span.End()
func StartSpan(ctx context.Context, spanName string, opts ...SpanOption) (context.Context, trace.Span) {
	var attrs []attribute.KeyValue
	for _, opt := range opts {
		opt(&attrs)
	}
	startOpts := []trace.SpanStartOption{trace.WithSpanKind(trace.SpanKindInternal)}
	if len(attrs) > 0 {
		startOpts = append(startOpts, trace.WithAttributes(attrs...))
	}
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, spanName, startOpts...)
}

// SetAttributes sets alternating key, value pairs on span. Pairs whose key
// is not a string and a trailing key without value are ignored.
//
//	telemetry.SetAttributes(span, telemetry.SpanAttrFeedItems, 12, telemetry.SpanAttrDropped, 1)
func SetAttributes(span trace.Span, keyValues ...any) {
	if span == nil {
		return
	}
	span.SetAttributes(pairs(keyValues)...)
}

// SetAttribute sets one attribute on span
func SetAttribute(span trace.Span, key string, value any) {
	if span == nil {
		return
	}
	span.SetAttributes(toAttribute(key, value))
}

// RecordError records err on span and marks it failed
func RecordError(span trace.Span, err error, opts ...trace.EventOption) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

// SetOK marks span successful
func SetOK(span trace.Span) {
	if span == nil {
		return
	}
	span.SetStatus(codes.Ok, "")
}

// AddEvent adds a named event with key, value pairs as for SetAttributes
func AddEvent(span trace.Span, name string, keyValues ...any) {
	if span == nil {
		return
	}
	span.AddEvent(name, trace.WithAttributes(pairs(keyValues)...))
}

// SpanFromContext returns the span of the sync event running in ctx
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

func pairs(keyValues []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		if key, ok := keyValues[i].(string); ok {
			attrs = append(attrs, toAttribute(key, keyValues[i+1]))
		}
	}
	return attrs
}

// toAttribute converts a key-value pair to an attribute.KeyValue
func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case []int:
		return attribute.IntSlice(key, v)
	case []int64:
		return attribute.Int64Slice(key, v)
	case []float64:
		return attribute.Float64Slice(key, v)
	case []bool:
		return attribute.BoolSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}

// Span attribute keys set by the sync loop.
// Metric attributes are defined in metrics.go as attribute.Key values.
const (
	SpanAttrEvent      = "sync.event"
	SpanAttrNodeKind   = "graph.node_kind"
	SpanAttrNodeID     = "graph.node_id"
	SpanAttrQueueDepth = "sync.queue_depth"
	SpanAttrFeedItems  = "feed.items"
	SpanAttrDropped    = "feed.dropped"
	SpanAttrChannel    = "saleor.channel"
)
