package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope for checkpoint spans.
const TracerName = "checkpointer"

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartOperationSpan starts a span for a save, load, or reset.
	StartOperationSpan(ctx context.Context, op, slot string) (context.Context, trace.Span)

	// StartFragmentSpan starts a span for one fragment callback.
	// The fragment span should be a child of the operation span.
	StartFragmentSpan(ctx context.Context, kind, op string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct {
	tracer trace.Tracer
}

// NewSpanManager returns a SpanManager that uses the global OTel tracer provider.
// Configure the provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return NewSpanManagerWithProvider(otel.GetTracerProvider())
}

// NewSpanManagerWithProvider returns a SpanManager that uses provider.
func NewSpanManagerWithProvider(provider trace.TracerProvider) SpanManager {
	return &otelSpanManager{tracer: provider.Tracer(TracerName)}
}

// StartOperationSpan starts a span for an operation.
func (m *otelSpanManager) StartOperationSpan(ctx context.Context, op, slot string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "checkpointer."+op,
		trace.WithAttributes(
			attribute.String("checkpoint.operation", op),
			attribute.String("checkpoint.slot", slot),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartFragmentSpan starts a span for a fragment callback.
func (m *otelSpanManager) StartFragmentSpan(ctx context.Context, kind, op string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "checkpointer.fragment."+op,
		trace.WithAttributes(
			attribute.String("checkpoint.kind", kind),
			attribute.String("checkpoint.operation", op),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	EndSpanWithError(span, err)
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	AddSpanEvent(ctx, name, attrs...)
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span in context.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
