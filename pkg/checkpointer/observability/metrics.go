package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope for checkpoint metrics.
const MeterName = "checkpointer"

// MetricsRecorder records checkpoint metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordOperation records a finished save, load, or reset with its outcome.
	RecordOperation(ctx context.Context, op, outcome string, duration time.Duration)

	// RecordFragmentFailure records one failed produce, apply, or reset callback.
	RecordFragmentFailure(ctx context.Context, kind, op string)

	// RecordCheckpointSize records the stored size of a checkpoint.
	RecordCheckpointSize(ctx context.Context, slot string, sizeBytes int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	operations       metric.Int64Counter
	operationLatency metric.Float64Histogram
	fragmentFailures metric.Int64Counter
	checkpointSize   metric.Int64Histogram
}

func newOtelMetrics(provider metric.MeterProvider) (*otelMetrics, error) {
	meter := provider.Meter(MeterName)

	operations, err := meter.Int64Counter("checkpointer.operations",
		metric.WithDescription("Number of save, load, and reset operations"),
	)
	if err != nil {
		return nil, err
	}

	operationLatency, err := meter.Float64Histogram("checkpointer.operation.latency_ms",
		metric.WithDescription("Operation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	fragmentFailures, err := meter.Int64Counter("checkpointer.fragment.failures",
		metric.WithDescription("Number of failed fragment callbacks"),
	)
	if err != nil {
		return nil, err
	}

	checkpointSize, err := meter.Int64Histogram("checkpointer.checkpoint.size_bytes",
		metric.WithDescription("Stored checkpoint size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		operations:       operations,
		operationLatency: operationLatency,
		fragmentFailures: fragmentFailures,
		checkpointSize:   checkpointSize,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by the global OTel
// meter provider. Configure the provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	return NewMetricsRecorderWithProvider(otel.GetMeterProvider())
}

// NewMetricsRecorderWithProvider returns a MetricsRecorder using provider.
// If instrument creation fails, returns a no-op recorder.
func NewMetricsRecorderWithProvider(provider metric.MeterProvider) MetricsRecorder {
	m, err := newOtelMetrics(provider)
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordOperation records an operation.
func (m *otelMetrics) RecordOperation(ctx context.Context, op, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	)
	m.operations.Add(ctx, 1, attrs)
	m.operationLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

// RecordFragmentFailure records a failed callback.
func (m *otelMetrics) RecordFragmentFailure(ctx context.Context, kind, op string) {
	m.fragmentFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("operation", op),
	))
}

// RecordCheckpointSize records a checkpoint size.
func (m *otelMetrics) RecordCheckpointSize(ctx context.Context, slot string, sizeBytes int64) {
	m.checkpointSize.Record(ctx, sizeBytes, metric.WithAttributes(
		attribute.String("slot", slot),
	))
}
