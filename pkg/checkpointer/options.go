package checkpointer

import (
	"log/slog"

	"github.com/randalmurphal/checkpointer/pkg/checkpointer/codec"
	"github.com/randalmurphal/checkpointer/pkg/checkpointer/encrypt"
	ckerrors "github.com/randalmurphal/checkpointer/pkg/checkpointer/errors"
	"github.com/randalmurphal/checkpointer/pkg/checkpointer/observability"
)

// DefaultSlot is the storage slot used when none is configured.
const DefaultSlot = "checkpoint"

// Options configures a Manager.
type Options struct {
	// Encryptor protects the encoded checkpoint. Default: encrypt.Null.
	Encryptor encrypt.Encryptor

	// Codec encodes the envelope. Default: codec.JSON.
	Codec codec.Codec

	// Logger receives checkpoint events. Default: slog.Default().
	// A nil Logger discards events.
	Logger *slog.Logger

	// Slot names the storage location. Default: DefaultSlot.
	Slot string

	// SortFragments orders fragments by kind before encoding, so identical
	// state produces identical bytes. Default: registration order.
	SortFragments bool

	// Metrics records operation metrics. Default: observability.NoopMetrics.
	Metrics observability.MetricsRecorder

	// Spans creates trace spans. Default: observability.NoopSpanManager.
	Spans observability.SpanManager

	// Retry governs storage reads and writes. Default: ckerrors.NoRetry.
	Retry ckerrors.RetryConfig
}

// DefaultOptions returns the configuration used when no options are given.
func DefaultOptions() Options {
	return Options{
		Encryptor: encrypt.Null{},
		Codec:     codec.JSON{},
		Logger:    slog.Default(),
		Slot:      DefaultSlot,
		Metrics:   observability.NoopMetrics{},
		Spans:     observability.NoopSpanManager{},
		Retry:     ckerrors.NoRetry,
	}
}

// Option configures a Manager.
type Option func(*Options)

// WithEncryptor sets the encryption strategy.
// A nil encryptor stores plaintext.
//
// Example:
//
//	enc, _ := encrypt.NewPassword([]byte(pw), encrypt.PasswordDefaults())
//	mgr := checkpointer.New(st, checkpointer.WithEncryptor(enc))
func WithEncryptor(enc encrypt.Encryptor) Option {
	return func(o *Options) {
		if enc == nil {
			enc = encrypt.Null{}
		}
		o.Encryptor = enc
	}
}

// WithCodec sets the envelope codec. A nil codec selects JSON.
func WithCodec(c codec.Codec) Option {
	return func(o *Options) {
		if c == nil {
			c = codec.JSON{}
		}
		o.Codec = c
	}
}

// WithLogger sets the logger. Pass nil to discard log output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithSlot sets the storage slot. Empty names are ignored.
func WithSlot(slot string) Option {
	return func(o *Options) {
		if slot != "" {
			o.Slot = slot
		}
	}
}

// WithSortedFragments orders fragments by kind before encoding.
func WithSortedFragments(sorted bool) Option {
	return func(o *Options) {
		o.SortFragments = sorted
	}
}

// WithMetrics enables OpenTelemetry metrics.
//
// Example:
//
//	mgr := checkpointer.New(st, checkpointer.WithMetrics(observability.NewMetricsRecorder()))
func WithMetrics(rec observability.MetricsRecorder) Option {
	return func(o *Options) {
		if rec == nil {
			rec = observability.NoopMetrics{}
		}
		o.Metrics = rec
	}
}

// WithSpans enables OpenTelemetry tracing.
// Each operation gets a span with one child span per callback.
func WithSpans(sm observability.SpanManager) Option {
	return func(o *Options) {
		if sm == nil {
			sm = observability.NoopSpanManager{}
		}
		o.Spans = sm
	}
}

// WithRetry retries transient storage failures such as a locked database.
func WithRetry(cfg ckerrors.RetryConfig) Option {
	return func(o *Options) {
		o.Retry = cfg
	}
}
