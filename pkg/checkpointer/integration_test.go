package checkpointer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/randalmurphal/checkpointer/pkg/checkpointer"
	"github.com/randalmurphal/checkpointer/pkg/checkpointer/encrypt"
	"github.com/randalmurphal/checkpointer/pkg/checkpointer/observability"
	"github.com/randalmurphal/checkpointer/pkg/checkpointer/store"
)

func mustFixedKey(t *testing.T) encrypt.Encryptor {
	t.Helper()
	key := []byte("0123456789abcdef0123456789abcdef")
	iv := []byte("fedcba9876543210")
	enc, err := encrypt.NewFixedKey(key, iv)
	require.NoError(t, err)
	return enc
}

func mustPassword(t *testing.T, pw string) encrypt.Encryptor {
	t.Helper()
	opts := encrypt.PasswordDefaults()
	opts.Iterations = 1000
	enc, err := encrypt.NewPassword([]byte(pw), opts)
	require.NoError(t, err)
	return enc
}

func TestEncryption_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		enc  func(t *testing.T) encrypt.Encryptor
	}{
		{"null", func(*testing.T) encrypt.Encryptor { return encrypt.Null{} }},
		{"fixed key", mustFixedKey},
		{"password", func(t *testing.T) encrypt.Encryptor { return mustPassword(t, "correct horse") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			st := store.NewMemoryStore()
			enc := tt.enc(t)

			src := newWorld()
			saver := checkpointer.New(st, checkpointer.WithLogger(nil), checkpointer.WithEncryptor(enc))
			src.register(t, saver)
			_, err := saver.Save(ctx)
			require.NoError(t, err)

			raw, err := st.Read(ctx, checkpointer.DefaultSlot)
			require.NoError(t, err)
			if enc.Name() != encrypt.StrategyNone {
				assert.NotContains(t, string(raw), "caves")
			}

			dst := emptyWorld()
			loader := checkpointer.New(st, checkpointer.WithLogger(nil), checkpointer.WithEncryptor(enc))
			dst.register(t, loader)
			report, err := loader.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, checkpointer.OutcomeLoaded, report.Outcome)
			assert.Equal(t, []Progress{src.progress.state}, dst.progress.applied)
		})
	}
}

func TestEncryption_WrongPasswordRecovers(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	saver := checkpointer.New(st, checkpointer.WithLogger(nil), checkpointer.WithEncryptor(mustPassword(t, "right")))
	newWorld().register(t, saver)
	_, err := saver.Save(ctx)
	require.NoError(t, err)

	logger, logs := newLogCapture()
	dst := emptyWorld()
	loader := checkpointer.New(st, checkpointer.WithLogger(logger), checkpointer.WithEncryptor(mustPassword(t, "wrong")))
	dst.register(t, loader)

	report, err := loader.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, checkpointer.OutcomeRecovered, report.Outcome)
	assert.ErrorIs(t, report.Cause, encrypt.ErrDecryptionFailed)
	assert.Equal(t, 3, dst.totalResets())
	assert.Zero(t, dst.totalApplied())
	assert.NotNil(t, logs.find("corrupted checkpoint"))
}

func TestEncryption_PlaintextCheckpointWithKeyRecovers(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	saver := checkpointer.New(st, checkpointer.WithLogger(nil))
	newWorld().register(t, saver)
	_, err := saver.Save(ctx)
	require.NoError(t, err)

	dst := emptyWorld()
	loader := checkpointer.New(st, checkpointer.WithLogger(nil), checkpointer.WithEncryptor(mustFixedKey(t)))
	dst.register(t, loader)

	report, err := loader.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, checkpointer.OutcomeRecovered, report.Outcome)
	assert.Equal(t, 3, dst.totalResets())
}

func TestFixedKey_RepeatedSavesAreIdentical(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	enc := mustFixedKey(t)

	// Envelope IDs and timestamps differ per save, so compare the encryptor directly.
	mgr := checkpointer.New(st, checkpointer.WithLogger(nil), checkpointer.WithEncryptor(enc))
	newWorld().register(t, mgr)
	_, err := mgr.Save(ctx)
	require.NoError(t, err)
	raw, err := st.Read(ctx, checkpointer.DefaultSlot)
	require.NoError(t, err)

	plain, err := enc.Decrypt(raw)
	require.NoError(t, err)
	again, err := enc.Encrypt(plain)
	require.NoError(t, err)
	assert.Equal(t, raw, again)
}

func findSum(t *testing.T, rm *metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestObservability_MetricsAndSpans(t *testing.T) {
	ctx := context.Background()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
		_ = tp.Shutdown(context.Background())
	})

	w := newWorld()
	w.settings.producePanic = true
	mgr := checkpointer.New(store.NewMemoryStore(),
		checkpointer.WithLogger(nil),
		checkpointer.WithMetrics(observability.NewMetricsRecorderWithProvider(mp)),
		checkpointer.WithSpans(observability.NewSpanManagerWithProvider(tp)),
	)
	w.register(t, mgr)

	_, err := mgr.Save(ctx)
	require.NoError(t, err)
	_, err = mgr.Load(ctx)
	require.NoError(t, err)
	mgr.Reset(ctx)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.Equal(t, int64(3), findSum(t, &rm, "checkpointer.operations"))
	assert.Equal(t, int64(1), findSum(t, &rm, "checkpointer.fragment.failures"))

	names := make(map[string]int)
	for _, s := range exporter.GetSpans() {
		names[s.Name]++
	}
	assert.Equal(t, 1, names["checkpointer.save"])
	assert.Equal(t, 1, names["checkpointer.load"])
	assert.Equal(t, 1, names["checkpointer.reset"])
	assert.Equal(t, 3, names["checkpointer.fragment.produce"])
	assert.Equal(t, 2, names["checkpointer.fragment.apply"])
	assert.Equal(t, 3, names["checkpointer.fragment.reset"])
}
