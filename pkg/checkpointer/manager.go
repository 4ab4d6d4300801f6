package checkpointer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/checkpointer/pkg/checkpointer/codec"
	ckerrors "github.com/randalmurphal/checkpointer/pkg/checkpointer/errors"
	"github.com/randalmurphal/checkpointer/pkg/checkpointer/observability"
	"github.com/randalmurphal/checkpointer/pkg/checkpointer/registry"
	"github.com/randalmurphal/checkpointer/pkg/checkpointer/store"
)

// Manager saves, loads, and resets the state of every registered kind.
//
// A Manager is not safe for concurrent operations. See the package
// documentation for the calling rules.
type Manager struct {
	store   store.Store
	opts    Options
	logger  *slog.Logger
	entries *registry.Registry[string, entry]
}

// New creates a Manager that persists checkpoints in st.
func New(st store.Store, opts ...Option) *Manager {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Manager{
		store:   st,
		opts:    o,
		logger:  observability.EnrichLogger(logger, o.Slot),
		entries: registry.New[string, entry](),
	}
}

// Slot returns the storage slot this Manager reads and writes.
func (m *Manager) Slot() string { return m.opts.Slot }

// Kinds returns registered kinds in registration order.
func (m *Manager) Kinds() []string { return m.entries.Keys() }

// scheduler runs a storage step. The blocking operations run it inline;
// the async ones hand it to a goroutine.
type scheduler func(step func())

func inline(step func()) { step() }

func background(step func()) { go step() }

// Save produces every fragment and writes them as one checkpoint.
//
// Failed callbacks are recorded in the report and their kinds are left out.
// Save returns an error only when encoding, encryption, or the write fails,
// in which case the previously stored checkpoint is left untouched.
func (m *Manager) Save(ctx context.Context) (*Report, error) {
	var (
		report *Report
		err    error
	)
	m.save(ctx, inline, func(r *Report, e error) { report, err = r, e })
	return report, err
}

// SaveAsync is Save with the write on a background goroutine.
// Produce callbacks run before SaveAsync returns.
// The channel receives exactly one Result and is then closed.
func (m *Manager) SaveAsync(ctx context.Context) <-chan Result {
	out := make(chan Result, 1)
	m.save(ctx, background, deliver(out))
	return out
}

// Load reads the checkpoint and applies each fragment.
//
// A missing or unreadable checkpoint resets every kind instead. Load returns
// an error only if the storage read failed for a reason other than absence;
// state has already been reset when that happens.
func (m *Manager) Load(ctx context.Context) (*Report, error) {
	var (
		report *Report
		err    error
	)
	m.load(ctx, inline, func(r *Report, e error) { report, err = r, e })
	return report, err
}

// LoadAsync is Load with the read on a background goroutine.
// Apply and reset callbacks run on that goroutine.
// The channel receives exactly one Result and is then closed.
func (m *Manager) LoadAsync(ctx context.Context) <-chan Result {
	out := make(chan Result, 1)
	m.load(ctx, background, deliver(out))
	return out
}

// Reset runs every reset callback without touching storage.
func (m *Manager) Reset(ctx context.Context) *Report {
	start := time.Now()
	ctx, span := m.opts.Spans.StartOperationSpan(ctx, OperationReset, m.opts.Slot)

	report := newReport(OperationReset)
	m.resetAll(ctx, report, "requested")
	report.Outcome = OutcomeReset

	m.finish(ctx, span, report, start, nil)
	return report
}

// Exists reports whether a checkpoint is stored in the slot.
func (m *Manager) Exists(ctx context.Context) (bool, error) {
	if m.store == nil {
		return false, ErrNoStore
	}
	res := ckerrors.WithRetryContext(ctx, m.opts.Retry, func(ctx context.Context) (bool, error) {
		return m.store.Exists(ctx, m.opts.Slot)
	})
	return res.Value, res.Err
}

// Delete removes the stored checkpoint. Deleting an empty slot is not an error.
func (m *Manager) Delete(ctx context.Context) error {
	if m.store == nil {
		return ErrNoStore
	}
	res := ckerrors.Do(ctx, m.opts.Retry, func(ctx context.Context) error {
		return m.store.Delete(ctx, m.opts.Slot)
	})
	if res.Err != nil {
		observability.LogStorageError(m.logger, "delete", res.Err)
		return fmt.Errorf("delete checkpoint: %w", res.Err)
	}
	return nil
}

func deliver(out chan<- Result) func(*Report, error) {
	return func(r *Report, err error) {
		out <- Result{Report: r, Err: err}
		close(out)
	}
}

// save is the single save algorithm. Callbacks, encoding, and encryption run
// on the caller's goroutine; the write runs under sched.
func (m *Manager) save(ctx context.Context, sched scheduler, done func(*Report, error)) {
	start := time.Now()
	ctx, span := m.opts.Spans.StartOperationSpan(ctx, OperationSave, m.opts.Slot)
	report := newReport(OperationSave)

	fail := func(stage string, err error) {
		observability.LogStorageError(m.logger, stage, err)
		report.Outcome = OutcomeFailed
		report.Cause = err
		err = fmt.Errorf("save checkpoint: %s: %w", stage, err)
		m.finish(ctx, span, report, start, err)
		done(report, err)
	}

	if m.store == nil {
		fail("write", ErrNoStore)
		return
	}

	env := m.produceAll(ctx, report)
	if m.opts.SortFragments {
		env.SortByKind()
	}
	report.EnvelopeID = env.ID

	encoded, err := m.opts.Codec.Marshal(env)
	if err != nil {
		fail("encode", err)
		return
	}
	sealed, err := m.opts.Encryptor.Encrypt(encoded)
	if err != nil {
		fail("encrypt", err)
		return
	}

	sched(func() {
		res := ckerrors.Do(ctx, m.opts.Retry, func(ctx context.Context) error {
			return m.store.Write(ctx, m.opts.Slot, sealed)
		})
		if res.Err != nil {
			fail("write", res.Err)
			return
		}

		report.Outcome = OutcomeSaved
		report.Bytes = len(sealed)
		m.opts.Metrics.RecordCheckpointSize(ctx, m.opts.Slot, int64(len(sealed)))
		observability.LogSaved(m.logger, env.ID, len(env.Fragments), len(sealed), msSince(start))
		m.finish(ctx, span, report, start, nil)
		done(report, nil)
	})
}

// load is the single load algorithm. The read runs under sched; decoding and
// callbacks follow on the same goroutine.
func (m *Manager) load(ctx context.Context, sched scheduler, done func(*Report, error)) {
	start := time.Now()
	ctx, span := m.opts.Spans.StartOperationSpan(ctx, OperationLoad, m.opts.Slot)
	report := newReport(OperationLoad)

	if m.store == nil {
		report.Outcome = OutcomeFailed
		report.Cause = ErrNoStore
		m.finish(ctx, span, report, start, ErrNoStore)
		done(report, ErrNoStore)
		return
	}

	sched(func() {
		res := ckerrors.WithRetryContext(ctx, m.opts.Retry, func(ctx context.Context) ([]byte, error) {
			return m.store.Read(ctx, m.opts.Slot)
		})
		err := m.restore(ctx, report, res.Value, res.Err, start)
		m.finish(ctx, span, report, start, err)
		done(report, err)
	})
}

// restore turns the result of a storage read into applied or reset state.
func (m *Manager) restore(ctx context.Context, report *Report, data []byte, readErr error, start time.Time) error {
	if readErr != nil {
		if errors.Is(readErr, store.ErrNotFound) {
			observability.LogNoCheckpoint(m.logger)
			m.opts.Spans.AddSpanEvent(ctx, "checkpoint.missing")
			m.resetAll(ctx, report, "no checkpoint")
			report.Outcome = OutcomeColdStart
			return nil
		}
		observability.LogStorageError(m.logger, "read", readErr)
		m.resetAll(ctx, report, "storage error")
		report.Outcome = OutcomeFailed
		report.Cause = readErr
		return fmt.Errorf("load checkpoint: read: %w", readErr)
	}

	report.Bytes = len(data)
	env, err := m.open(data)
	if err != nil {
		observability.LogCorrupted(m.logger, err)
		m.opts.Spans.AddSpanEvent(ctx, "checkpoint.corrupted", attribute.String("error", err.Error()))
		m.resetAll(ctx, report, "corrupted checkpoint")
		report.Outcome = OutcomeRecovered
		report.Cause = err
		return nil
	}

	report.EnvelopeID = env.ID
	m.applyAll(ctx, report, env)
	report.Outcome = OutcomeLoaded
	observability.LogLoaded(m.logger, env.ID, len(env.Fragments), msSince(start))
	return nil
}

// open decrypts and decodes a stored blob.
// Any failure here means the checkpoint itself is unusable.
func (m *Manager) open(data []byte) (*codec.Envelope, error) {
	plain, err := m.opts.Encryptor.Decrypt(data)
	if err != nil {
		return nil, ckerrors.Corrupt(err, "decrypt")
	}
	env, err := m.opts.Codec.Unmarshal(plain)
	if err != nil {
		return nil, ckerrors.Corrupt(err, "decode")
	}
	return env, nil
}

// produceAll calls every produce callback once and collects the results.
func (m *Manager) produceAll(ctx context.Context, report *Report) *codec.Envelope {
	env := codec.NewEnvelope()
	m.entries.Range(func(kind string, e entry) bool {
		var (
			value   any
			present bool
		)
		err := m.invoke(ctx, kind, OpProduce, func() error {
			var err error
			value, present, err = e.produce()
			return err
		})
		switch {
		case err != nil:
			report.fail(kind, err)
		case !present:
			report.Absent = append(report.Absent, kind)
		default:
			// Kinds are unique in the registry, so Add cannot fail.
			_ = env.Add(kind, value)
			report.Kinds = append(report.Kinds, kind)
		}
		return true
	})
	return env
}

// applyAll routes each fragment to its kind's apply callback, in envelope order.
func (m *Manager) applyAll(ctx context.Context, report *Report, env *codec.Envelope) {
	for _, f := range env.Fragments {
		e, ok := m.entries.Get(f.Kind)
		if !ok {
			observability.LogMissingHandler(m.logger, f.Kind)
			m.opts.Spans.AddSpanEvent(ctx, "checkpoint.missing_handler", attribute.String("kind", f.Kind))
			report.Skipped = append(report.Skipped, f.Kind)
			continue
		}
		value := f.Value
		if err := m.invoke(ctx, f.Kind, OpApply, func() error { return e.apply(value) }); err != nil {
			report.fail(f.Kind, err)
			continue
		}
		report.Kinds = append(report.Kinds, f.Kind)
	}
}

// resetAll calls every reset callback. Kinds without one are skipped.
func (m *Manager) resetAll(ctx context.Context, report *Report, reason string) {
	count := 0
	m.entries.Range(func(kind string, e entry) bool {
		if e.reset == nil {
			return true
		}
		count++
		if err := m.invoke(ctx, kind, OpReset, e.reset); err != nil {
			report.fail(kind, err)
			return true
		}
		report.Kinds = append(report.Kinds, kind)
		return true
	})
	observability.LogReset(m.logger, count, reason)
}

// invoke runs one callback with panic recovery.
// Failures are logged and counted here and returned to the caller for the report.
func (m *Manager) invoke(ctx context.Context, kind, op string, fn func() error) (err error) {
	_, span := m.opts.Spans.StartFragmentSpan(ctx, kind, op)

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				Kind:  kind,
				Op:    op,
				Value: r,
				Stack: string(debug.Stack()),
			}
		}
		if err != nil {
			observability.LogFragmentError(m.logger, kind, op, err)
			m.opts.Metrics.RecordFragmentFailure(ctx, kind, op)
		}
		m.opts.Spans.EndSpanWithError(span, err)
	}()

	if cbErr := fn(); cbErr != nil {
		return &FragmentError{Kind: kind, Op: op, Err: cbErr}
	}
	return nil
}

// finish records the operation's duration, metrics, and span status.
func (m *Manager) finish(ctx context.Context, span trace.Span, report *Report, start time.Time, err error) {
	report.Duration = time.Since(start)
	m.opts.Metrics.RecordOperation(ctx, report.Op, string(report.Outcome), report.Duration)
	m.opts.Spans.EndSpanWithError(span, err)
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
