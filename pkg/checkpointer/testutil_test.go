package checkpointer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/checkpointer/pkg/checkpointer"
	"github.com/randalmurphal/checkpointer/pkg/checkpointer/store"
)

// Fragment types used across tests.
type (
	Progress struct {
		Level int    `json:"level" yaml:"level"`
		Zone  string `json:"zone" yaml:"zone"`
	}
	Inventory struct {
		Items []string `json:"items" yaml:"items"`
		Gold  int      `json:"gold" yaml:"gold"`
	}
	Settings struct {
		Volume float64 `json:"volume" yaml:"volume"`
		Muted  bool    `json:"muted" yaml:"muted"`
	}
)

// subsystem is a fake state owner that counts its callbacks.
type subsystem[T any] struct {
	state    T
	defaults T

	produceErr   error
	producePanic bool
	applyErr     error
	resetErr     error
	absent       bool

	produced int
	applied  []T
	resets   int
}

func newSubsystem[T any](state, defaults T) *subsystem[T] {
	return &subsystem[T]{state: state, defaults: defaults}
}

func (s *subsystem[T]) register(t *testing.T, m *checkpointer.Manager, kind string) {
	t.Helper()
	require.NoError(t, checkpointer.Register(m, kind, s.produce, s.apply, s.reset))
}

func (s *subsystem[T]) produce() (*T, error) {
	s.produced++
	if s.producePanic {
		panic("produce exploded")
	}
	if s.produceErr != nil {
		return nil, s.produceErr
	}
	if s.absent {
		return nil, nil
	}
	v := s.state
	return &v, nil
}

func (s *subsystem[T]) apply(v T) error {
	if s.applyErr != nil {
		return s.applyErr
	}
	s.applied = append(s.applied, v)
	s.state = v
	return nil
}

func (s *subsystem[T]) reset() error {
	s.resets++
	if s.resetErr != nil {
		return s.resetErr
	}
	s.state = s.defaults
	return nil
}

// world is the set of three subsystems most tests register as A, B, C.
type world struct {
	progress  *subsystem[Progress]
	inventory *subsystem[Inventory]
	settings  *subsystem[Settings]
}

func newWorld() *world {
	return &world{
		progress:  newSubsystem(Progress{Level: 7, Zone: "caves"}, Progress{Level: 1}),
		inventory: newSubsystem(Inventory{Items: []string{"sword", "rope"}, Gold: 42}, Inventory{}),
		settings:  newSubsystem(Settings{Volume: 0.5, Muted: true}, Settings{Volume: 1}),
	}
}

// emptyWorld has distinct state so applied values are observable.
func emptyWorld() *world {
	return &world{
		progress:  newSubsystem(Progress{}, Progress{Level: 1}),
		inventory: newSubsystem(Inventory{}, Inventory{}),
		settings:  newSubsystem(Settings{}, Settings{Volume: 1}),
	}
}

func (w *world) register(t *testing.T, m *checkpointer.Manager) {
	t.Helper()
	w.progress.register(t, m, "Progress")
	w.inventory.register(t, m, "Inventory")
	w.settings.register(t, m, "Settings")
}

func (w *world) totalResets() int {
	return w.progress.resets + w.inventory.resets + w.settings.resets
}

func (w *world) totalApplied() int {
	return len(w.progress.applied) + len(w.inventory.applied) + len(w.settings.applied)
}

// logCapture collects JSON log records.
type logCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func newLogCapture() (*slog.Logger, *logCapture) {
	c := &logCapture{}
	return slog.New(slog.NewJSONHandler(c, &slog.HandlerOptions{Level: slog.LevelDebug})), c
}

func (c *logCapture) records() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []map[string]any
	for _, line := range bytes.Split(c.buf.Bytes(), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(line, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// find returns the first record with msg, or nil.
func (c *logCapture) find(msg string) map[string]any {
	for _, r := range c.records() {
		if r["msg"] == msg {
			return r
		}
	}
	return nil
}

// faultyStore wraps a store and injects errors.
type faultyStore struct {
	store.Store

	mu         sync.Mutex
	readErr    error
	writeErrs  []error
	readCalls  int
	writeCalls int
}

func (f *faultyStore) Read(ctx context.Context, slot string) ([]byte, error) {
	f.mu.Lock()
	f.readCalls++
	err := f.readErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Store.Read(ctx, slot)
}

func (f *faultyStore) Write(ctx context.Context, slot string, data []byte) error {
	f.mu.Lock()
	f.writeCalls++
	var err error
	if len(f.writeErrs) > 0 {
		err, f.writeErrs = f.writeErrs[0], f.writeErrs[1:]
	}
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.Write(ctx, slot, data)
}

var errBoom = errors.New("boom")
