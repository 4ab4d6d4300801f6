package checkpointer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/randalmurphal/checkpointer/pkg/checkpointer/codec"
	"github.com/randalmurphal/checkpointer/pkg/checkpointer/registry"
)

// entry is the type-erased form of one registration.
type entry struct {
	produce func() (value any, present bool, err error)
	apply   func(value any) error
	reset   func() error
}

// Register adds callbacks for kind.
//
// produce returns the current state; a nil pointer means there is nothing
// to save for this kind. apply receives the state read back from a
// checkpoint. reset may be nil if the kind has no default state to restore.
//
// Register must be called before the first Save or Load. It returns
// ErrDuplicateKind if kind is already registered.
//
// Example:
//
//	err := checkpointer.Register(mgr, "PlayerProgress",
//	    func() (*Progress, error) { return &progress, nil },
//	    func(p Progress) error { progress = p; return nil },
//	    func() error { progress = Progress{}; return nil },
//	)
func Register[T any](m *Manager, kind string, produce func() (*T, error), apply func(T) error, reset func() error) error {
	if strings.TrimSpace(kind) == "" {
		return ErrInvalidKind
	}
	if produce == nil || apply == nil {
		return fmt.Errorf("%w: %s", ErrNilCallback, kind)
	}

	e := entry{
		produce: func() (any, bool, error) {
			v, err := produce()
			if err != nil || v == nil {
				return nil, false, err
			}
			return *v, true, nil
		},
		apply: func(value any) error {
			switch v := value.(type) {
			case codec.Payload:
				var out T
				if err := v.Decode(&out); err != nil {
					return fmt.Errorf("decode fragment: %w", err)
				}
				return apply(out)
			case T:
				return apply(v)
			default:
				return fmt.Errorf("%w: %T", ErrFragmentType, value)
			}
		},
		reset: reset,
	}

	if err := m.entries.Add(kind, e); err != nil {
		if errors.Is(err, registry.ErrDuplicateKey) {
			return fmt.Errorf("%w: %s", ErrDuplicateKind, kind)
		}
		return err
	}
	return nil
}

// MustRegister is like Register but panics on error.
// Use it for registrations made during program initialization.
func MustRegister[T any](m *Manager, kind string, produce func() (*T, error), apply func(T) error, reset func() error) {
	if err := Register(m, kind, produce, apply, reset); err != nil {
		panic(err)
	}
}
