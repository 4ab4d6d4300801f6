package checkpointer

import (
	"errors"
	"fmt"
)

// Sentinel errors for registration.
var (
	// ErrInvalidKind indicates an empty kind name.
	ErrInvalidKind = errors.New("checkpoint kind must not be empty")

	// ErrNilCallback indicates Register was called without produce or apply.
	ErrNilCallback = errors.New("produce and apply callbacks are required")

	// ErrDuplicateKind indicates a kind was registered twice.
	ErrDuplicateKind = errors.New("checkpoint kind already registered")
)

// Sentinel errors for operations.
var (
	// ErrNoStore indicates the Manager was created without a store.
	ErrNoStore = errors.New("checkpoint store not configured")

	// ErrFragmentType indicates apply received a value of the wrong type.
	ErrFragmentType = errors.New("fragment has unexpected type")
)

// Callback operation names used in errors, logs, and metrics.
const (
	OpProduce = "produce"
	OpApply   = "apply"
	OpReset   = "reset"
)

// FragmentError wraps an error returned by one kind's callback.
type FragmentError struct {
	// Kind is the fragment kind whose callback failed.
	Kind string
	// Op is the callback that failed ("produce", "apply", "reset").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *FragmentError) Error() string {
	return fmt.Sprintf("fragment %s: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *FragmentError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic raised by a callback.
// It includes the stack trace for debugging.
type PanicError struct {
	// Kind is the fragment kind whose callback panicked.
	Kind string
	// Op is the callback that panicked.
	Op string
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("fragment %s: %s panicked: %v", e.Kind, e.Op, e.Value)
}
