// Package errors classifies checkpoint failures and retries the transient ones.
//
// Save and load degrade rather than abort, so the question for every failure
// is what kind of degradation applies:
//   - Transient: storage was briefly unavailable; retrying may help
//   - Permanent: storage or configuration is broken; retrying will not help
//   - Corrupt: the stored checkpoint cannot be decrypted or decoded; fall back to defaults
package errors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/randalmurphal/checkpointer/pkg/checkpointer/codec"
	"github.com/randalmurphal/checkpointer/pkg/checkpointer/encrypt"
	"github.com/randalmurphal/checkpointer/pkg/checkpointer/store"
)

// Category represents how an error should be handled.
type Category int

const (
	// CategoryTransient indicates retry will likely help.
	// Example: a locked SQLite database.
	CategoryTransient Category = iota

	// CategoryPermanent indicates retry won't help.
	// Examples: permission denied, closed store, cancelled context.
	CategoryPermanent

	// CategoryCorrupt indicates the stored checkpoint itself is unusable.
	// Examples: wrong key, truncated ciphertext, malformed envelope.
	CategoryCorrupt
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	case CategoryCorrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with its category and context.
type CategorizedError struct {
	// Err is the underlying error.
	Err error

	// Category indicates how this error should be handled.
	Category Category

	// Retries is the number of attempts that have been made.
	Retries int

	// Context describes what operation was being attempted.
	Context string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s, attempts: %d)",
			e.Context, e.Err, e.Category, e.Retries)
	}
	return fmt.Sprintf("%s (category: %s, attempts: %d)",
		e.Err, e.Category, e.Retries)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// Corrupt marks err as a sign that the stored checkpoint is unusable.
func Corrupt(err error, context string) *CategorizedError {
	return &CategorizedError{Err: err, Category: CategoryCorrupt, Context: context}
}

// Categorize determines how an error should be handled.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent // shouldn't happen, fail safe
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CategoryPermanent
	case errors.Is(err, store.ErrBusy):
		return CategoryTransient
	case errors.Is(err, store.ErrStoreClosed), errors.Is(err, store.ErrInvalidSlot),
		errors.Is(err, fs.ErrPermission):
		return CategoryPermanent
	case errors.Is(err, encrypt.ErrDecryptionFailed), errors.Is(err, encrypt.ErrMalformedCiphertext),
		errors.Is(err, codec.ErrMalformed), errors.Is(err, codec.ErrUnsupportedVersion),
		errors.Is(err, codec.ErrDuplicateFragment):
		return CategoryCorrupt
	}

	// Unknown errors are permanent (fail safe)
	return CategoryPermanent
}

// IsRetryable reports whether the error should be retried.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}

// IsCorrupt reports whether the error means the stored checkpoint is unusable.
func IsCorrupt(err error) bool {
	return Categorize(err) == CategoryCorrupt
}
