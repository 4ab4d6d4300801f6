// Package store provides the storage location that holds the latest checkpoint.
//
// A Store maps slot names to opaque blobs. Each slot holds exactly one
// checkpoint: Write replaces it wholesale and readers see either the old or
// the new blob, never a mix.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store persists checkpoint blobs by slot.
// Implementations must be safe for concurrent use.
type Store interface {
	// Write replaces the blob in slot atomically.
	Write(ctx context.Context, slot string, data []byte) error

	// Read returns the blob in slot.
	// Returns ErrNotFound if the slot is empty.
	Read(ctx context.Context, slot string) ([]byte, error)

	// Exists reports whether slot holds a blob.
	Exists(ctx context.Context, slot string) (bool, error)

	// Delete empties slot.
	// Returns nil if the slot is already empty.
	Delete(ctx context.Context, slot string) error

	// List returns metadata for every non-empty slot, ordered by slot name.
	List(ctx context.Context) ([]Info, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides metadata without loading the blob.
type Info struct {
	Slot      string
	Size      int64
	UpdatedAt time.Time
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates the slot holds no checkpoint.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")

	// ErrInvalidSlot indicates a slot name that cannot be stored.
	ErrInvalidSlot = errors.New("invalid checkpoint slot")

	// ErrBusy indicates the backend is temporarily locked by another writer.
	ErrBusy = errors.New("checkpoint store busy")
)

// ValidateSlot rejects empty names and names that would escape a directory.
func ValidateSlot(slot string) error {
	if strings.TrimSpace(slot) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSlot)
	}
	if strings.ContainsAny(slot, `/\`) || slot == "." || slot == ".." || strings.ContainsRune(slot, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	return nil
}
