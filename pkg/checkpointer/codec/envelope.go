// Package codec defines the snapshot envelope and the codecs that turn it into bytes.
package codec

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Version is the current envelope format version.
// Increment when making breaking changes to the wire layout.
const Version = 1

// Sentinel errors for envelope encoding and decoding.
var (
	// ErrMalformed indicates the bytes are not a valid envelope.
	ErrMalformed = errors.New("codec: malformed envelope")

	// ErrUnsupportedVersion indicates the envelope was written by an incompatible format.
	ErrUnsupportedVersion = errors.New("codec: unsupported envelope version")

	// ErrDuplicateFragment indicates two fragments share a kind.
	ErrDuplicateFragment = errors.New("codec: duplicate fragment kind")

	// ErrUnknownCodec indicates ByName was given an unregistered name.
	ErrUnknownCodec = errors.New("codec: unknown codec")
)

// Envelope is one checkpoint: an ordered collection of typed fragments.
// It is built fresh for every save and discarded after encoding.
type Envelope struct {
	ID        string
	Version   int
	CreatedAt time.Time
	Fragments []Fragment
}

// Fragment is one subsystem's piece of a checkpoint.
//
// On the save path Value holds whatever the subsystem produced.
// On the load path Value is a Payload that still has to be decoded
// into the subsystem's concrete type.
type Fragment struct {
	Kind  string
	Value any
}

// Payload is an undecoded fragment value read back from storage.
// Decoding is deferred so a broken fragment only affects its own kind.
type Payload interface {
	Decode(v any) error
}

// Codec serializes envelopes.
type Codec interface {
	// Name returns the codec identifier used in configuration ("json", "yaml").
	Name() string

	// Marshal encodes an envelope, tagging every fragment with its kind.
	Marshal(env *Envelope) ([]byte, error)

	// Unmarshal decodes an envelope. Fragment values are Payloads.
	Unmarshal(data []byte) (*Envelope, error)
}

// NewEnvelope creates an empty envelope with a fresh ID.
func NewEnvelope() *Envelope {
	return &Envelope{
		ID:        uuid.New().String(),
		Version:   Version,
		CreatedAt: time.Now().UTC(),
	}
}

// Add appends a fragment. It returns ErrDuplicateFragment if kind is already present.
func (e *Envelope) Add(kind string, value any) error {
	if e.Has(kind) {
		return fmt.Errorf("%w: %s", ErrDuplicateFragment, kind)
	}
	e.Fragments = append(e.Fragments, Fragment{Kind: kind, Value: value})
	return nil
}

// Has reports whether a fragment of kind is present.
func (e *Envelope) Has(kind string) bool {
	for _, f := range e.Fragments {
		if f.Kind == kind {
			return true
		}
	}
	return false
}

// Kinds returns fragment kinds in envelope order.
func (e *Envelope) Kinds() []string {
	kinds := make([]string, len(e.Fragments))
	for i, f := range e.Fragments {
		kinds[i] = f.Kind
	}
	return kinds
}

// SortByKind orders fragments by kind so identical state encodes identically.
func (e *Envelope) SortByKind() {
	sort.SliceStable(e.Fragments, func(i, j int) bool {
		return e.Fragments[i].Kind < e.Fragments[j].Kind
	})
}

// validate checks the invariants shared by every codec after decoding.
func validate(env *Envelope) error {
	if env.Version != Version {
		return fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, env.Version, Version)
	}
	seen := make(map[string]struct{}, len(env.Fragments))
	for i, f := range env.Fragments {
		if strings.TrimSpace(f.Kind) == "" {
			return fmt.Errorf("%w: fragment %d has no kind", ErrMalformed, i)
		}
		if _, ok := seen[f.Kind]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateFragment, f.Kind)
		}
		seen[f.Kind] = struct{}{}
	}
	return nil
}

// ByName returns the codec registered under name.
// An empty name selects JSON.
func ByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return JSON{}, nil
	case "yaml", "yml":
		return YAML{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, name)
	}
}
