package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// JSON encodes envelopes as JSON documents:
//
//	{"id":"...","version":1,"created_at":"...","fragments":[{"kind":"Inventory","data":{...}}]}
type JSON struct {
	// Indent pretty-prints the output when non-empty.
	Indent string
}

var _ Codec = JSON{}

type jsonEnvelope struct {
	ID        string         `json:"id"`
	Version   int            `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	Fragments []jsonFragment `json:"fragments"`
}

type jsonFragment struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// rawJSON is a fragment value read back from a JSON envelope.
type rawJSON json.RawMessage

// Decode implements Payload.
func (r rawJSON) Decode(v any) error {
	return json.Unmarshal(r, v)
}

// MarshalJSON lets a decoded envelope be re-encoded unchanged.
func (r rawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// Name implements Codec.
func (JSON) Name() string { return "json" }

// Marshal implements Codec.
func (c JSON) Marshal(env *Envelope) ([]byte, error) {
	wire := jsonEnvelope{
		ID:        env.ID,
		Version:   env.Version,
		CreatedAt: env.CreatedAt,
		Fragments: make([]jsonFragment, 0, len(env.Fragments)),
	}
	for _, f := range env.Fragments {
		data, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("encode fragment %s: %w", f.Kind, err)
		}
		wire.Fragments = append(wire.Fragments, jsonFragment{Kind: f.Kind, Data: data})
	}
	if c.Indent != "" {
		return json.MarshalIndent(wire, "", c.Indent)
	}
	return json.Marshal(wire)
}

// Unmarshal implements Codec.
func (JSON) Unmarshal(data []byte) (*Envelope, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}
	var wire jsonEnvelope
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	env := &Envelope{
		ID:        wire.ID,
		Version:   wire.Version,
		CreatedAt: wire.CreatedAt,
		Fragments: make([]Fragment, 0, len(wire.Fragments)),
	}
	for _, f := range wire.Fragments {
		env.Fragments = append(env.Fragments, Fragment{Kind: f.Kind, Value: rawJSON(f.Data)})
	}
	if err := validate(env); err != nil {
		return nil, err
	}
	return env, nil
}
