package codec

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// YAML encodes envelopes as YAML documents. Fragment values are
// marshaled with yaml.v3, so subsystems control field names with yaml tags.
type YAML struct{}

var _ Codec = YAML{}

type yamlEnvelopeOut struct {
	ID        string            `yaml:"id"`
	Version   int               `yaml:"version"`
	CreatedAt time.Time         `yaml:"created_at"`
	Fragments []yamlFragmentOut `yaml:"fragments"`
}

type yamlFragmentOut struct {
	Kind string `yaml:"kind"`
	Data any    `yaml:"data"`
}

type yamlEnvelopeIn struct {
	ID        string           `yaml:"id"`
	Version   int              `yaml:"version"`
	CreatedAt time.Time        `yaml:"created_at"`
	Fragments []yamlFragmentIn `yaml:"fragments"`
}

type yamlFragmentIn struct {
	Kind string    `yaml:"kind"`
	Data yaml.Node `yaml:"data"`
}

// yamlNode is a fragment value read back from a YAML envelope.
type yamlNode struct {
	node *yaml.Node
}

// Decode implements Payload.
func (n yamlNode) Decode(v any) error {
	if n.node == nil || n.node.Kind == 0 {
		return nil
	}
	return n.node.Decode(v)
}

// MarshalYAML lets a decoded envelope be re-encoded unchanged.
func (n yamlNode) MarshalYAML() (any, error) {
	return n.node, nil
}

// Name implements Codec.
func (YAML) Name() string { return "yaml" }

// Marshal implements Codec. yaml.v3 panics on values it cannot represent,
// such as channels and funcs; those are returned as errors.
func (YAML) Marshal(env *Envelope) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("encode envelope: %v", r)
		}
	}()

	wire := yamlEnvelopeOut{
		ID:        env.ID,
		Version:   env.Version,
		CreatedAt: env.CreatedAt,
		Fragments: make([]yamlFragmentOut, 0, len(env.Fragments)),
	}
	for _, f := range env.Fragments {
		wire.Fragments = append(wire.Fragments, yamlFragmentOut{Kind: f.Kind, Data: f.Value})
	}
	out, err = yaml.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return out, nil
}

// Unmarshal implements Codec.
func (YAML) Unmarshal(data []byte) (*Envelope, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}
	var wire yamlEnvelopeIn
	if err := yaml.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	env := &Envelope{
		ID:        wire.ID,
		Version:   wire.Version,
		CreatedAt: wire.CreatedAt,
		Fragments: make([]Fragment, 0, len(wire.Fragments)),
	}
	for i := range wire.Fragments {
		node := wire.Fragments[i].Data
		env.Fragments = append(env.Fragments, Fragment{Kind: wire.Fragments[i].Kind, Value: yamlNode{node: &node}})
	}
	if err := validate(env); err != nil {
		return nil, err
	}
	return env, nil
}
