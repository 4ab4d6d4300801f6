package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/checkpointer/pkg/checkpointer/codec"
)

type fragmentView struct {
	Kind string `json:"kind"`
	Data any    `json:"data,omitempty"`
}

type envelopeView struct {
	ID        string         `json:"id"`
	Slot      string         `json:"slot"`
	Version   int            `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	Bytes     int            `json:"bytes"`
	Encryptor string         `json:"encryptor"`
	Fragments []fragmentView `json:"fragments"`
}

func newInspectCmd(opts *options) *cobra.Command {
	var summary bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Decrypt and decode a checkpoint and print its fragments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			enc, err := s.Encryptor()
			if err != nil {
				return err
			}
			c, err := s.NewCodec()
			if err != nil {
				return err
			}

			raw, err := st.Read(cmd.Context(), s.Slot)
			if err != nil {
				return fmt.Errorf("read %s: %w", s.Slot, err)
			}
			plain, err := enc.Decrypt(raw)
			if err != nil {
				return fmt.Errorf("decrypt: %w", err)
			}
			env, err := c.Unmarshal(plain)
			if err != nil {
				return fmt.Errorf("decode: %w", err)
			}

			view := envelopeView{
				ID:        env.ID,
				Slot:      s.Slot,
				Version:   env.Version,
				CreatedAt: env.CreatedAt,
				Bytes:     len(raw),
				Encryptor: enc.Name(),
				Fragments: make([]fragmentView, 0, len(env.Fragments)),
			}
			for _, f := range env.Fragments {
				fv := fragmentView{Kind: f.Kind}
				if !summary {
					fv.Data = decodeAny(f.Value)
				}
				view.Fragments = append(view.Fragments, fv)
			}
			return printEnvelope(cmd.OutOrStdout(), opts.format, view)
		},
	}

	cmd.Flags().BoolVar(&summary, "summary", false, "Print fragment kinds without their data")
	return cmd
}

// decodeAny renders a payload generically; undecodable payloads print as an error string.
func decodeAny(value any) any {
	p, ok := value.(codec.Payload)
	if !ok {
		return value
	}
	var out any
	if err := p.Decode(&out); err != nil {
		return fmt.Sprintf("<undecodable: %v>", err)
	}
	return out
}

func printEnvelope(w io.Writer, format string, view envelopeView) error {
	if format == "text" {
		fmt.Fprintf(w, "slot:       %s\n", view.Slot)
		fmt.Fprintf(w, "id:         %s\n", view.ID)
		fmt.Fprintf(w, "version:    %d\n", view.Version)
		fmt.Fprintf(w, "created_at: %s\n", view.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(w, "bytes:      %d\n", view.Bytes)
		fmt.Fprintf(w, "encryptor:  %s\n", view.Encryptor)
		fmt.Fprintf(w, "fragments:  %d\n", len(view.Fragments))
		for _, f := range view.Fragments {
			fmt.Fprintf(w, "  - %s\n", f.Kind)
		}
		return nil
	}
	b, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
