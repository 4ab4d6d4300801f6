package cli

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/checkpointer/pkg/checkpointer/encrypt"
)

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the checkpoint in the slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Delete(cmd.Context(), s.Slot); err != nil {
				return fmt.Errorf("delete %s: %w", s.Slot, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", s.Slot)
			return nil
		},
	}
}

type slotView struct {
	Slot      string    `json:"slot"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored checkpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			infos, err := st.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list: %w", err)
			}

			w := cmd.OutOrStdout()
			if opts.format == "text" {
				for _, info := range infos {
					fmt.Fprintf(w, "%-24s %8d  %s\n", info.Slot, info.Size, info.UpdatedAt.Format(time.RFC3339))
				}
				return nil
			}
			views := make([]slotView, 0, len(infos))
			for _, info := range infos {
				views = append(views, slotView(info))
			}
			b, err := json.MarshalIndent(views, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(w, string(b))
			return nil
		},
	}
}

func newKeygenCmd(opts *options) *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a key and IV for the fixed strategy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch size {
			case 16, 24, 32:
			default:
				return fmt.Errorf("%w: %d", encrypt.ErrInvalidKeySize, size)
			}
			key, err := encrypt.GenerateKey(size)
			if err != nil {
				return err
			}
			iv, err := encrypt.GenerateKey(16)
			if err != nil {
				return err
			}
			defer encrypt.ZeroKey(key)

			w := cmd.OutOrStdout()
			if opts.format == "text" {
				fmt.Fprintf(w, "key: hex:%s\niv:  hex:%s\n", hex.EncodeToString(key), hex.EncodeToString(iv))
				return nil
			}
			b, err := json.MarshalIndent(map[string]string{
				"key": "hex:" + hex.EncodeToString(key),
				"iv":  "hex:" + hex.EncodeToString(iv),
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(w, string(b))
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "size", 32, "Key size in bytes: 16, 24, or 32")
	return cmd
}
