package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newDecryptCmd(opts *options) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Write the decrypted checkpoint to stdout or a file",
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
			raw, err := st.Read(cmd.Context(), s.Slot)
			if err != nil {
				return fmt.Errorf("read %s: %w", s.Slot, err)
			}
			plain, err := enc.Decrypt(raw)
			if err != nil {
				return fmt.Errorf("decrypt: %w", err)
			}

			if outPath == "" || outPath == "-" {
				_, err = cmd.OutOrStdout().Write(plain)
				return err
			}
			return os.WriteFile(outPath, plain, 0o600)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default: stdout)")
	return cmd
}

func newEncryptCmd(opts *options) *cobra.Command {
	var inPath string

	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a plaintext checkpoint and store it in the slot",
		Long:  "Reads a plaintext envelope (as written by decrypt), checks that it decodes with the configured codec, encrypts it, and replaces the slot.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				plain []byte
				err   error
			)
			if inPath == "" || inPath == "-" {
				plain, err = io.ReadAll(cmd.InOrStdin())
			} else {
				plain, err = os.ReadFile(inPath)
			}
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			s, st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			c, err := s.NewCodec()
			if err != nil {
				return err
			}
			if _, err := c.Unmarshal(plain); err != nil {
				return fmt.Errorf("input is not a valid %s checkpoint: %w", c.Name(), err)
			}

			enc, err := s.Encryptor()
			if err != nil {
				return err
			}
			sealed, err := enc.Encrypt(plain)
			if err != nil {
				return fmt.Errorf("encrypt: %w", err)
			}
			if err := st.Write(cmd.Context(), s.Slot, sealed); err != nil {
				return fmt.Errorf("write %s: %w", s.Slot, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes, %s)\n", s.Slot, len(sealed), enc.Name())
			return nil
		},
	}

	cmd.Flags().StringVarP(&inPath, "in", "i", "", "Input file (default: stdin)")
	return cmd
}
