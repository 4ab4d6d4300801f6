// Package cli implements the checkpointctl commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/checkpointer/pkg/checkpointer/config"
	"github.com/randalmurphal/checkpointer/pkg/checkpointer/store"
)

// options holds the persistent flags shared by every command.
type options struct {
	configPath string
	slot       string
	format     string
}

// NewRootCmd builds the checkpointctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "checkpointctl",
		Short:         "Inspect and manage checkpoint files",
		Long:          "Operator tool for checkpoints written by checkpointer. Reads the same YAML/JSON settings file as the application.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Settings file (default: $CHECKPOINT_CONFIG)")
	root.PersistentFlags().StringVarP(&opts.slot, "slot", "s", "", "Slot name (overrides store.slot)")
	root.PersistentFlags().StringVarP(&opts.format, "format", "f", "json", "Output format: json or text")

	root.AddCommand(
		newInspectCmd(opts),
		newDecryptCmd(opts),
		newEncryptCmd(opts),
		newDeleteCmd(opts),
		newListCmd(opts),
		newKeygenCmd(opts),
	)
	return root
}

// Execute runs the CLI and returns a process exit code.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// settings loads the settings file and applies flag overrides.
func (o *options) settings() (config.Settings, error) {
	path := o.configPath
	if path == "" {
		path = os.Getenv("CHECKPOINT_CONFIG")
	}

	var (
		s   config.Settings
		err error
	)
	if path == "" {
		s, err = config.Decode(config.New(nil))
	} else {
		s, err = config.Load(path)
	}
	if err != nil {
		return config.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	if o.slot != "" {
		if err := store.ValidateSlot(o.slot); err != nil {
			return config.Settings{}, err
		}
		s.Slot = o.slot
	}
	return s, nil
}

// openStore loads settings and opens their store. The caller closes the store.
func (o *options) openStore() (config.Settings, store.Store, error) {
	s, err := o.settings()
	if err != nil {
		return config.Settings{}, nil, err
	}
	st, err := s.OpenStore()
	if err != nil {
		return config.Settings{}, nil, fmt.Errorf("open store: %w", err)
	}
	return s, st, nil
}
