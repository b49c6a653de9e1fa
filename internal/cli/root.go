package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/ledgerflow/internal/compute"
	"github.com/roach88/ledgerflow/internal/ledger"
	"github.com/roach88/ledgerflow/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// ConfigPath is an optional YAML configuration file.
	ConfigPath string

	// Driver and LedgerPath override the config file's ledger section.
	Driver     string
	LedgerPath string

	// Ledger, Backend, IDs and Clock replace the configured collaborators
	// (for testing). Nil means use the configuration.
	Ledger  ledger.Client
	Backend compute.Backend
	IDs     store.IDGenerator
	Clock   store.Clock
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ledgerflow CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledgerflow",
		Short: "ledgerflow - analysis records over a key/value ledger",
		Long: `Register analysis records in a flat key/value ledger, drive them through
the Processing -> Completed | Failed workflow and list them newest first.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Driver, "ledger", "", "ledger driver (memory|sqlite|pebble|postgres|s3)")
	cmd.PersistentFlags().StringVar(&opts.LedgerPath, "ledger-path", "", "ledger file (sqlite) or directory (pebble)")

	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewAdvanceCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
