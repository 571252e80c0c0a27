package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	Database string
	Fixtures string
	Capacity uint64
	LogLevel string
	HTTPAddr string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the bequest CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "bequest",
		Short: "bequest - conditional asset-release plans",
		Long: `Create and manage asset-release plans: a creator names beneficiaries and
their shares, an oracle attests that the release conditions hold, and each
beneficiary claims their share exactly once.

Global settings are read from the environment and may be overridden by flags:
  BEQUEST_DB             SQLite database path (--db)
  BEQUEST_FIXTURES       collaborator fixtures file (--fixtures)
  BEQUEST_PLAN_CAPACITY  maximum number of plans (--capacity)
  BEQUEST_HTTP_ADDR      listen address for serve (--addr)
  BEQUEST_LOG_LEVEL      debug|info|warn|error`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return applyEnv(cmd, opts)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.PersistentFlags().StringVar(&opts.Fixtures, "fixtures", "", "collaborator fixtures file (YAML)")
	cmd.PersistentFlags().Uint64Var(&opts.Capacity, "capacity", 0, "plan capacity to store on startup (0 keeps the stored value)")

	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewClaimCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
