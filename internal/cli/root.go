package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/waterfall/internal/config"
	"github.com/roach88/waterfall/internal/domain"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Database and Specs default to WATERFALL_DB and WATERFALL_SPECS.
	Database string
	Specs    string

	// SweepInterval defaults to WATERFALL_SWEEP_INTERVAL.
	SweepInterval time.Duration

	// Config is the environment configuration loaded before any command runs.
	Config config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the waterfall CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "waterfall",
		Short:   "Carrier waterfall engine",
		Version: domain.EngineVersion,
		Long: `Offer loads to carriers tier by tier.

Each load is matched to the waterfall serving its lane. Tier 1 carriers are
offered the load at once; when every tier 1 offer is declined or expired the
load escalates to tier 2, and so on, until a carrier accepts or the waterfall
is exhausted. Every transition is recorded in an append-only log.

Settings come from WATERFALL_* environment variables; flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true, // main prints the error once
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return applyConfig(cmd, opts)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $WATERFALL_DB)")
	cmd.PersistentFlags().StringVar(&opts.Specs, "specs", "", "directory of CUE waterfall definitions (default $WATERFALL_SPECS)")

	// Add subcommands
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewDispatchCommand(opts))
	cmd.AddCommand(NewRespondCommand(opts))
	cmd.AddCommand(NewTickCommand(opts))
	cmd.AddCommand(NewPauseCommand(opts))
	cmd.AddCommand(NewResumeCommand(opts))
	cmd.AddCommand(NewRetireCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// applyConfig loads environment configuration, fills in flags the user did
// not set and installs the process logger.
func applyConfig(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	opts.Config = cfg

	flags := cmd.Flags()
	if !flags.Changed("db") {
		opts.Database = cfg.DBPath
	}
	if !flags.Changed("specs") {
		opts.Specs = cfg.SpecsDir
	}
	if !flags.Changed("sweep-interval") {
		opts.SweepInterval = cfg.SweepInterval
	}

	// Logs go to stderr so JSON output on stdout stays parseable.
	slog.SetDefault(cfg.NewLogger(cmd.ErrOrStderr(), opts.Verbose))
	return nil
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

// newFormatter builds the output formatter for a command.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}
