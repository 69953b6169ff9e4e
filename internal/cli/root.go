package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// DB is the KEYCORE_DB default for commands with a --db flag.
	DB string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the keycore CLI.
func NewRootCommand() *cobra.Command {
	cfg, cfgErr := LoadConfig()
	opts := &RootOptions{DB: cfg.DB}

	cmd := &cobra.Command{
		Use:   "keycore",
		Short: "keycore - keyboard firmware core",
		Long: `Compile keymaps, drive the scan-tick engine and inspect its tick log.

Keymaps are CUE packages describing layers and macros. The engine turns
matrix snapshots into key events, layer changes and indicator states.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgErr != nil {
				return NewExitError(ExitCommandError, cfgErr.Error())
			}
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", cfg.Verbose, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", cfg.Format, "output format (json|text)")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTriggerCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// newFormatter builds the formatter every command writes through.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// addDBFlag registers --db with the KEYCORE_DB default. The flag is required
// only when the environment does not supply one.
func addDBFlag(cmd *cobra.Command, target *string, opts *RootOptions) {
	cmd.Flags().StringVar(target, "db", opts.DB, "path to SQLite database")
	if opts.DB == "" {
		_ = cmd.MarkFlagRequired("db")
	}
}
