package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/keycore/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Keymap   string                     `json:"keymap,omitempty"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.ValidationError `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <keymap-dir>",
		Short: "Validate a keymap without writing output",
		Long: `Validate a CUE keymap package.

Compiles the keymap and checks layer grids, layer references and macro
definitions. Warnings are reported but do not fail validation.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, keymapDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, err := LoadKeymapDir(keymapDir)
	if err != nil {
		code, message := loadErrorParts(err)
		return formatter.Fail(ExitCommandError, code, message)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, keymapDir)

	result := splitFindings(loaded)
	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// splitFindings separates validation errors from warnings.
func splitFindings(loaded *LoadResult) ValidationResult {
	result := ValidationResult{Valid: loaded.Valid(), Keymap: loaded.Keymap.Name}
	for _, f := range loaded.Findings {
		if f.Warning {
			result.Warnings = append(result.Warnings, f)
		} else {
			result.Errors = append(result.Errors, f)
		}
	}
	return result
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Keymap %s valid\n", result.Keymap)
	printFindings(formatter, result.Warnings)
	return nil
}

// outputValidationErrors outputs every finding for an invalid keymap.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.Format == "json" {
		first := result.Errors[0]
		if err := formatter.Report(result, first.Code, first.Message); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	printFindings(formatter, result.Errors)
	printFindings(formatter, result.Warnings)

	return failure
}

func printFindings(formatter *OutputFormatter, findings []compiler.ValidationError) {
	for _, f := range findings {
		fmt.Fprintf(formatter.Writer, "  %s\n", f.Error())
	}
}
