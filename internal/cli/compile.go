package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/keycore/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult summarises a compiled keymap.
type CompilationResult struct {
	Name     string          `json:"name"`
	Rows     int             `json:"rows"`
	Cols     int             `json:"cols"`
	Hash     string          `json:"hash"`
	Layers   []string        `json:"layers"`
	Macros   []CompiledMacro `json:"macros"`
	Warnings int             `json:"warnings"`
	Output   string          `json:"output,omitempty"`
}

// CompiledMacro is one macro in a CompilationResult.
type CompiledMacro struct {
	ID   ir.MacroID `json:"id"`
	Name string     `json:"name"`
	Kind string     `json:"kind"` // "held" or "script"
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <keymap-dir>",
		Short: "Compile a CUE keymap to canonical IR",
		Long: `Compile a CUE keymap package to canonical IR.

The compiler parses the CUE files, validates the keymap and, with -o,
writes canonical JSON for use by the engine. The keymap hash recorded with
every session is the hash of this JSON.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, keymapDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, err := LoadKeymapDir(keymapDir)
	if err != nil {
		code, message := loadErrorParts(err)
		return formatter.Fail(ExitCommandError, code, message)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, keymapDir)

	if !loaded.Valid() {
		return outputValidationErrors(formatter, splitFindings(loaded))
	}

	km := loaded.Keymap
	hash, err := ir.KeymapHash(km)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("hashing keymap: %v", err))
	}

	result := buildCompilationResult(km, hash, len(loaded.Findings))

	if opts.Output != "" {
		if err := writeIRToFile(km, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
		result.Output = opts.Output
	}

	return outputCompileSuccess(formatter, result)
}

func buildCompilationResult(km *ir.Keymap, hash string, warnings int) CompilationResult {
	result := CompilationResult{
		Name:     km.Name,
		Rows:     km.Rows,
		Cols:     km.Cols,
		Hash:     hash,
		Layers:   make([]string, len(km.Layers)),
		Macros:   make([]CompiledMacro, len(km.Macros)),
		Warnings: warnings,
	}
	for i, l := range km.Layers {
		result.Layers[i] = l.Name
	}
	for i, m := range km.Macros {
		kind := "script"
		if m.Held != nil {
			kind = "held"
		}
		result.Macros[i] = CompiledMacro{ID: m.ID, Name: m.Name, Kind: kind}
	}
	return result
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result CompilationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %s (%dx%d), %d layer(s), %d macro(s)\n\n",
		result.Name, result.Rows, result.Cols, len(result.Layers), len(result.Macros))

	fmt.Fprintln(formatter.Writer, "Layers:")
	for i, name := range result.Layers {
		fmt.Fprintf(formatter.Writer, "  %d: %s\n", i, name)
	}
	fmt.Fprintln(formatter.Writer)

	if len(result.Macros) > 0 {
		fmt.Fprintln(formatter.Writer, "Macros:")
		for _, m := range result.Macros {
			fmt.Fprintf(formatter.Writer, "  %d: %s (%s)\n", m.ID, m.Name, m.Kind)
		}
		fmt.Fprintln(formatter.Writer)
	}

	fmt.Fprintf(formatter.Writer, "Hash: %s\n", result.Hash)
	if result.Output != "" {
		fmt.Fprintf(formatter.Writer, "Wrote canonical IR to %s\n", result.Output)
	}

	return nil
}

// writeIRToFile writes the keymap to a file in canonical JSON format.
func writeIRToFile(km *ir.Keymap, filename string) error {
	data, err := ir.MarshalCanonical(ir.KeymapValue(km))
	if err != nil {
		return fmt.Errorf("marshaling IR: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
