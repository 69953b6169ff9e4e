package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/keycore/internal/engine"
	"github.com/roach88/keycore/internal/ir"
)

// TriggerResult holds the events one macro edge produced.
type TriggerResult struct {
	Macro   ir.MacroID `json:"macro"`
	Name    string     `json:"name,omitempty"`
	Edge    string     `json:"edge"`
	Events  []string   `json:"events"`
	Reports []string   `json:"reports"`
}

// NewTriggerCommand creates the trigger command.
func NewTriggerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trigger <keymap-dir> <macro-id> press|release",
		Short: "Play one macro edge without the matrix",
		Long: `Play one edge of a macro defined in the keymap and print what the
host would receive.

Events are the macro's logical output; reports are what the host sees
after taps are expanded into press and release. An id the keymap does not
define produces nothing.

Example:
  keycore trigger ./keymaps/ergodox 1 press
  keycore trigger ./keymaps/ergodox 0 release --format json`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrigger(rootOpts, args[0], args[1], args[2], cmd)
		},
	}

	return cmd
}

func runTrigger(opts *RootOptions, keymapDir, idArg, edgeArg string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	id, err := strconv.ParseUint(idArg, 10, 8)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, fmt.Sprintf("invalid macro id %q: must be 0-255", idArg))
	}
	edge, err := ir.ParseEdge(edgeArg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, err.Error())
	}

	loaded, err := LoadKeymapDir(keymapDir)
	if err != nil {
		code, message := loadErrorParts(err)
		return formatter.Fail(ExitCommandError, code, message)
	}
	if !loaded.Valid() {
		return outputValidationErrors(formatter, splitFindings(loaded))
	}

	var reports []ir.KeyEvent
	host := engine.HostFunc(func(_ context.Context, events []ir.KeyEvent) error {
		reports = append(reports, events...)
		return nil
	})
	eng := engine.New(loaded.Keymap, engine.WithHost(host))

	trigger := ir.MacroTrigger{ID: ir.MacroID(id), Edge: edge}
	events, err := eng.TriggerMacro(context.Background(), trigger)
	if err != nil {
		return WrapExitError(ExitFailure, "macro playback failed", err)
	}

	result := TriggerResult{
		Macro:   trigger.ID,
		Edge:    edge.String(),
		Events:  eventStrings(events),
		Reports: eventStrings(reports),
	}
	for _, m := range loaded.Keymap.Macros {
		if m.ID == trigger.ID {
			result.Name = m.Name
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	if result.Name == "" {
		fmt.Fprintf(formatter.Writer, "Macro %d is not defined; no events\n", result.Macro)
		return nil
	}
	fmt.Fprintf(formatter.Writer, "Macro %d (%s) %s: %d event(s)\n", result.Macro, result.Name, result.Edge, len(result.Events))
	for _, r := range result.Reports {
		fmt.Fprintf(formatter.Writer, "  %s\n", r)
	}
	return nil
}

func eventStrings(events []ir.KeyEvent) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.String()
	}
	return out
}
