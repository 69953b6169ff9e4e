package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/keycore/internal/engine"
	"github.com/roach88/keycore/internal/ir"
	"github.com/roach88/keycore/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	Session       string            `json:"session"`
	Ticks         int               `json:"ticks"`
	Deterministic bool              `json:"deterministic"`
	Skipped       string            `json:"skipped,omitempty"`
	Divergence    *store.Divergence `json:"divergence,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <keymap-dir>",
		Short: "Replay recorded sessions and verify determinism",
		Long: `Replay the recorded snapshots of each session through a fresh engine
and compare every tick with the tick log.

Sessions recorded against a different keymap (by hash) are skipped.

Exit codes:
  0 - All replayed sessions are deterministic
  1 - A replayed tick diverged from the log
  2 - Command error (database not found, etc.)

Examples:
  keycore replay --db ./keycore.db ./keymaps/ergodox
  keycore replay --db ./keycore.db --session 0192... ./keymaps/ergodox
  keycore replay --db ./keycore.db ./keymaps/ergodox --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	addDBFlag(cmd, &opts.Database, rootOpts)
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, keymapDir string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, err := LoadKeymapDir(keymapDir)
	if err != nil {
		code, message := loadErrorParts(err)
		return formatter.Fail(ExitCommandError, code, message)
	}
	if !loaded.Valid() {
		return outputValidationErrors(formatter, splitFindings(loaded))
	}
	km := loaded.Keymap
	hash, err := ir.KeymapHash(km)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash keymap", err)
	}

	st, err := store.OpenExisting(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var sessions []store.Session
	if opts.Session != "" {
		sess, err := st.ReadSession(ctx, opts.Session)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("session %s not found", opts.Session), err)
		}
		sessions = []store.Session{sess}
	} else {
		sessions, err = st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
	}

	result := ReplayResult{
		Sessions:         make([]ReplaySessionResult, 0, len(sessions)),
		TotalSessions:    len(sessions),
		AllDeterministic: true,
	}

	for _, sess := range sessions {
		if sess.KeymapHash != hash {
			formatter.VerboseLog("Skipping %s: recorded against keymap %s", sess.ID, truncateID(sess.KeymapHash))
			result.Sessions = append(result.Sessions, ReplaySessionResult{
				Session:       sess.ID,
				Deterministic: true,
				Skipped:       "keymap hash mismatch",
			})
			continue
		}

		// A fresh engine with no store, so the replay cannot write into the
		// session it is reading.
		fresh := engine.New(km, engine.WithSessionGenerator(engine.NewFixedGenerator(sess.ID)))
		rr, err := st.Replay(ctx, sess.ID, fresh.ReplayStep)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", sess.ID), err)
		}

		result.Sessions = append(result.Sessions, ReplaySessionResult{
			Session:       sess.ID,
			Ticks:         rr.Ticks,
			Deterministic: rr.Deterministic(),
			Divergence:    rr.Divergence,
		})
		if !rr.Deterministic() {
			result.AllDeterministic = false
		}
	}

	const diverged = "replay diverged from the tick log"
	var outErr error
	switch {
	case formatter.Format != "json":
		outErr = outputReplayText(formatter.Writer, result)
	case result.AllDeterministic:
		outErr = formatter.Success(result)
	default:
		outErr = formatter.Report(result, ErrCodeReplayDiverged, diverged)
	}
	if outErr != nil {
		return outErr
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, diverged)
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(w io.Writer, result ReplayResult) error {
	if result.TotalSessions == 0 {
		fmt.Fprintln(w, "No sessions found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replayed %d session(s)\n\n", result.TotalSessions)
	for _, s := range result.Sessions {
		switch {
		case s.Skipped != "":
			fmt.Fprintf(w, "  - %s: skipped (%s)\n", s.Session, s.Skipped)
		case s.Deterministic:
			fmt.Fprintf(w, "  ✓ %s: %d tick(s)\n", s.Session, s.Ticks)
		default:
			d := s.Divergence
			fmt.Fprintf(w, "  ✗ %s: diverged at tick %d\n", s.Session, d.Seq)
			fmt.Fprintf(w, "      %s: recorded %s, replayed %s\n", d.Field, d.Want, d.Got)
		}
	}
	fmt.Fprintln(w)

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All sessions deterministic")
	} else {
		fmt.Fprintln(w, "✗ Determinism check failed")
	}
	return nil
}
