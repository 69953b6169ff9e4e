package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/keycore/internal/engine"
	"github.com/roach88/keycore/internal/ir"
	"github.com/roach88/keycore/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string

	// SessionGenerator allows overriding the session id generator (for
	// testing). If nil, defaults to UUIDv7Generator.
	SessionGenerator engine.SessionGenerator
}

// RunResult summarises a finished run.
type RunResult struct {
	Session    string `json:"session"`
	Ticks      int    `json:"ticks"`
	Events     int    `json:"events"`
	FinalLayer int    `json:"final_layer"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <keymap-dir>",
		Short: "Drive the engine with matrix snapshots from stdin",
		Long: `Start the scan-tick engine with a compiled keymap.

Each stdin line is one matrix snapshot: the pressed positions as "row,col"
pairs separated by spaces. An empty line is a snapshot with nothing
pressed; lines starting with # are ignored. Every tick is recorded in the
SQLite database under a new session.

Example:
  printf '0,3\n0,3 9,1\n\n' | keycore run --db ./keycore.db ./keymaps/ergodox
  keycore run --db /tmp/test.db ./keymaps/ergodox --verbose < taps.txt`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, args[0], cmd)
		},
	}

	addDBFlag(cmd, &opts.Database, opts.RootOptions)

	return cmd
}

func runEngine(opts *RunOptions, keymapDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	configureLogging(opts.RootOptions, cmd.ErrOrStderr())

	slog.Info("compiling keymap", "dir", keymapDir)
	loaded, err := LoadKeymapDir(keymapDir)
	if err != nil {
		code, message := loadErrorParts(err)
		return formatter.Fail(ExitCommandError, code, message)
	}
	if !loaded.Valid() {
		return outputValidationErrors(formatter, splitFindings(loaded))
	}
	km := loaded.Keymap
	slog.Info("keymap compiled", "name", km.Name, "layers", len(km.Layers), "macros", len(km.Macros))

	slog.Info("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	sessionGen := opts.SessionGenerator
	if sessionGen == nil {
		sessionGen = engine.UUIDv7Generator{}
	}

	engOpts := []engine.Option{
		engine.WithStore(st),
		engine.WithSessionGenerator(sessionGen),
	}
	if formatter.Format == "text" {
		out := cmd.OutOrStdout()
		engOpts = append(engOpts, engine.WithHost(engine.HostFunc(func(_ context.Context, events []ir.KeyEvent) error {
			for _, ev := range events {
				if _, err := fmt.Fprintln(out, ev.String()); err != nil {
					return err
				}
			}
			return nil
		})))
	}
	eng := engine.New(km, engOpts...)

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	feedErr := feedSnapshots(cmd.InOrStdin(), km.Rows, km.Cols, eng)
	eng.Stop()
	if runErr := <-done; runErr != nil && !errors.Is(runErr, context.Canceled) {
		return WrapExitError(ExitFailure, "engine error", runErr)
	}
	if feedErr != nil {
		_ = formatter.Error(ErrCodeBadInput, feedErr.Error(), nil)
		return WrapExitError(ExitCommandError, "reading snapshots", feedErr)
	}

	result, err := summariseSession(context.Background(), st, eng)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read tick log", err)
	}
	slog.Info("engine stopped gracefully", "session", result.Session, "ticks", result.Ticks)

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "Session %s: %d tick(s), %d event(s), layer %d\n",
		result.Session, result.Ticks, result.Events, result.FinalLayer)
	return nil
}

// configureLogging installs the process-wide slog handler. Debug output
// is enabled by --verbose.
func configureLogging(opts *RootOptions, w io.Writer) {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// feedSnapshots enqueues one snapshot per input line. It stops at the
// first malformed line; snapshots before it have already been enqueued.
func feedSnapshots(r io.Reader, rows, cols int, eng *engine.Engine) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		m, err := ParseSnapshot(line, rows, cols)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if !eng.Enqueue(m) {
			return fmt.Errorf("line %d: engine stopped", lineNo)
		}
	}
	return scanner.Err()
}

// ParseSnapshot parses space-separated "row,col" positions into a
// rows x cols matrix.
func ParseSnapshot(line string, rows, cols int) (ir.Matrix, error) {
	fields := strings.Fields(line)
	pressed := make([]ir.Position, 0, len(fields))
	for _, f := range fields {
		p, err := ir.ParsePosition(f)
		if err != nil {
			return ir.Matrix{}, err
		}
		if p.Row >= rows || p.Col >= cols {
			return ir.Matrix{}, fmt.Errorf("position %s outside %dx%d matrix", p, rows, cols)
		}
		pressed = append(pressed, p)
	}
	return ir.NewMatrix(rows, cols, pressed...), nil
}

func summariseSession(ctx context.Context, st *store.Store, eng *engine.Engine) (RunResult, error) {
	result := RunResult{Session: eng.Session()}
	ticks, err := st.ReadTicks(ctx, eng.Session())
	if err != nil {
		return result, err
	}
	result.Ticks = len(ticks)
	for _, t := range ticks {
		result.Events += len(t.Events)
	}
	if len(ticks) > 0 {
		result.FinalLayer = ticks[len(ticks)-1].EffectiveLayer
	}
	return result, nil
}
