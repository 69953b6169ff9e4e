package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/keycore/internal/ir"
	"github.com/roach88/keycore/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Keycode  string // optional - filter to one keycode
}

// TraceTick is one tick in the trace timeline.
type TraceTick struct {
	Seq            int64    `json:"seq"`
	Layers         []int    `json:"layers"`
	EffectiveLayer int      `json:"effective_layer"`
	Indicators     string   `json:"indicators"`
	Pressed        []string `json:"pressed"`
	Events         []string `json:"events"`
	Hash           string   `json:"hash"`
}

// KeycodeHit is one event for the filtered keycode.
type KeycodeHit struct {
	Seq   int64  `json:"seq"`
	Event string `json:"event"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Session    string       `json:"session"`
	Keymap     string       `json:"keymap,omitempty"`
	KeymapHash string       `json:"keymap_hash,omitempty"`
	Timeline   []TraceTick  `json:"timeline"`
	Keycode    string       `json:"keycode,omitempty"`
	Hits       []KeycodeHit `json:"hits,omitempty"`
	Stats      TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Ticks        int `json:"ticks"`
	Events       int `json:"events"`
	LayerChanges int `json:"layer_changes"`
}

// SessionSummary is one row of the session listing.
type SessionSummary struct {
	ID         string `json:"id"`
	Keymap     string `json:"keymap"`
	KeymapHash string `json:"keymap_hash"`
	Rows       int    `json:"rows"`
	Cols       int    `json:"cols"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the tick log of a session",
		Long: `Show the recorded ticks of a session.

Each tick lists the active layers, the effective layer, the indicator
states, the pressed positions and the logical events it emitted. With
--keycode only the events for that keycode are listed. Without --session
the recorded sessions are listed.

Examples:
  keycore trace --db ./keycore.db
  keycore trace --db ./keycore.db --session 0192...
  keycore trace --db ./keycore.db --session 0192... --keycode KC_LSFT
  keycore trace --db ./keycore.db --session 0192... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	addDBFlag(cmd, &opts.Database, rootOpts)
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id to trace")
	cmd.Flags().StringVar(&opts.Keycode, "keycode", "", "filter to one keycode (e.g. KC_A)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	var kc ir.Keycode
	if opts.Keycode != "" {
		var ok bool
		if kc, ok = ir.KeycodeByName(opts.Keycode); !ok {
			return formatter.Fail(ExitCommandError, ErrCodeBadInput, fmt.Sprintf("unknown keycode %q", opts.Keycode))
		}
	}

	st, err := store.OpenExisting(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Session == "" {
		return listSessions(ctx, st, formatter)
	}

	sess, err := st.ReadSession(ctx, opts.Session)
	if errors.Is(err, sql.ErrNoRows) {
		if formatter.Format == "json" {
			return formatter.Success(TraceResult{Session: opts.Session, Timeline: []TraceTick{}})
		}
		fmt.Fprintf(formatter.Writer, "No ticks found for session: %s\n", opts.Session)
		return nil
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	ticks, err := st.ReadTicks(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read ticks", err)
	}

	result := TraceResult{
		Session:    sess.ID,
		Keymap:     sess.KeymapName,
		KeymapHash: sess.KeymapHash,
		Timeline:   buildTimeline(ticks),
		Stats:      traceStats(ticks),
	}

	if opts.Keycode != "" {
		seqs, events, err := st.ReadEventsByKeycode(ctx, opts.Session, kc)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read key events", err)
		}
		result.Keycode = kc.String()
		result.Hits = make([]KeycodeHit, len(events))
		for i, ev := range events {
			result.Hits[i] = KeycodeHit{Seq: seqs[i], Event: ev.String()}
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return outputTraceText(formatter.Writer, result, opts.Verbose)
}

// buildTimeline converts stored ticks to trace ticks.
func buildTimeline(ticks []store.Tick) []TraceTick {
	timeline := make([]TraceTick, len(ticks))
	for i, t := range ticks {
		pressed := make([]string, len(t.Pressed))
		for j, p := range t.Pressed {
			pressed[j] = p.String()
		}
		timeline[i] = TraceTick{
			Seq:            t.Seq,
			Layers:         t.LayerState.Layers(),
			EffectiveLayer: t.EffectiveLayer,
			Indicators:     t.Indicators.String(),
			Pressed:        pressed,
			Events:         eventStrings(t.Events),
			Hash:           t.Hash,
		}
	}
	return timeline
}

func traceStats(ticks []store.Tick) TraceStats {
	stats := TraceStats{Ticks: len(ticks)}
	prev := ir.BaseLayerStack
	for _, t := range ticks {
		stats.Events += len(t.Events)
		if t.LayerState != prev {
			stats.LayerChanges++
			prev = t.LayerState
		}
	}
	return stats
}

func listSessions(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	sessions, err := st.ListSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	summaries := make([]SessionSummary, len(sessions))
	for i, s := range sessions {
		summaries[i] = SessionSummary{ID: s.ID, Keymap: s.KeymapName, KeymapHash: s.KeymapHash, Rows: s.Rows, Cols: s.Cols}
	}

	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(formatter.Writer, "No sessions found in database.")
		return nil
	}
	fmt.Fprintln(formatter.Writer, "Sessions:")
	for _, s := range summaries {
		fmt.Fprintf(formatter.Writer, "  %s  %s (%dx%d)\n", s.ID, s.Keymap, s.Rows, s.Cols)
	}
	return nil
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintf(w, "Trace for Session: %s\n", result.Session)
	fmt.Fprintf(w, "Keymap: %s\n", result.Keymap)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no ticks)")
	}
	for _, t := range result.Timeline {
		fmt.Fprintf(w, "  [%d] layer=%d %s events=[%s]\n",
			t.Seq, t.EffectiveLayer, t.Indicators, strings.Join(t.Events, ", "))
		if verbose {
			fmt.Fprintf(w, "       Layers: %v  Pressed: [%s]\n", t.Layers, strings.Join(t.Pressed, " "))
			fmt.Fprintf(w, "       Hash: %s\n", truncateID(t.Hash))
		}
	}
	fmt.Fprintln(w)

	if result.Keycode != "" {
		fmt.Fprintf(w, "=== %s ===\n", result.Keycode)
		if len(result.Hits) == 0 {
			fmt.Fprintln(w, "  (no events)")
		}
		for _, h := range result.Hits {
			fmt.Fprintf(w, "  [%d] %s\n", h.Seq, h.Event)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Ticks:         %d\n", result.Stats.Ticks)
	fmt.Fprintf(w, "  Events:        %d\n", result.Stats.Events)
	fmt.Fprintf(w, "  Layer Changes: %d\n", result.Stats.LayerChanges)

	return nil
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
