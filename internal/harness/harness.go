package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/keycore/internal/compiler"
	"github.com/roach88/keycore/internal/engine"
	"github.com/roach88/keycore/internal/ir"
	"github.com/roach88/keycore/internal/store"
	"github.com/roach88/keycore/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios through a real engine with a deterministic clock and
// session id, recording into an in-memory tick log.
type Harness struct {
	keymap  *ir.Keymap
	store   *store.Store
	engine  *engine.Engine
	clock   *testutil.DeterministicClock
	session *testutil.FixedSessionGenerator
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Load, compile and validate the keymap
// 2. Create fresh in-memory database and engine
// 3. Feed every tick, checking per-tick expectations
// 4. Replay the recorded session through a second engine
// 5. Evaluate assertions and return result with pass/fail, trace, and errors
//
// A returned error means the scenario could not be executed at all;
// failed expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	km, err := compiler.LoadKeymap(scenario.Keymap)
	if err != nil {
		return nil, fmt.Errorf("failed to load keymap: %w", err)
	}
	return RunKeymap(scenario, km)
}

// RunKeymap executes a scenario against an already compiled keymap.
// scenario.Keymap is ignored.
func RunKeymap(scenario *Scenario, km *ir.Keymap) (*Result, error) {
	if errs := compiler.Validate(km); compiler.HasErrors(errs) {
		return nil, fmt.Errorf("invalid keymap: %v", errs)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewDeterministicClock()
	sessions := testutil.NewFixedSessionGenerator(scenario.Session)

	h := &Harness{
		keymap:  km,
		store:   st,
		clock:   clock,
		session: sessions,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	h.engine = engine.New(km,
		engine.WithStore(st),
		engine.WithClock(clock),
		engine.WithSessionGenerator(sessions),
	)

	ctx := context.Background()
	result := NewResult()
	result.Session = h.engine.Session()

	if err := h.executeTicks(ctx, scenario.Ticks, result); err != nil {
		return nil, fmt.Errorf("failed to execute ticks: %w", err)
	}

	if err := h.checkReplay(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to replay session: %w", err)
	}

	actx := &AssertionContext{
		Store:   st,
		Session: result.Session,
		Ctx:     ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeTicks feeds every snapshot to the engine in order.
func (h *Harness) executeTicks(ctx context.Context, ticks []TickStep, result *Result) error {
	for i, step := range ticks {
		m, err := h.snapshot(step.Pressed)
		if err != nil {
			return fmt.Errorf("tick %d: %w", i, err)
		}

		r, err := h.engine.Tick(ctx, m)
		if err != nil {
			return fmt.Errorf("tick %d: %w", i, err)
		}
		t := traceEventFrom(r)
		result.AddTick(t)

		h.logger.Debug("tick completed",
			"step", i,
			"seq", t.Seq,
			"effective_layer", t.EffectiveLayer,
			"events", len(t.Events),
		)

		if step.Expect != nil {
			for _, msg := range checkExpect(i, step.Expect, t) {
				result.AddError(msg)
			}
		}
	}
	return nil
}

// snapshot builds a matrix of the keymap's shape from "row,col" strings.
func (h *Harness) snapshot(pressed []string) (ir.Matrix, error) {
	positions := make([]ir.Position, 0, len(pressed))
	for _, s := range pressed {
		p, err := ir.ParsePosition(s)
		if err != nil {
			return ir.Matrix{}, err
		}
		if p.Row >= h.keymap.Rows || p.Col >= h.keymap.Cols {
			return ir.Matrix{}, fmt.Errorf("position %s outside %dx%d matrix", p, h.keymap.Rows, h.keymap.Cols)
		}
		positions = append(positions, p)
	}
	return ir.NewMatrix(h.keymap.Rows, h.keymap.Cols, positions...), nil
}

// checkExpect compares one tick against its expect clause.
func checkExpect(step int, exp *TickExpect, t TraceEvent) []string {
	var errs []string

	if exp.Layer != nil && *exp.Layer != t.EffectiveLayer {
		errs = append(errs, fmt.Sprintf("ticks[%d]: effective layer: expected %d, got %d",
			step, *exp.Layer, t.EffectiveLayer))
	}

	if exp.Indicators != nil && *exp.Indicators != t.Indicators {
		errs = append(errs, fmt.Sprintf("ticks[%d]: indicators: expected %s, got %s",
			step, *exp.Indicators, t.Indicators))
	}

	if exp.Events != nil {
		want := parseEvents(exp.Events)
		if !slices.Equal(want, t.Events) {
			errs = append(errs, fmt.Sprintf("ticks[%d]: events: expected %s, got %s",
				step, formatEvents(want), formatEvents(t.Events)))
		}
	}

	return errs
}

// checkReplay re-runs the recorded session through a fresh engine and
// reports the first divergence as a failure.
func (h *Harness) checkReplay(ctx context.Context, result *Result) error {
	if len(result.Trace) == 0 {
		return nil
	}
	if issued := h.clock.Rewind(); issued != int64(len(result.Trace)) {
		return fmt.Errorf("clock issued %d seqs for %d ticks", issued, len(result.Trace))
	}
	fresh := engine.New(h.keymap,
		engine.WithClock(h.clock),
		engine.WithSessionGenerator(h.session),
	)

	rr, err := h.store.Replay(ctx, result.Session, fresh.ReplayStep)
	if err != nil {
		return err
	}
	if !rr.Deterministic() {
		d := rr.Divergence
		result.AddError(fmt.Sprintf("replay diverged at tick %d: %s: recorded %s, replayed %s",
			d.Seq, d.Field, d.Want, d.Got))
	}
	return nil
}
