package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/keycore/internal/indicator"
	"github.com/roach88/keycore/internal/ir"
	"github.com/roach88/keycore/internal/layer"
	"github.com/roach88/keycore/internal/macro"
	"github.com/roach88/keycore/internal/store"
)

// Engine is the single-writer per-tick firmware loop.
//
// CRITICAL: All state mutations happen on the goroutine calling Tick (the
// Run loop in production). External callers use Enqueue() to submit
// snapshots.
//
// Thread-safety model:
//   - Enqueue(), Stop(): safe from any goroutine
//   - Run(), Tick(), TriggerMacro(): must be called from exactly one goroutine
//
// INVARIANTS:
//   - The engine never retains a caller's snapshot; it keeps a copy of the
//     pressed set only
//   - Bit 0 of the layer stack is always set
//   - A release undoes the action latched at press time
type Engine struct {
	keymap     *ir.Keymap
	keymapHash string
	macros     *macro.Table
	indicators *indicator.Controller
	layers     *layer.Stack
	clock      SeqClock
	queue      *snapshotQueue

	host HostReporter
	leds IndicatorDriver

	store      *store.Store
	sessionGen SessionGenerator
	session    string
	recording  bool

	pressed []bool                    // previous pressed set, row-major
	latched map[ir.Position]ir.Action // action resolved at press time
}

// Option configures an Engine.
type Option func(*Engine)

// WithHost sets the host transport.
func WithHost(h HostReporter) Option {
	return func(e *Engine) { e.host = h }
}

// WithIndicatorDriver sets the indicator driver.
func WithIndicatorDriver(d IndicatorDriver) Option {
	return func(e *Engine) { e.leds = d }
}

// WithStore records every tick into s under a new session.
func WithStore(s *store.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithSessionGenerator sets the session id source.
// Default: UUIDv7Generator.
func WithSessionGenerator(g SessionGenerator) Option {
	return func(e *Engine) { e.sessionGen = g }
}

// WithClock sets the tick clock. Default: a new Clock starting at 0.
func WithClock(c SeqClock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithMacroTable overrides the macro table built from the keymap.
func WithMacroTable(t *macro.Table) Option {
	return func(e *Engine) { e.macros = t }
}

// New creates an Engine for a validated keymap.
//
// The macro table is built from km.Macros unless WithMacroTable is given.
func New(km *ir.Keymap, opts ...Option) *Engine {
	e := &Engine{
		keymap:     km,
		keymapHash: ir.MustKeymapHash(km),
		indicators: indicator.NewController(km),
		layers:     layer.NewStack(),
		clock:      NewClock(),
		queue:      newSnapshotQueue(),
		sessionGen: UUIDv7Generator{},
		pressed:    make([]bool, km.Rows*km.Cols),
		latched:    make(map[ir.Position]ir.Action),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.macros == nil {
		e.macros = macro.NewTable(km.Macros)
	}
	e.session = e.sessionGen.Generate()

	return e
}

// Session returns the session id ticks are recorded under.
func (e *Engine) Session() string {
	return e.session
}

// LayerState returns the current layer stack.
func (e *Engine) LayerState() ir.LayerStack {
	return e.layers.State()
}

// TickResult is the observable outcome of one tick.
type TickResult struct {
	Seq            int64
	LayerState     ir.LayerStack
	EffectiveLayer int
	Indicators     ir.IndicatorState
	Pressed        []ir.Position

	// Events are the logical events in emission order. Taps are not
	// expanded here; the host transport receives ir.Expand(Events).
	Events []ir.KeyEvent
}

// Record converts the result to a tick log row.
func (r TickResult) Record(sessionID string) store.Tick {
	pressed := r.Pressed
	if pressed == nil {
		pressed = []ir.Position{}
	}
	events := r.Events
	if events == nil {
		events = []ir.KeyEvent{}
	}
	return store.Tick{
		SessionID:      sessionID,
		Seq:            r.Seq,
		LayerState:     r.LayerState,
		EffectiveLayer: r.EffectiveLayer,
		Indicators:     r.Indicators,
		Pressed:        pressed,
		Events:         events,
	}
}

// Tick processes one matrix snapshot.
//
// A snapshot whose shape differs from the keymap is rejected with a
// MATRIX_SHAPE error and changes nothing. Sink failures are reported as
// SINK_FAILED after the tick's state change has been applied; the returned
// result is valid in both cases.
func (e *Engine) Tick(ctx context.Context, m ir.Matrix) (TickResult, error) {
	if m.Rows() != e.keymap.Rows || m.Cols() != e.keymap.Cols {
		return TickResult{}, NewShapeError(m.Rows(), m.Cols(), e.keymap.Rows, e.keymap.Cols)
	}

	seq := e.clock.Next()

	var events []ir.KeyEvent
	for r := 0; r < e.keymap.Rows; r++ {
		for c := 0; c < e.keymap.Cols; c++ {
			pos := ir.Position{Row: r, Col: c}
			i := r*e.keymap.Cols + c
			now := m.IsPressed(pos)
			if now == e.pressed[i] {
				continue
			}
			e.pressed[i] = now
			if now {
				events = append(events, e.press(pos)...)
			} else {
				events = append(events, e.release(pos)...)
			}
		}
	}

	stack := e.layers.State()
	result := TickResult{
		Seq:            seq,
		LayerState:     stack,
		EffectiveLayer: layer.Resolve(stack),
		Indicators:     e.indicators.Refresh(stack, m),
		Pressed:        m.Pressed(),
		Events:         events,
	}

	slog.Debug("tick",
		"seq", seq,
		"layer_state", uint32(stack),
		"effective_layer", result.EffectiveLayer,
		"events", len(events),
		"indicators", result.Indicators.String(),
	)

	return result, e.emit(ctx, result)
}

// press resolves and latches the action at pos and applies its press edge.
func (e *Engine) press(pos ir.Position) []ir.KeyEvent {
	a := layer.Lookup(e.keymap, pos, e.layers.State())
	e.latched[pos] = a

	switch a.Kind {
	case ir.ActionKey:
		var out []ir.KeyEvent
		for _, kc := range a.Mods.Keycodes() {
			out = append(out, ir.PressOf(kc))
		}
		return append(out, ir.PressOf(a.Keycode))
	case ir.ActionModTap:
		var out []ir.KeyEvent
		for _, kc := range a.Mods.Keycodes() {
			out = append(out, ir.PressOf(kc))
		}
		return out
	case ir.ActionLayerMomentary, ir.ActionLayerTap:
		e.layers.On(a.Layer)
	case ir.ActionLayerToggle:
		e.layers.Toggle(a.Layer)
	case ir.ActionMacro:
		return e.macros.Play(ir.MacroTrigger{ID: a.Macro, Edge: ir.PressEdge})
	}
	return nil
}

// release applies the release edge of the action latched at pos.
func (e *Engine) release(pos ir.Position) []ir.KeyEvent {
	a, ok := e.latched[pos]
	if !ok {
		return nil
	}
	delete(e.latched, pos)

	switch a.Kind {
	case ir.ActionKey:
		out := []ir.KeyEvent{ir.ReleaseOf(a.Keycode)}
		return append(out, releaseMods(a.Mods)...)
	case ir.ActionModTap:
		return releaseMods(a.Mods)
	case ir.ActionLayerMomentary, ir.ActionLayerTap:
		e.layers.Off(a.Layer)
	case ir.ActionMacro:
		return e.macros.Play(ir.MacroTrigger{ID: a.Macro, Edge: ir.ReleaseEdge})
	}
	return nil
}

// releaseMods releases modifiers in the reverse of press order.
func releaseMods(m ir.Mods) []ir.KeyEvent {
	kcs := m.Keycodes()
	out := make([]ir.KeyEvent, 0, len(kcs))
	for i := len(kcs) - 1; i >= 0; i-- {
		out = append(out, ir.ReleaseOf(kcs[i]))
	}
	return out
}

// emit hands a tick to every configured sink. All sinks are attempted;
// the first failure is returned.
func (e *Engine) emit(ctx context.Context, r TickResult) error {
	var first error

	if e.host != nil && len(r.Events) > 0 {
		if err := e.host.Report(ctx, ir.Expand(r.Events)); err != nil {
			first = NewSinkError("host", r.Seq, err)
		}
	}

	if e.leds != nil {
		if err := e.leds.Set(ctx, r.Indicators); err != nil && first == nil {
			first = NewSinkError("indicators", r.Seq, err)
		}
	}

	if e.store != nil {
		if err := e.record(ctx, r); err != nil && first == nil {
			first = NewSinkError("store", r.Seq, err)
		}
	}

	return first
}

// record writes the session row on first use, then the tick.
func (e *Engine) record(ctx context.Context, r TickResult) error {
	if !e.recording {
		err := e.store.WriteSession(ctx, store.Session{
			ID:            e.session,
			KeymapName:    e.keymap.Name,
			KeymapHash:    e.keymapHash,
			Rows:          e.keymap.Rows,
			Cols:          e.keymap.Cols,
			EngineVersion: ir.EngineVersion,
			IRVersion:     ir.IRVersion,
		})
		if err != nil {
			return err
		}
		e.recording = true
	}
	return e.store.WriteTick(ctx, r.Record(e.session))
}

// ReplayStep is a store.StepFunc: it runs one stored snapshot through this
// engine. Use a fresh engine without WithStore.
func (e *Engine) ReplayStep(ctx context.Context, m ir.Matrix) (store.Tick, error) {
	r, err := e.Tick(ctx, m)
	if err != nil {
		return store.Tick{}, err
	}
	return r.Record(e.session), nil
}

// TriggerMacro plays one macro edge directly and reports it to the host,
// bypassing the matrix. Unknown ids produce no events.
func (e *Engine) TriggerMacro(ctx context.Context, trigger ir.MacroTrigger) ([]ir.KeyEvent, error) {
	events := e.macros.Play(trigger)
	slog.Debug("macro triggered",
		"id", trigger.ID,
		"edge", trigger.Edge.String(),
		"events", len(events),
	)
	if e.host != nil && len(events) > 0 {
		if err := e.host.Report(ctx, ir.Expand(events)); err != nil {
			return events, NewSinkError("host", e.clock.Current(), err)
		}
	}
	return events, nil
}

// Enqueue submits a snapshot for processing by the Run loop.
// Thread-safe: may be called from any goroutine.
//
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(m ir.Matrix) bool {
	return e.queue.Enqueue(m)
}

// QueueLen returns the number of snapshots waiting to be processed.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Run starts the single-writer tick loop.
// Blocks until context is cancelled or Stop() is called and the queue has
// drained.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// ERROR HANDLING: A failed tick is logged with its seq and processing
// continues with the next snapshot. Retrying would emit the tick's events
// twice.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "session", e.session, "keymap", e.keymap.Name)

	for {
		m, ok := e.queue.TryDequeue()
		if ok {
			if _, err := e.Tick(ctx, m); err != nil {
				logTickError(e.clock.Current(), err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes when the queue is closed, so this
			// case fires immediately once Stop has been called.
			if e.queue.Len() == 0 && e.queue.Closed() {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop gracefully shuts down the engine.
// Closes the queue; Run returns once the remaining snapshots are processed.
func (e *Engine) Stop() {
	e.queue.Close()
}

// logTickError logs a tick failure with enough context to find it in the
// tick log.
func logTickError(seq int64, err error) {
	attrs := []any{"error", err, "seq", seq}
	var re *RuntimeError
	if errors.As(err, &re) {
		attrs = append(attrs, "code", string(re.Code))
		if re.Sink != "" {
			attrs = append(attrs, "sink", re.Sink)
		}
	}
	slog.Error("tick failed", attrs...)
}

// String renders the engine for debug logs.
func (e *Engine) String() string {
	return fmt.Sprintf("Engine(session=%s, keymap=%s, layers=%#b)", e.session, e.keymap.Name, uint32(e.layers.State()))
}
