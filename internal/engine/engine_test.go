package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keycore/internal/ir"
	"github.com/roach88/keycore/internal/macro"
	"github.com/roach88/keycore/internal/store"
)

// testKeymap is a 2x4 slice of the ErgoDox layout:
//
//	BASE  [KC_A,             M(0),          MO(1), LT(2, KC_SCLN)]
//	      [LCTL(LSFT(KC_J)), ALT_T(KC_APP), M(1),  TG(2)         ]
//	SYMB  [KC_1,    _, _, _]
//	      [KC_LSFT, _, _, _]
//	MDIA  [KC_MS_U, _, _, _]
//	      [_,       _, _, _]
func testKeymap() *ir.Keymap {
	b := ir.Bound
	tr := ir.Transparent
	return &ir.Keymap{
		Name: "test",
		Rows: 2,
		Cols: 4,
		Layers: []ir.Layer{
			{Name: "BASE", Bindings: [][]ir.Binding{
				{b(ir.Key(ir.KeyA)), b(ir.Macro(0)), b(ir.Momentary(1)), b(ir.LayerTap(2, ir.KeySemicolon))},
				{b(ir.Chord(ir.ModLCtrl|ir.ModLShift, ir.KeyJ)), b(ir.ModTap(ir.ModLAlt, ir.KeyApplication)), b(ir.Macro(1)), b(ir.Toggle(2))},
			}},
			{Name: "SYMB", Bindings: [][]ir.Binding{
				{b(ir.Key(ir.Key1)), tr, tr, tr},
				{b(ir.Key(ir.KeyLeftShift)), tr, tr, tr},
			}},
			{Name: "MDIA", Bindings: [][]ir.Binding{
				{b(ir.Key(ir.KeyMouseUp)), tr, tr, tr},
				{tr, tr, tr, tr},
			}},
		},
		Macros: macro.DefaultDefs(ir.KeyRightShift),
	}
}

var (
	keyA     = ir.Position{Row: 0, Col: 0}
	macro0   = ir.Position{Row: 0, Col: 1}
	mo1      = ir.Position{Row: 0, Col: 2}
	lt2      = ir.Position{Row: 0, Col: 3}
	chord    = ir.Position{Row: 1, Col: 0}
	altTap   = ir.Position{Row: 1, Col: 1}
	macro1   = ir.Position{Row: 1, Col: 2}
	toggle2  = ir.Position{Row: 1, Col: 3}
	released = []ir.Position(nil)
)

func snap(pressed ...ir.Position) ir.Matrix {
	return ir.NewMatrix(2, 4, pressed...)
}

// recordingHost captures everything reported to the host.
type recordingHost struct {
	mu     sync.Mutex
	events []ir.KeyEvent
	err    error
}

func (h *recordingHost) Report(_ context.Context, events []ir.KeyEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, events...)
	return h.err
}

func (h *recordingHost) Events() []ir.KeyEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ir.KeyEvent(nil), h.events...)
}

func newTestEngine(opts ...Option) *Engine {
	opts = append([]Option{WithSessionGenerator(NewFixedGenerator("sess-1", "sess-2"))}, opts...)
	return New(testKeymap(), opts...)
}

func tick(t *testing.T, e *Engine, pressed ...ir.Position) TickResult {
	t.Helper()
	r, err := e.Tick(context.Background(), snap(pressed...))
	require.NoError(t, err)
	return r
}

func TestEngine_New(t *testing.T) {
	e := newTestEngine()

	assert.Equal(t, "sess-1", e.Session())
	assert.Equal(t, ir.BaseLayerStack, e.LayerState())
	assert.Equal(t, 2, e.macros.Len())
	assert.Equal(t, int64(0), e.clock.Current())
}

func TestEngine_KeyPressAndRelease(t *testing.T) {
	e := newTestEngine()

	r := tick(t, e, keyA)
	assert.Equal(t, int64(1), r.Seq)
	assert.Equal(t, []ir.KeyEvent{ir.PressOf(ir.KeyA)}, r.Events)
	assert.Equal(t, []ir.Position{keyA}, r.Pressed)

	r = tick(t, e, keyA)
	assert.Empty(t, r.Events, "held key produces no edge")

	r = tick(t, e, released...)
	assert.Equal(t, []ir.KeyEvent{ir.ReleaseOf(ir.KeyA)}, r.Events)
	assert.Equal(t, int64(3), r.Seq)
}

func TestEngine_ChordPressesModsFirstReleasesThemLast(t *testing.T) {
	e := newTestEngine()

	r := tick(t, e, chord)
	assert.Equal(t, []ir.KeyEvent{
		ir.PressOf(ir.KeyLeftCtrl),
		ir.PressOf(ir.KeyLeftShift),
		ir.PressOf(ir.KeyJ),
	}, r.Events)
	assert.False(t, r.Indicators.L3, "a chord on a plain key is not a modifier")

	r = tick(t, e)
	assert.Equal(t, []ir.KeyEvent{
		ir.ReleaseOf(ir.KeyJ),
		ir.ReleaseOf(ir.KeyLeftShift),
		ir.ReleaseOf(ir.KeyLeftCtrl),
	}, r.Events)
}

func TestEngine_ModTapHoldsModifier(t *testing.T) {
	e := newTestEngine()

	r := tick(t, e, altTap)
	assert.Equal(t, []ir.KeyEvent{ir.PressOf(ir.KeyLeftAlt)}, r.Events)
	assert.False(t, r.Indicators.L3, "a mod-tap has no modifier keycode")

	r = tick(t, e)
	assert.Equal(t, []ir.KeyEvent{ir.ReleaseOf(ir.KeyLeftAlt)}, r.Events)
	assert.False(t, r.Indicators.L3)
}

func TestEngine_HeldModifierMacro(t *testing.T) {
	e := newTestEngine()

	r := tick(t, e, macro0)
	assert.Equal(t, []ir.KeyEvent{ir.PressOf(ir.KeyRightShift)}, r.Events)
	assert.False(t, r.Indicators.L3, "macro bindings are not modifier actions")

	r = tick(t, e, macro0)
	assert.Empty(t, r.Events)

	r = tick(t, e)
	assert.Equal(t, []ir.KeyEvent{ir.ReleaseOf(ir.KeyRightShift)}, r.Events)
}

func TestEngine_ScriptedMacroExpandsForHost(t *testing.T) {
	host := &recordingHost{}
	e := newTestEngine(WithHost(host))

	r := tick(t, e, macro1)
	assert.Equal(t, macro.DefaultDefs(ir.KeyRightShift)[1].Script, r.Events)

	r = tick(t, e)
	assert.Empty(t, r.Events, "scripted macros emit nothing on release")

	assert.Equal(t, []ir.KeyEvent{
		ir.PressOf(ir.KeyLeftCtrl),
		ir.PressOf(ir.KeySpace),
		ir.ReleaseOf(ir.KeySpace),
		ir.ReleaseOf(ir.KeyLeftCtrl),
		ir.PressOf(ir.KeyD), ir.ReleaseOf(ir.KeyD),
		ir.PressOf(ir.KeyA), ir.ReleaseOf(ir.KeyA),
		ir.PressOf(ir.KeyS), ir.ReleaseOf(ir.KeyS),
		ir.PressOf(ir.KeyH), ir.ReleaseOf(ir.KeyH),
		ir.PressOf(ir.KeySpace), ir.ReleaseOf(ir.KeySpace),
	}, host.Events())
}

func TestEngine_MomentaryLayer(t *testing.T) {
	e := newTestEngine()

	r := tick(t, e, mo1)
	assert.Equal(t, ir.LayerStack(0b11), r.LayerState)
	assert.Equal(t, 1, r.EffectiveLayer)
	assert.Equal(t, ir.IndicatorState{L1: true}, r.Indicators)
	assert.Empty(t, r.Events)

	r = tick(t, e, mo1, keyA)
	assert.Equal(t, []ir.KeyEvent{ir.PressOf(ir.Key1)}, r.Events)

	// Layer released first; the held key still releases what it pressed.
	r = tick(t, e, keyA)
	assert.Equal(t, ir.BaseLayerStack, r.LayerState)
	assert.Equal(t, ir.IndicatorState{}, r.Indicators)

	r = tick(t, e)
	assert.Equal(t, []ir.KeyEvent{ir.ReleaseOf(ir.Key1)}, r.Events)
}

func TestEngine_LayerTapActsAsMomentary(t *testing.T) {
	e := newTestEngine()

	r := tick(t, e, lt2)
	assert.Equal(t, 2, r.EffectiveLayer)
	assert.True(t, r.Indicators.L2)
	assert.Empty(t, r.Events)

	r = tick(t, e, lt2, keyA)
	assert.Equal(t, []ir.KeyEvent{ir.PressOf(ir.KeyMouseUp)}, r.Events)

	r = tick(t, e, keyA)
	assert.Equal(t, 0, r.EffectiveLayer)
}

func TestEngine_TransparentSkipsInactiveLayer(t *testing.T) {
	e := newTestEngine()

	// LT(2) alone leaves SYMB off: (1,0) is transparent on MDIA and must
	// resolve on BASE, not on SYMB's KC_LSFT.
	tick(t, e, lt2)
	r := tick(t, e, lt2, chord)
	assert.Equal(t, ir.LayerStack(0b101), r.LayerState)
	assert.Equal(t, []ir.KeyEvent{
		ir.PressOf(ir.KeyLeftCtrl),
		ir.PressOf(ir.KeyLeftShift),
		ir.PressOf(ir.KeyJ),
	}, r.Events)
	assert.Equal(t, ir.IndicatorState{L2: true}, r.Indicators)

	r = tick(t, e, lt2)
	assert.Equal(t, []ir.KeyEvent{
		ir.ReleaseOf(ir.KeyJ),
		ir.ReleaseOf(ir.KeyLeftShift),
		ir.ReleaseOf(ir.KeyLeftCtrl),
	}, r.Events)

	// With SYMB on as well, the same position falls through MDIA to SYMB.
	r = tick(t, e, mo1, lt2, chord)
	assert.Equal(t, ir.LayerStack(0b111), r.LayerState)
	assert.Equal(t, []ir.KeyEvent{ir.PressOf(ir.KeyLeftShift)}, r.Events)
	assert.Equal(t, ir.IndicatorState{L2: true, L3: true}, r.Indicators)
}

func TestEngine_ToggleLayer(t *testing.T) {
	e := newTestEngine()

	tick(t, e, toggle2)
	r := tick(t, e)
	assert.Equal(t, ir.LayerStack(0b101), r.LayerState, "toggle survives release")
	assert.True(t, r.Indicators.L2)

	// MDIA and SYMB are both transparent here, so BASE answers
	r = tick(t, e, altTap)
	assert.Equal(t, []ir.KeyEvent{ir.PressOf(ir.KeyLeftAlt)}, r.Events)
	tick(t, e)

	// SYMB is inactive, so MDIA falls through straight to BASE
	r = tick(t, e, chord)
	assert.Equal(t, []ir.KeyEvent{
		ir.PressOf(ir.KeyLeftCtrl),
		ir.PressOf(ir.KeyLeftShift),
		ir.PressOf(ir.KeyJ),
	}, r.Events)
	assert.False(t, r.Indicators.L3)
	tick(t, e)

	tick(t, e, toggle2)
	r = tick(t, e)
	assert.Equal(t, ir.BaseLayerStack, r.LayerState)
}

func TestEngine_HigherLayerWinsIndicator(t *testing.T) {
	e := newTestEngine()

	r := tick(t, e, mo1, lt2)
	assert.Equal(t, ir.LayerStack(0b111), r.LayerState)
	assert.Equal(t, ir.IndicatorState{L2: true}, r.Indicators)
}

func TestEngine_EdgesInScanOrder(t *testing.T) {
	e := newTestEngine()

	r := tick(t, e, keyA, chord)
	assert.Equal(t, []ir.KeyEvent{
		ir.PressOf(ir.KeyA),
		ir.PressOf(ir.KeyLeftCtrl),
		ir.PressOf(ir.KeyLeftShift),
		ir.PressOf(ir.KeyJ),
	}, r.Events)
}

func TestEngine_LayerChangeAppliesToLaterEdgesInSameTick(t *testing.T) {
	e := newTestEngine()

	// MO(1) at (0,2) is scanned before (1,0), which then resolves on SYMB.
	r := tick(t, e, mo1, chord)
	assert.Equal(t, []ir.KeyEvent{ir.PressOf(ir.KeyLeftShift)}, r.Events)
	assert.Equal(t, ir.IndicatorState{L1: true, L3: true}, r.Indicators)
}

func TestEngine_ShapeErrorChangesNothing(t *testing.T) {
	e := newTestEngine()

	_, err := e.Tick(context.Background(), ir.NewMatrix(3, 4, keyA))
	require.Error(t, err)
	assert.True(t, IsShapeError(err))
	assert.False(t, IsSinkError(err))
	assert.Equal(t, int64(0), e.clock.Current())

	r := tick(t, e, keyA)
	assert.Equal(t, int64(1), r.Seq)
	assert.Equal(t, []ir.KeyEvent{ir.PressOf(ir.KeyA)}, r.Events)
}

func TestEngine_SinkErrorStillAdvances(t *testing.T) {
	boom := errors.New("usb gone")
	host := &recordingHost{err: boom}
	e := newTestEngine(WithHost(host))

	r, err := e.Tick(context.Background(), snap(mo1))
	require.NoError(t, err, "no events, host not called")
	assert.Equal(t, 1, r.EffectiveLayer)

	r, err = e.Tick(context.Background(), snap(mo1, keyA))
	require.Error(t, err)
	assert.True(t, IsSinkError(err))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []ir.KeyEvent{ir.PressOf(ir.Key1)}, r.Events)

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "host", re.Sink)
	assert.Equal(t, int64(2), re.Seq)
}

func TestEngine_IndicatorDriverCalledEveryTick(t *testing.T) {
	var states []ir.IndicatorState
	e := newTestEngine(WithIndicatorDriver(IndicatorFunc(func(_ context.Context, s ir.IndicatorState) error {
		states = append(states, s)
		return nil
	})))

	tick(t, e)
	tick(t, e, lt2)
	tick(t, e, lt2, altTap)
	tick(t, e, mo1, lt2, chord)
	tick(t, e)

	assert.Equal(t, []ir.IndicatorState{
		{},
		{L2: true},
		{L2: true},
		{L2: true, L3: true},
		{},
	}, states)
}

func TestEngine_TriggerMacro(t *testing.T) {
	host := &recordingHost{}
	e := newTestEngine(WithHost(host))

	events, err := e.TriggerMacro(context.Background(), ir.MacroTrigger{ID: 0, Edge: ir.PressEdge})
	require.NoError(t, err)
	assert.Equal(t, []ir.KeyEvent{ir.PressOf(ir.KeyRightShift)}, events)

	events, err = e.TriggerMacro(context.Background(), ir.MacroTrigger{ID: 99, Edge: ir.PressEdge})
	require.NoError(t, err)
	assert.Empty(t, events)

	assert.Equal(t, []ir.KeyEvent{ir.PressOf(ir.KeyRightShift)}, host.Events())
	assert.Equal(t, int64(0), e.clock.Current(), "direct triggers are not ticks")
}

func TestEngine_WithMacroTable(t *testing.T) {
	e := newTestEngine(WithMacroTable(macro.NewTable(nil)))

	r := tick(t, e, macro0)
	assert.Empty(t, r.Events, "unknown macro ids are a no-op")
}

func TestEngine_RecordsAndReplays(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	e := newTestEngine(WithStore(s))
	for _, pressed := range [][]ir.Position{
		{keyA}, {keyA, mo1}, {mo1}, {mo1, keyA}, {}, {macro1}, {}, {toggle2}, {},
	} {
		tick(t, e, pressed...)
	}

	sess, err := s.ReadSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "test", sess.KeymapName)
	assert.Equal(t, ir.MustKeymapHash(testKeymap()), sess.KeymapHash)
	assert.Equal(t, 2, sess.Rows)
	assert.Equal(t, 4, sess.Cols)

	ticks, err := s.ReadTicks(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, ticks, 9)
	assert.Equal(t, []ir.KeyEvent{ir.PressOf(ir.Key1)}, ticks[3].Events)
	assert.Equal(t, ir.LayerStack(0b101), ticks[8].LayerState)

	fresh := New(testKeymap(), WithSessionGenerator(NewFixedGenerator("replay")))
	result, err := s.Replay(ctx, "sess-1", fresh.ReplayStep)
	require.NoError(t, err)
	assert.True(t, result.Deterministic(), "divergence: %+v", result.Divergence)
	assert.Equal(t, 9, result.Ticks)
}

func TestEngine_ReplayDetectsDifferentKeymap(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	e := newTestEngine(WithStore(s))
	tick(t, e, keyA)
	tick(t, e)

	km := testKeymap()
	km.Layers[0].Bindings[0][0] = ir.Bound(ir.Key(ir.KeyB))
	fresh := New(km, WithSessionGenerator(NewFixedGenerator("replay")))

	result, err := s.Replay(ctx, "sess-1", fresh.ReplayStep)
	require.NoError(t, err)
	require.False(t, result.Deterministic())
	assert.Equal(t, int64(1), result.Divergence.Seq)
	assert.Equal(t, "events", result.Divergence.Field)
}

func TestEngine_RunProcessesQueueUntilStopped(t *testing.T) {
	host := &recordingHost{}
	e := newTestEngine(WithHost(host))

	assert.True(t, e.Enqueue(snap(keyA)))
	assert.True(t, e.Enqueue(snap(keyA, chord)))
	assert.True(t, e.Enqueue(snap()))
	assert.Equal(t, 3, e.QueueLen())
	e.Stop()
	assert.False(t, e.Enqueue(snap()), "enqueue after stop should fail")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Run(ctx))

	assert.Equal(t, 0, e.QueueLen())
	assert.Equal(t, []ir.KeyEvent{
		ir.PressOf(ir.KeyA),
		ir.PressOf(ir.KeyLeftCtrl), ir.PressOf(ir.KeyLeftShift), ir.PressOf(ir.KeyJ),
		ir.ReleaseOf(ir.KeyA),
		ir.ReleaseOf(ir.KeyJ), ir.ReleaseOf(ir.KeyLeftShift), ir.ReleaseOf(ir.KeyLeftCtrl),
	}, host.Events())
}

func TestEngine_RunContinuesAfterBadTick(t *testing.T) {
	host := &recordingHost{}
	e := newTestEngine(WithHost(host))

	e.Enqueue(ir.NewMatrix(1, 1))
	e.Enqueue(snap(keyA))
	e.Stop()

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, []ir.KeyEvent{ir.PressOf(ir.KeyA)}, host.Events())
}

func TestEngine_RunStopsOnCancel(t *testing.T) {
	e := newTestEngine()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRuntimeErrorMessages(t *testing.T) {
	err := NewShapeError(3, 4, 2, 4)
	assert.Equal(t, "MATRIX_SHAPE: snapshot is 3x4, keymap is 2x4", err.Error())

	sinkErr := NewSinkError("store", 7, errors.New("disk full"))
	assert.Equal(t, "SINK_FAILED: output sink failed (sink=store, seq=7): disk full", sinkErr.Error())
}
