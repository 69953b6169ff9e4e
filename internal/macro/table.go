package macro

import "github.com/roach88/keycore/internal/ir"

// Well-known macro ids of the shipped ErgoDox keymap.
const (
	ShadowShift ir.MacroID = 0
	AlfredDash  ir.MacroID = 1
)

// Table maps macro ids to behaviors. It is built once at startup and only
// read afterwards.
type Table struct {
	behaviors map[ir.MacroID]Behavior
}

// NewTable builds a table from compiled definitions. Later definitions with
// a duplicate id replace earlier ones; the compiler rejects duplicates
// before this point.
func NewTable(defs []ir.MacroDef) *Table {
	t := &Table{behaviors: make(map[ir.MacroID]Behavior, len(defs))}
	for _, def := range defs {
		t.behaviors[def.ID] = FromDef(def)
	}
	return t
}

// DefaultTable returns the macros of the shipped keymap: a shadow right
// shift and the launcher shortcut "ctrl+space, then type 'dash '".
func DefaultTable() *Table {
	rsft := ir.KeyRightShift
	return NewTable(DefaultDefs(rsft))
}

// DefaultDefs returns the shipped macro definitions with held as the
// shadow modifier keycode.
func DefaultDefs(held ir.Keycode) []ir.MacroDef {
	return []ir.MacroDef{
		{ID: ShadowShift, Name: "shadow_shift", Held: &held},
		{ID: AlfredDash, Name: "alfred_dash", Script: []ir.KeyEvent{
			ir.PressOf(ir.KeyLeftCtrl),
			ir.PressOf(ir.KeySpace),
			ir.ReleaseOf(ir.KeySpace),
			ir.ReleaseOf(ir.KeyLeftCtrl),
			ir.TapOf(ir.KeyD),
			ir.TapOf(ir.KeyA),
			ir.TapOf(ir.KeyS),
			ir.TapOf(ir.KeyH),
			ir.TapOf(ir.KeySpace),
		}},
	}
}

// Play returns the events for trigger. Unknown ids yield an empty sequence.
func (t *Table) Play(trigger ir.MacroTrigger) []ir.KeyEvent {
	b, ok := t.behaviors[trigger.ID]
	if !ok {
		return nil
	}
	return b.Play(trigger.Edge)
}

// Lookup returns the behavior for id.
func (t *Table) Lookup(id ir.MacroID) (Behavior, bool) {
	b, ok := t.behaviors[id]
	return b, ok
}

// Len returns the number of defined macros.
func (t *Table) Len() int {
	return len(t.behaviors)
}
