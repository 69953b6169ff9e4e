package macro

import "github.com/roach88/keycore/internal/ir"

// Behavior is the run-time effect of a macro. Sealed.
type Behavior interface {
	// Play returns the events for one edge. The returned slice is owned by
	// the caller.
	Play(edge ir.Edge) []ir.KeyEvent

	behavior()
}

// HeldModifier presses Keycode on the press edge and releases it on the
// release edge.
type HeldModifier struct {
	Keycode ir.Keycode
}

func (HeldModifier) behavior() {}

// Play implements Behavior.
func (h HeldModifier) Play(edge ir.Edge) []ir.KeyEvent {
	switch edge {
	case ir.PressEdge:
		return []ir.KeyEvent{ir.PressOf(h.Keycode)}
	case ir.ReleaseEdge:
		return []ir.KeyEvent{ir.ReleaseOf(h.Keycode)}
	default:
		return nil
	}
}

// Scripted emits Script in order on the press edge.
type Scripted struct {
	Script []ir.KeyEvent
}

func (Scripted) behavior() {}

// Play implements Behavior.
func (s Scripted) Play(edge ir.Edge) []ir.KeyEvent {
	if edge != ir.PressEdge {
		return nil
	}
	out := make([]ir.KeyEvent, len(s.Script))
	copy(out, s.Script)
	return out
}

// FromDef converts a compiled definition into its behavior. A definition
// with a held keycode is a HeldModifier; anything else is Scripted.
func FromDef(def ir.MacroDef) Behavior {
	if def.Held != nil {
		return HeldModifier{Keycode: *def.Held}
	}
	script := make([]ir.KeyEvent, len(def.Script))
	copy(script, def.Script)
	return Scripted{Script: script}
}
