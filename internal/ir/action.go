package ir

import "fmt"

// ActionKind discriminates the Action variant.
type ActionKind uint8

const (
	// ActionNone does nothing (KC_NO).
	ActionNone ActionKind = iota
	// ActionKey reports Keycode, optionally chorded with Mods.
	ActionKey
	// ActionModTap holds Mods while pressed (tap timing is not modelled).
	ActionModTap
	// ActionLayerMomentary activates Layer while held (MO).
	ActionLayerMomentary
	// ActionLayerToggle flips Layer on press (TG).
	ActionLayerToggle
	// ActionLayerTap activates Layer while held; the tap keycode is kept
	// for display only (LT).
	ActionLayerTap
	// ActionMacro triggers macro MacroID on both edges (M).
	ActionMacro
)

var actionKindNames = map[ActionKind]string{
	ActionNone:           "none",
	ActionKey:            "key",
	ActionModTap:         "mod_tap",
	ActionLayerMomentary: "layer_momentary",
	ActionLayerToggle:    "layer_toggle",
	ActionLayerTap:       "layer_tap",
	ActionMacro:          "macro",
}

func (k ActionKind) String() string {
	if s, ok := actionKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ActionKind(%d)", uint8(k))
}

// Action is the logical behavior bound to a matrix position on one layer.
// Only the fields relevant to Kind are meaningful; use the constructors.
type Action struct {
	Kind    ActionKind `json:"kind"`
	Keycode Keycode    `json:"keycode,omitempty"`
	Mods    Mods       `json:"mods,omitempty"`
	Layer   int        `json:"layer,omitempty"`
	Macro   MacroID    `json:"macro,omitempty"`
}

// None returns the no-op action.
func None() Action { return Action{Kind: ActionNone} }

// Key returns a plain key action.
func Key(kc Keycode) Action { return Action{Kind: ActionKey, Keycode: kc} }

// Chord returns a key action that also holds mods.
func Chord(mods Mods, kc Keycode) Action {
	return Action{Kind: ActionKey, Keycode: kc, Mods: mods}
}

// ModTap returns a mod-tap action.
func ModTap(mods Mods, kc Keycode) Action {
	return Action{Kind: ActionModTap, Keycode: kc, Mods: mods}
}

// Momentary returns an MO(layer) action.
func Momentary(layer int) Action { return Action{Kind: ActionLayerMomentary, Layer: layer} }

// Toggle returns a TG(layer) action.
func Toggle(layer int) Action { return Action{Kind: ActionLayerToggle, Layer: layer} }

// LayerTap returns an LT(layer, kc) action.
func LayerTap(layer int, kc Keycode) Action {
	return Action{Kind: ActionLayerTap, Layer: layer, Keycode: kc}
}

// Macro returns an M(id) action.
func Macro(id MacroID) Action { return Action{Kind: ActionMacro, Macro: id} }

// String renders the action in keymap source syntax.
func (a Action) String() string {
	switch a.Kind {
	case ActionNone:
		return "KC_NO"
	case ActionKey:
		s := a.Keycode.String()
		for i := len(modNames) - 1; i >= 0; i-- {
			if a.Mods&(1<<i) != 0 {
				s = modNames[i] + "(" + s + ")"
			}
		}
		return s
	case ActionModTap:
		return fmt.Sprintf("MT(%s, %s)", a.Mods, a.Keycode)
	case ActionLayerMomentary:
		return fmt.Sprintf("MO(%d)", a.Layer)
	case ActionLayerToggle:
		return fmt.Sprintf("TG(%d)", a.Layer)
	case ActionLayerTap:
		return fmt.Sprintf("LT(%d, %s)", a.Layer, a.Keycode)
	case ActionMacro:
		return fmt.Sprintf("M(%d)", a.Macro)
	default:
		return a.Kind.String()
	}
}

// Binding is the table entry for one position on one layer: either a bound
// Action or Transparent, meaning "fall through to the next lower layer".
type Binding struct {
	action      Action
	transparent bool
}

// Bound wraps a concrete action.
func Bound(a Action) Binding { return Binding{action: a} }

// Transparent is the fall-through binding (KC_TRNS).
var Transparent = Binding{transparent: true}

// IsTransparent reports whether b falls through.
func (b Binding) IsTransparent() bool { return b.transparent }

// Action returns the bound action. ok is false for Transparent.
func (b Binding) Action() (a Action, ok bool) {
	if b.transparent {
		return Action{}, false
	}
	return b.action, true
}

// String renders the binding in keymap source syntax.
func (b Binding) String() string {
	if b.transparent {
		return "KC_TRNS"
	}
	return b.action.String()
}
