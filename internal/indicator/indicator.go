// Package indicator computes the status outputs for one tick.
//
// The state is recomputed from scratch every tick from the active-layer
// stack and the full matrix snapshot; nothing is carried between ticks.
package indicator

import (
	"github.com/roach88/keycore/internal/ir"
	"github.com/roach88/keycore/internal/layer"
)

// ActionLookup returns the action bound at a position under the active
// layers, with transparent bindings already resolved against them.
type ActionLookup func(pos ir.Position, stack ir.LayerStack) ir.Action

// ModifierPredicate reports whether an action holds a modifier.
type ModifierPredicate func(ir.Action) bool

// Refresh returns the indicator state for one tick.
//
// L1 and L2 light when layer 1 or 2 is the effective layer; the base layer
// lights nothing. L3 lights when any pressed position resolves, starting
// at the effective layer and falling through only active layers, to a
// modifier action. Board is always off.
func Refresh(stack ir.LayerStack, matrix ir.Matrix, lookup ActionLookup, isMod ModifierPredicate) ir.IndicatorState {
	effective := layer.Resolve(stack)

	state := ir.IndicatorState{
		L1: effective == 1,
		L2: effective == 2,
	}

	for _, pos := range matrix.Pressed() {
		if isMod(lookup(pos, stack)) {
			state.L3 = true
			break
		}
	}

	return state
}

// IsModifierAction is the default ModifierPredicate: a key action whose
// keycode is a modifier, alone or chorded with more modifiers. Mod-taps
// such as GUI_T(KC_QUOT) and chords on an ordinary key such as
// ctrl+shift+J carry modifier bits but no modifier keycode, so they do
// not count.
func IsModifierAction(a ir.Action) bool {
	return a.Kind == ir.ActionKey && a.Keycode.IsModifier()
}

// Controller binds Refresh to one keymap.
type Controller struct {
	lookup ActionLookup
	isMod  ModifierPredicate
}

// NewController returns a controller for km using IsModifierAction.
func NewController(km *ir.Keymap) *Controller {
	return &Controller{lookup: layer.Lookuper(km), isMod: IsModifierAction}
}

// Refresh computes the state for this tick's inputs.
func (c *Controller) Refresh(stack ir.LayerStack, matrix ir.Matrix) ir.IndicatorState {
	return Refresh(stack, matrix, c.lookup, c.isMod)
}
