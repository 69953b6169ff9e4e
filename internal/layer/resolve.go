package layer

import (
	"math/bits"

	"github.com/roach88/keycore/internal/ir"
)

// Resolve returns the effective layer: the index of the highest set bit.
// A stack with only the base layer resolves to 0. The caller guarantees
// bit 0 is set; an all-zero stack also resolves to 0.
func Resolve(stack ir.LayerStack) int {
	if stack == 0 {
		return 0
	}
	return bits.Len32(uint32(stack)) - 1
}

// Lookup returns the action bound at pos under stack. The search starts
// at the effective layer; a transparent binding falls through to the next
// lower layer that is active in stack, ending at layer 0. Layer 0 is never
// transparent in a validated keymap; if it is, Lookup returns the None
// action.
func Lookup(km *ir.Keymap, pos ir.Position, stack ir.LayerStack) ir.Action {
	for l := Resolve(stack); l > 0; l-- {
		if !stack.Has(l) {
			continue
		}
		if a, ok := km.Binding(pos, l).Action(); ok {
			return a
		}
	}
	if a, ok := km.Binding(pos, 0).Action(); ok {
		return a
	}
	return ir.None()
}

// Lookuper adapts a keymap to the func(pos, stack) shape used by the
// indicator controller.
func Lookuper(km *ir.Keymap) func(ir.Position, ir.LayerStack) ir.Action {
	return func(pos ir.Position, stack ir.LayerStack) ir.Action {
		return Lookup(km, pos, stack)
	}
}
