package layer

import "github.com/roach88/keycore/internal/ir"

// Stack owns the active-layer bitmask. Bit 0 is always set.
//
// Stack is not safe for concurrent use; the engine mutates it from its
// single tick loop.
type Stack struct {
	state ir.LayerStack
}

// NewStack returns a stack with only the base layer active.
func NewStack() *Stack {
	return &Stack{state: ir.BaseLayerStack}
}

// NewStackFrom restores a stack, forcing the base layer on.
func NewStackFrom(state ir.LayerStack) *Stack {
	return &Stack{state: state | ir.BaseLayerStack}
}

// State returns the current bitmask.
func (s *Stack) State() ir.LayerStack {
	return s.state
}

// On activates layer. Out-of-range layers are ignored.
func (s *Stack) On(layer int) {
	if layer <= 0 || layer >= ir.MaxLayers {
		return
	}
	s.state |= 1 << uint(layer)
}

// Off deactivates layer. The base layer cannot be deactivated.
func (s *Stack) Off(layer int) {
	if layer <= 0 || layer >= ir.MaxLayers {
		return
	}
	s.state &^= 1 << uint(layer)
}

// Toggle flips layer. The base layer cannot be toggled.
func (s *Stack) Toggle(layer int) {
	if layer <= 0 || layer >= ir.MaxLayers {
		return
	}
	s.state ^= 1 << uint(layer)
}

// Clear deactivates every layer except the base layer.
func (s *Stack) Clear() {
	s.state = ir.BaseLayerStack
}
