// Package layer resolves the effective layer and owns the active-layer stack.
//
// Resolve is the pure leaf of the per-tick pipeline: given the active-layer
// bitmask it returns the highest set bit. Lookup applies the keymap's
// transparent fall-through across the active layers. Stack is the single owner of the bitmask and
// guarantees that the base layer can never be switched off.
package layer
