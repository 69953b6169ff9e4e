// Package ir provides the canonical domain types shared by every keycore package.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// keymap model, the key event model and the indicator model at the bottom
// of the dependency graph.
//
// Key design constraints:
//   - Keycodes are HID usage ids (uint8); composite actions are tagged variants,
//     never magic numbers
//   - "Transparent" is a Binding variant, not an Action value
//   - Matrix snapshots are immutable once constructed
//   - Canonical JSON (sorted keys, NFC strings, no floats) is the only
//     serialization used for hashing and golden traces
package ir
