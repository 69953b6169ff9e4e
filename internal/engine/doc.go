// Package engine implements the keycore per-tick firmware loop.
//
// Each tick takes one immutable matrix snapshot, diffs it against the
// previously pressed set, resolves every edge through the layer resolver,
// feeds macro-bound edges to the macro player, refreshes the indicators,
// and hands the results to the host transport, the indicator driver and
// (optionally) the tick log.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// All ticks run on one goroutine. Snapshots arrive through Enqueue (safe
// from any goroutine) and Run processes them in FIFO order. This ensures:
//   - Edges are processed in a fixed order (row-major scan order)
//   - The layer stack has exactly one writer
//   - A stored session replays to identical output
//
// Tick Processing Flow:
//  1. Check the snapshot shape against the keymap
//  2. Diff against the previous pressed set; handle each edge in scan order
//  3. Press edges resolve the action under the effective layer and latch
//     it; release edges undo the latched action
//  4. Refresh indicators from the post-edge layer stack and the full snapshot
//  5. Emit events (taps expanded) and indicators; record the tick
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Every tick is stamped with a monotonic seq from the clock. Wall-clock time
// is never recorded.
//
// Latched Actions:
// The action resolved at press time is the one undone at release time, even
// if the layer stack changed while the key was held.
package engine
