// Package store provides SQLite-backed durable storage for keycore tick logs.
//
// The store implements an append-only log with:
//   - Sessions: one run of the engine against one compiled keymap
//   - Ticks: the outcome of every scheduler tick (layer state, indicators,
//     the pressed snapshot)
//   - Key Events: the synthetic events emitted during a tick, in order
//
// # Ordering
//
// All ordering uses the tick seq (logical clock), never timestamps. Reads
// return ticks ORDER BY seq ASC and events ORDER BY tick_seq ASC, idx ASC
// so a stored session replays identically.
//
// # Idempotency
//
// Writes use ON CONFLICT DO NOTHING keyed on (session_id, seq), so
// re-recording a tick after a crash is harmless.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
