package store

import (
	"context"
	"fmt"

	"github.com/roach88/keycore/internal/ir"
)

// WriteSession inserts a session record into the store.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions
		(id, keymap_name, keymap_hash, matrix_rows, matrix_cols, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.KeymapName,
		sess.KeymapHash,
		sess.Rows,
		sess.Cols,
		sess.EngineVersion,
		sess.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WriteTick inserts a tick and its key events in one transaction.
// Uses ON CONFLICT DO NOTHING for idempotency: if (session, seq) already
// exists neither the tick nor its events are rewritten.
//
// Note: The session referenced by SessionID must exist (foreign key constraint).
func (s *Store) WriteTick(ctx context.Context, t Tick) error {
	pressedJSON, err := marshalPressed(t.Pressed)
	if err != nil {
		return fmt.Errorf("write tick: %w", err)
	}

	hash, err := ir.TickHash(t.LayerState, t.Indicators, t.Events)
	if err != nil {
		return fmt.Errorf("write tick: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write tick: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO ticks
		(session_id, seq, layer_state, effective_layer, l1, l2, l3, board, pressed, tick_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`,
		t.SessionID,
		t.Seq,
		int64(t.LayerState),
		t.EffectiveLayer,
		boolToInt(t.Indicators.L1),
		boolToInt(t.Indicators.L2),
		boolToInt(t.Indicators.L3),
		boolToInt(t.Indicators.Board),
		pressedJSON,
		hash,
	)
	if err != nil {
		return fmt.Errorf("write tick: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("write tick: rows affected: %w", err)
	}
	if n == 0 {
		// Already recorded
		return nil
	}

	for i, ev := range t.Events {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO key_events (session_id, tick_seq, idx, kind, keycode)
			VALUES (?, ?, ?, ?, ?)
		`, t.SessionID, t.Seq, i, ev.Kind.String(), int(ev.Keycode))
		if err != nil {
			return fmt.Errorf("write tick: event %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write tick: commit: %w", err)
	}
	return nil
}
