package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/keycore/internal/ir"
)

// ReadSession retrieves a single session by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, keymap_name, keymap_hash, matrix_rows, matrix_cols, engine_version, ir_version
		FROM sessions
		WHERE id = ?
	`, id)

	var sess Session
	err := row.Scan(&sess.ID, &sess.KeymapName, &sess.KeymapHash, &sess.Rows, &sess.Cols,
		&sess.EngineVersion, &sess.IRVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	return sess, nil
}

// ListSessions returns every session in insertion order.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, keymap_name, keymap_hash, matrix_rows, matrix_cols, engine_version, ir_version
		FROM sessions
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.KeymapName, &sess.KeymapHash, &sess.Rows, &sess.Cols,
			&sess.EngineVersion, &sess.IRVersion); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadTicks returns all ticks of a session with their events.
// Ticks are ordered by seq ASC; events keep their emission order.
//
// Returns an empty slice (not nil) if the session has no ticks.
func (s *Store) ReadTicks(ctx context.Context, sessionID string) ([]Tick, error) {
	ticks, err := s.readTickRows(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Events are read after the tick cursor is closed: the pool has a single
	// connection and a nested query would block on it.
	events, err := s.readSessionEvents(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	for i := range ticks {
		if evs, ok := events[ticks[i].Seq]; ok {
			ticks[i].Events = evs
		}
	}
	return ticks, nil
}

func (s *Store) readTickRows(ctx context.Context, sessionID string) ([]Tick, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, layer_state, effective_layer, l1, l2, l3, board, pressed, tick_hash
		FROM ticks
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	ticks := []Tick{}
	for rows.Next() {
		var (
			t              Tick
			layerState     int64
			l1, l2, l3, bd int
			pressedJSON    string
		)
		if err := rows.Scan(&t.SessionID, &t.Seq, &layerState, &t.EffectiveLayer,
			&l1, &l2, &l3, &bd, &pressedJSON, &t.Hash); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		t.LayerState = ir.LayerStack(layerState)
		t.Indicators = ir.IndicatorState{L1: l1 != 0, L2: l2 != 0, L3: l3 != 0, Board: bd != 0}
		if t.Pressed, err = unmarshalPressed(pressedJSON); err != nil {
			return nil, fmt.Errorf("tick %d: %w", t.Seq, err)
		}
		t.Events = []ir.KeyEvent{}
		ticks = append(ticks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticks: %w", err)
	}
	return ticks, nil
}

func (s *Store) readSessionEvents(ctx context.Context, sessionID string) (map[int64][]ir.KeyEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tick_seq, kind, keycode
		FROM key_events
		WHERE session_id = ?
		ORDER BY tick_seq ASC, idx ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query key events: %w", err)
	}
	defer rows.Close()

	events := make(map[int64][]ir.KeyEvent)
	for rows.Next() {
		var (
			seq     int64
			kind    string
			keycode int
		)
		if err := rows.Scan(&seq, &kind, &keycode); err != nil {
			return nil, fmt.Errorf("scan key event: %w", err)
		}
		k, err := ir.ParseKeyEventKind(kind)
		if err != nil {
			return nil, fmt.Errorf("tick %d: %w", seq, err)
		}
		events[seq] = append(events[seq], ir.KeyEvent{Kind: k, Keycode: ir.Keycode(keycode)})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate key events: %w", err)
	}
	return events, nil
}

// ReadEventsByKeycode returns every event for keycode in a session, ordered
// by tick seq then emission order. Backed by idx_key_events_keycode.
func (s *Store) ReadEventsByKeycode(ctx context.Context, sessionID string, kc ir.Keycode) ([]int64, []ir.KeyEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tick_seq, kind
		FROM key_events
		WHERE session_id = ? AND keycode = ?
		ORDER BY tick_seq ASC, idx ASC
	`, sessionID, int(kc))
	if err != nil {
		return nil, nil, fmt.Errorf("query key events by keycode: %w", err)
	}
	defer rows.Close()

	seqs := []int64{}
	events := []ir.KeyEvent{}
	for rows.Next() {
		var (
			seq  int64
			kind string
		)
		if err := rows.Scan(&seq, &kind); err != nil {
			return nil, nil, fmt.Errorf("scan key event: %w", err)
		}
		k, err := ir.ParseKeyEventKind(kind)
		if err != nil {
			return nil, nil, fmt.Errorf("tick %d: %w", seq, err)
		}
		seqs = append(seqs, seq)
		events = append(events, ir.KeyEvent{Kind: k, Keycode: kc})
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate key events: %w", err)
	}
	return seqs, events, nil
}
