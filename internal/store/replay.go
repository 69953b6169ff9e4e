package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/keycore/internal/ir"
)

// StepFunc runs one matrix snapshot through a fresh engine and reports the
// tick it produced. The engine must not be recording into the session being
// replayed.
type StepFunc func(ctx context.Context, m ir.Matrix) (Tick, error)

// Divergence describes the first tick whose replayed outcome differs from
// the recorded one.
type Divergence struct {
	Seq   int64  `json:"seq"`
	Field string `json:"field"`
	Want  string `json:"recorded"`
	Got   string `json:"replayed"`
}

// ReplayResult summarises a replay.
type ReplayResult struct {
	SessionID  string
	Ticks      int
	Divergence *Divergence
}

// Deterministic reports whether every tick matched.
func (r *ReplayResult) Deterministic() bool {
	return r.Divergence == nil
}

// Replay re-runs the stored snapshots of a session, in seq order, through
// step and compares each outcome with the recorded tick. It stops at the
// first divergence.
//
// Replay is the same code path as a live run: the engine sees the same
// snapshots in the same order and must produce the same layer state,
// indicators and events.
func (s *Store) Replay(ctx context.Context, sessionID string, step StepFunc) (*ReplayResult, error) {
	sess, err := s.ReadSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	ticks, err := s.ReadTicks(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	result := &ReplayResult{SessionID: sessionID}
	for _, want := range ticks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		got, err := step(ctx, ir.NewMatrix(sess.Rows, sess.Cols, want.Pressed...))
		if err != nil {
			return nil, fmt.Errorf("replay tick %d: %w", want.Seq, err)
		}
		result.Ticks++

		if d := compareTicks(want, got); d != nil {
			result.Divergence = d
			return result, nil
		}
	}

	return result, nil
}

func compareTicks(want, got Tick) *Divergence {
	switch {
	case want.LayerState != got.LayerState:
		return &Divergence{
			Seq:   want.Seq,
			Field: "layer_state",
			Want:  fmt.Sprintf("%#b", uint32(want.LayerState)),
			Got:   fmt.Sprintf("%#b", uint32(got.LayerState)),
		}
	case want.Indicators != got.Indicators:
		return &Divergence{
			Seq:   want.Seq,
			Field: "indicators",
			Want:  want.Indicators.String(),
			Got:   got.Indicators.String(),
		}
	case !slices.Equal(want.Events, got.Events):
		return &Divergence{
			Seq:   want.Seq,
			Field: "events",
			Want:  eventsString(want.Events),
			Got:   eventsString(got.Events),
		}
	}
	return nil
}

func eventsString(events []ir.KeyEvent) string {
	data, err := ir.MarshalCanonical(ir.EventsValue(events))
	if err != nil {
		return fmt.Sprintf("%v", events)
	}
	return string(data)
}
