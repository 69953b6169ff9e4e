package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keycore/internal/ir"
)

// echoStep replays a stored tick by looking it up by snapshot, standing in
// for a deterministic engine.
func echoStep(t *testing.T, recorded []Tick) StepFunc {
	i := 0
	return func(ctx context.Context, m ir.Matrix) (Tick, error) {
		want := recorded[i]
		i++
		assert.Equal(t, want.Pressed, nonNil(m.Pressed()))
		return want, nil
	}
}

func nonNil(p []ir.Position) []ir.Position {
	if p == nil {
		return []ir.Position{}
	}
	return p
}

func seedSession(t *testing.T, s *Store) []Tick {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.WriteSession(ctx, createTestSession("sess-1")))

	ticks := []Tick{
		createTestTick("sess-1", 1, []ir.Position{{Row: 0, Col: 0}}, ir.PressOf(ir.KeyA)),
		createTestTick("sess-1", 2, []ir.Position{{Row: 0, Col: 0}, {Row: 1, Col: 2}}),
		createTestTick("sess-1", 3, nil, ir.ReleaseOf(ir.KeyA)),
	}
	ticks[1].LayerState = 0b11
	ticks[1].Indicators = ir.IndicatorState{L1: true}
	for _, tick := range ticks {
		require.NoError(t, s.WriteTick(ctx, tick))
	}

	stored, err := s.ReadTicks(ctx, "sess-1")
	require.NoError(t, err)
	return stored
}

func TestReplay_Deterministic(t *testing.T) {
	s := createTestStore(t)
	recorded := seedSession(t, s)

	result, err := s.Replay(context.Background(), "sess-1", echoStep(t, recorded))
	require.NoError(t, err)
	assert.True(t, result.Deterministic())
	assert.Equal(t, 3, result.Ticks)
}

func TestReplay_ReportsFirstDivergence(t *testing.T) {
	s := createTestStore(t)
	recorded := seedSession(t, s)

	calls := 0
	step := func(ctx context.Context, m ir.Matrix) (Tick, error) {
		got := recorded[calls]
		calls++
		if got.Seq == 2 {
			got.Indicators.L1 = false
		}
		if got.Seq == 3 {
			got.Events = nil
		}
		return got, nil
	}

	result, err := s.Replay(context.Background(), "sess-1", step)
	require.NoError(t, err)
	require.False(t, result.Deterministic())
	assert.Equal(t, 2, calls, "replay stops at the first divergence")
	assert.Equal(t, int64(2), result.Divergence.Seq)
	assert.Equal(t, "indicators", result.Divergence.Field)
	assert.Contains(t, result.Divergence.Want, "L1=on")
	assert.Contains(t, result.Divergence.Got, "L1=off")
}

func TestReplay_LayerDivergence(t *testing.T) {
	s := createTestStore(t)
	recorded := seedSession(t, s)

	step := func(ctx context.Context, m ir.Matrix) (Tick, error) {
		got := recorded[0]
		got.LayerState = 0b101
		return got, nil
	}

	result, err := s.Replay(context.Background(), "sess-1", step)
	require.NoError(t, err)
	require.NotNil(t, result.Divergence)
	assert.Equal(t, "layer_state", result.Divergence.Field)
	assert.Equal(t, "0b1", result.Divergence.Want)
	assert.Equal(t, "0b101", result.Divergence.Got)
}

func TestReplay_StepError(t *testing.T) {
	s := createTestStore(t)
	seedSession(t, s)

	boom := errors.New("boom")
	_, err := s.Replay(context.Background(), "sess-1", func(context.Context, ir.Matrix) (Tick, error) {
		return Tick{}, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestReplay_UnknownSession(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Replay(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
