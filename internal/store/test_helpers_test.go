package store

import (
	"testing"

	"github.com/roach88/keycore/internal/ir"
)

// createTestStore creates a new in-memory store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession creates a 2x3 session with minimal required fields.
func createTestSession(id string) Session {
	return Session{
		ID:            id,
		KeymapName:    "test",
		KeymapHash:    "test-hash",
		Rows:          2,
		Cols:          3,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
}

// createTestTick creates a tick with the given pressed positions and events.
func createTestTick(sessionID string, seq int64, pressed []ir.Position, events ...ir.KeyEvent) Tick {
	if pressed == nil {
		pressed = []ir.Position{}
	}
	if events == nil {
		events = []ir.KeyEvent{}
	}
	return Tick{
		SessionID:  sessionID,
		Seq:        seq,
		LayerState: ir.BaseLayerStack,
		Pressed:    pressed,
		Events:     events,
	}
}
