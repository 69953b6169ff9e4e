package store

import "github.com/roach88/keycore/internal/ir"

// Session is one engine run against one compiled keymap.
type Session struct {
	ID            string
	KeymapName    string
	KeymapHash    string
	Rows          int
	Cols          int
	EngineVersion string
	IRVersion     string
}

// Tick is the recorded outcome of one scheduler tick.
//
// LayerState is the stack after the tick's edges were applied. Events are
// the logical events in emission order, before Tap expansion.
type Tick struct {
	SessionID      string
	Seq            int64
	LayerState     ir.LayerStack
	EffectiveLayer int
	Indicators     ir.IndicatorState
	Pressed        []ir.Position
	Events         []ir.KeyEvent

	// Hash is ir.TickHash of the observable fields. WriteTick computes it;
	// reads return the stored value.
	Hash string
}
