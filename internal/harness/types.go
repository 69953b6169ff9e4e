package harness

import (
	"github.com/roach88/keycore/internal/engine"
	"github.com/roach88/keycore/internal/ir"
)

// TraceEvent is one processed tick as seen by the harness.
type TraceEvent struct {
	Seq            int64             `json:"seq"`
	LayerState     ir.LayerStack     `json:"layer_state"`
	EffectiveLayer int               `json:"effective_layer"`
	Indicators     ir.IndicatorState `json:"indicators"`
	Pressed        []ir.Position     `json:"pressed"`
	Events         []ir.KeyEvent     `json:"events"`
}

// traceEventFrom copies an engine tick result into the trace.
func traceEventFrom(r engine.TickResult) TraceEvent {
	pressed := r.Pressed
	if pressed == nil {
		pressed = []ir.Position{}
	}
	events := r.Events
	if events == nil {
		events = []ir.KeyEvent{}
	}
	return TraceEvent{
		Seq:            r.Seq,
		LayerState:     r.LayerState,
		EffectiveLayer: r.EffectiveLayer,
		Indicators:     r.Indicators,
		Pressed:        pressed,
		Events:         events,
	}
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every tick expectation, assertion and the replay check passed.
	Pass bool `json:"pass"`

	// Session is the id the run was recorded under.
	Session string `json:"session"`

	// Trace contains one entry per tick in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTick appends a tick to the trace.
func (r *Result) AddTick(t TraceEvent) {
	r.Trace = append(r.Trace, t)
}

// Events flattens the trace's events in emission order.
func (r *Result) Events() []ir.KeyEvent {
	var out []ir.KeyEvent
	for _, t := range r.Trace {
		out = append(out, t.Events...)
	}
	return out
}

// Last returns the final tick. ok is false for an empty trace.
func (r *Result) Last() (TraceEvent, bool) {
	if len(r.Trace) == 0 {
		return TraceEvent{}, false
	}
	return r.Trace[len(r.Trace)-1], true
}
