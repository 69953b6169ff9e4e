package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/keycore/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Session      string       `json:"session"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonical converts a TraceSnapshot to an ir.Object for canonical JSON
// serialization. Layer states render as active layer lists and indicators
// in their display form, so golden files stay readable.
func (s *TraceSnapshot) toCanonical() ir.Object {
	trace := make(ir.List, len(s.Trace))
	for i, t := range s.Trace {
		layers := make(ir.List, 0, len(t.LayerState.Layers()))
		for _, l := range t.LayerState.Layers() {
			layers = append(layers, ir.Int(l))
		}
		pressed := make(ir.List, len(t.Pressed))
		for j, p := range t.Pressed {
			pressed[j] = ir.Str(p.String())
		}
		trace[i] = ir.Object{
			"seq":             ir.Int(t.Seq),
			"layers":          layers,
			"effective_layer": ir.Int(t.EffectiveLayer),
			"indicators":      ir.Str(t.Indicators.String()),
			"pressed":         pressed,
			"events":          ir.EventsValue(t.Events),
		}
	}

	return ir.Object{
		"scenario_name": ir.Str(s.ScenarioName),
		"session":       ir.Str(s.Session),
		"trace":         trace,
	}
}

// MarshalTrace renders a result's trace as canonical JSON.
func MarshalTrace(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Session:      result.Session,
		Trace:        result.Trace,
	}
	return ir.MarshalCanonical(snapshot.toCanonical())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
