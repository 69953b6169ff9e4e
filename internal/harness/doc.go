// Package harness provides conformance testing for keymaps and the engine.
//
// The harness compiles a keymap, feeds a scripted sequence of matrix
// snapshots through a real engine, and checks the events, layers and
// indicators each tick produces.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	keymap: ../keymaps/mini
//	session: test-session-0001
//	ticks:
//	  - pressed: ["0,2"]
//	    expect:
//	      layer: 1
//	      indicators: {l1: true, l2: false, l3: false, board: false}
//	      events: []
//	  - pressed: ["0,2", "0,0"]
//	    expect:
//	      events: ["press KC_1"]
//	assertions:
//	  - type: events_order
//	    events: ["press KC_1", "release KC_1"]
//	  - type: final_layer
//	    layer: 0
//
// Each tick lists every position pressed in that snapshot, not just the
// changes. Events are logical: a macro tap is written "tap KC_X" even
// though the host receives a press and a release.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - events_order: Verifies events appear in the specified relative order
//   - event_count: Verifies an event appears exactly N times in the tick log
//   - final_layer: Verifies the effective layer after the last tick
//   - indicator: Verifies the indicator state recorded for one tick
//
// # Deterministic Testing
//
// All scenarios execute with a deterministic clock and session id to
// ensure reproducible test results and golden snapshot comparison.
//
// The harness uses:
//   - Fixed session ids (from scenario.session or "test-session-default")
//   - Deterministic logical clock (testutil.DeterministicClock)
//   - In-memory SQLite database (isolated per test)
//
// After the last tick the recorded session is replayed through a fresh
// engine; any divergence fails the scenario.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/momentary.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
