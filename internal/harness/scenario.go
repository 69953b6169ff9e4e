package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/keycore/internal/ir"
)

// Scenario defines a conformance test scenario.
// A scenario drives a compiled keymap through a sequence of matrix
// snapshots and asserts on the events, layers and indicators that result.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Keymap is the directory holding the keymap CUE package.
	// Relative paths are resolved against the scenario file's directory.
	Keymap string `yaml:"keymap"`

	// Session is an optional fixed session id for deterministic traces.
	// If empty, defaults to "test-session-default".
	Session string `yaml:"session,omitempty"`

	// Ticks are fed to the engine in order, one snapshot per entry.
	Ticks []TickStep `yaml:"ticks"`

	// Assertions validate the whole trace after the last tick.
	// Supported types: events_order, event_count, final_layer, indicator
	Assertions []Assertion `yaml:"assertions"`
}

// TickStep is one matrix snapshot.
type TickStep struct {
	// Pressed lists the pressed positions as "row,col". An empty list is a
	// snapshot with every switch released.
	Pressed []string `yaml:"pressed"`

	// Expect optionally checks this tick's outcome.
	Expect *TickExpect `yaml:"expect,omitempty"`
}

// TickExpect specifies the expected outcome of one tick.
// Nil fields are not checked.
type TickExpect struct {
	// Layer is the expected effective layer after the tick.
	Layer *int `yaml:"layer,omitempty"`

	// Indicators is the expected full indicator state.
	Indicators *ir.IndicatorState `yaml:"indicators,omitempty"`

	// Events are the expected logical events in order, e.g. "press KC_A".
	// Taps are written as "tap KC_X". An empty list expects no events.
	Events []string `yaml:"events,omitempty"`
}

// Assertion validates the trace as a whole.
type Assertion struct {
	// Type specifies the assertion type:
	// - "events_order": Events appear in this relative order
	// - "event_count": Event appears exactly Count times
	// - "final_layer": Effective layer after the last tick
	// - "indicator": Indicator state after tick Tick
	Type string `yaml:"type"`

	// Events is the expected order (used by events_order).
	Events []string `yaml:"events,omitempty"`

	// Event is the event to count (used by event_count).
	Event string `yaml:"event,omitempty"`

	// Count is the expected number of occurrences (used by event_count).
	Count int `yaml:"count,omitempty"`

	// Layer is the expected effective layer (used by final_layer).
	Layer *int `yaml:"layer,omitempty"`

	// Tick is the 1-based tick seq (used by indicator). Zero means the
	// last tick.
	Tick int64 `yaml:"tick,omitempty"`

	// Indicators is the expected state (used by indicator).
	Indicators *ir.IndicatorState `yaml:"indicators,omitempty"`
}

// Assertion type constants.
const (
	AssertEventsOrder = "events_order"
	AssertEventCount  = "event_count"
	AssertFinalLayer  = "final_layer"
	AssertIndicator   = "indicator"
)

// LoadScenario reads and parses a scenario YAML file.
// The keymap path is resolved relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the keymap path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Keymap != "" && !filepath.IsAbs(scenario.Keymap) && basePath != "" {
		scenario.Keymap = filepath.Join(basePath, scenario.Keymap)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if _, err := os.Stat(scenario.Keymap); os.IsNotExist(err) {
		return nil, fmt.Errorf("invalid scenario: keymap directory not found: %s", scenario.Keymap)
	}

	return scenario, nil
}

// ParseScenario decodes scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Keymap == "" {
		return fmt.Errorf("keymap is required")
	}

	if len(s.Ticks) == 0 {
		return fmt.Errorf("ticks list is required and must be non-empty")
	}

	for i, step := range s.Ticks {
		for j, p := range step.Pressed {
			if _, err := ir.ParsePosition(p); err != nil {
				return fmt.Errorf("ticks[%d].pressed[%d]: %w", i, j, err)
			}
		}
		if step.Expect == nil {
			continue
		}
		for j, ev := range step.Expect.Events {
			if _, err := parseEvent(ev); err != nil {
				return fmt.Errorf("ticks[%d].expect.events[%d]: %w", i, j, err)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, len(s.Ticks)); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, ticks int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEventsOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for events_order", index)
		}
		for _, ev := range a.Events {
			if _, err := parseEvent(ev); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
		if _, err := parseEvent(a.Event); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertFinalLayer:
		if a.Layer == nil {
			return fmt.Errorf("assertions[%d]: layer is required for final_layer", index)
		}
	case AssertIndicator:
		if a.Indicators == nil {
			return fmt.Errorf("assertions[%d]: indicators is required for indicator", index)
		}
		if a.Tick < 0 || a.Tick > int64(ticks) {
			return fmt.Errorf("assertions[%d]: tick %d out of range 1-%d", index, a.Tick, ticks)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// parseEvent parses the "kind KC_X" form produced by ir.KeyEvent.String.
// Keycode aliases are accepted.
func parseEvent(s string) (ir.KeyEvent, error) {
	kind, name, ok := strings.Cut(s, " ")
	if !ok || name == "" {
		return ir.KeyEvent{}, fmt.Errorf("invalid event %q: expected \"<kind> <keycode>\"", s)
	}
	k, err := ir.ParseKeyEventKind(kind)
	if err != nil {
		return ir.KeyEvent{}, err
	}
	kc, ok := ir.KeycodeByName(name)
	if !ok {
		return ir.KeyEvent{}, fmt.Errorf("invalid event %q: unknown keycode %s", s, name)
	}
	return ir.KeyEvent{Kind: k, Keycode: kc}, nil
}

// parseEvents parses every entry; callers have validated the scenario.
func parseEvents(ss []string) []ir.KeyEvent {
	out := make([]ir.KeyEvent, 0, len(ss))
	for _, s := range ss {
		ev, err := parseEvent(s)
		if err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out
}
