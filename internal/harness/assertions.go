package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/keycore/internal/ir"
	"github.com/roach88/keycore/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, t := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] layer=%d %s events=%s\n",
				t.Seq, t.EffectiveLayer, t.Indicators, formatEvents(t.Events))
		}
	}

	return buf.String()
}

// assertEventsOrder checks that the events appear in the given relative
// order across the whole trace. Intervening events are allowed and a
// repeated event must be matched by a later occurrence.
func assertEventsOrder(trace []TraceEvent, assertion Assertion) error {
	want := parseEvents(assertion.Events)

	next := 0
	for _, t := range trace {
		for _, ev := range t.Events {
			if next < len(want) && ev == want[next] {
				next++
			}
		}
	}

	if next < len(want) {
		return &AssertionError{
			Type:     AssertEventsOrder,
			Expected: fmt.Sprintf("events in order: %s", formatEvents(want)),
			Actual:   fmt.Sprintf("matched %d of %d, missing %s", next, len(want), want[next]),
			Trace:    trace,
		}
	}

	return nil
}

// assertEventCount checks the event occurs exactly Count times in the
// recorded tick log.
func assertEventCount(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	want, err := parseEvent(assertion.Event)
	if err != nil {
		return err
	}

	_, events, err := actx.Store.ReadEventsByKeycode(actx.Ctx, actx.Session, want.Keycode)
	if err != nil {
		return fmt.Errorf("read events: %w", err)
	}

	count := 0
	for _, ev := range events {
		if ev == want {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, want),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalLayer checks the effective layer after the last tick.
func assertFinalLayer(trace []TraceEvent, assertion Assertion) error {
	last := trace[len(trace)-1]
	if last.EffectiveLayer != *assertion.Layer {
		return &AssertionError{
			Type:     AssertFinalLayer,
			Expected: fmt.Sprintf("effective layer %d", *assertion.Layer),
			Actual:   fmt.Sprintf("effective layer %d (stack %#b)", last.EffectiveLayer, uint32(last.LayerState)),
			Trace:    trace,
		}
	}
	return nil
}

// assertIndicator checks the indicator state recorded for one tick.
func assertIndicator(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	ticks, err := actx.Store.ReadTicks(actx.Ctx, actx.Session)
	if err != nil {
		return fmt.Errorf("read ticks: %w", err)
	}

	seq := assertion.Tick
	if seq == 0 {
		seq = int64(len(ticks))
	}

	for _, t := range ticks {
		if t.Seq != seq {
			continue
		}
		if t.Indicators != *assertion.Indicators {
			return &AssertionError{
				Type:     AssertIndicator,
				Expected: fmt.Sprintf("tick %d: %s", seq, *assertion.Indicators),
				Actual:   fmt.Sprintf("tick %d: %s", seq, t.Indicators),
				Trace:    trace,
			}
		}
		return nil
	}

	return &AssertionError{
		Type:     AssertIndicator,
		Expected: fmt.Sprintf("tick %d in the tick log", seq),
		Actual:   fmt.Sprintf("%d ticks recorded", len(ticks)),
		Trace:    trace,
	}
}

// formatEvents renders events as "[press KC_A, release KC_A]".
func formatEvents(events []ir.KeyEvent) string {
	parts := make([]string, len(events))
	for i, ev := range events {
		parts[i] = ev.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store   *store.Store
	Session string
	Ctx     context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides tick log access for event_count and
// indicator assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch {
		case len(result.Trace) == 0:
			err = fmt.Errorf("assertion[%d]: trace is empty", i)
		case assertion.Type == AssertEventsOrder:
			err = assertEventsOrder(result.Trace, assertion)
		case assertion.Type == AssertFinalLayer:
			err = assertFinalLayer(result.Trace, assertion)
		case assertion.Type == AssertEventCount, assertion.Type == AssertIndicator:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires tick log context", i, assertion.Type)
			} else if assertion.Type == AssertEventCount {
				err = assertEventCount(actx, result.Trace, assertion)
			} else {
				err = assertIndicator(actx, result.Trace, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
