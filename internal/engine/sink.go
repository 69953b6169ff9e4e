package engine

import (
	"context"

	"github.com/roach88/keycore/internal/ir"
)

// HostReporter is the host transport. It receives press and release events
// only; taps are expanded before Report is called.
type HostReporter interface {
	Report(ctx context.Context, events []ir.KeyEvent) error
}

// IndicatorDriver sets the physical indicators. It is called once per tick
// with the full state.
type IndicatorDriver interface {
	Set(ctx context.Context, state ir.IndicatorState) error
}

// HostFunc adapts a function to HostReporter.
type HostFunc func(ctx context.Context, events []ir.KeyEvent) error

// Report calls f.
func (f HostFunc) Report(ctx context.Context, events []ir.KeyEvent) error {
	return f(ctx, events)
}

// IndicatorFunc adapts a function to IndicatorDriver.
type IndicatorFunc func(ctx context.Context, state ir.IndicatorState) error

// Set calls f.
func (f IndicatorFunc) Set(ctx context.Context, state ir.IndicatorState) error {
	return f(ctx, state)
}
