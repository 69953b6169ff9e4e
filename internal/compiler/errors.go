package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError is a keymap that CUE accepted but the compiler could not
// turn into an ir.Keymap, or a CUE evaluation failure.
//
// Field is the keymap path of the offending value, such as
// "layer[1].keys[2][3]" or "macro.greet.held". CUE's own errors use the
// field "cue".
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	msg := e.Field + ": " + e.Message
	if !e.Pos.IsValid() {
		return msg
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), msg)
}

// fieldError reports a problem with the keymap value at field, positioned
// at v.
func fieldError(field string, v cue.Value, format string, args ...any) *CompileError {
	return &CompileError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Pos:     v.Pos(),
	}
}

// cueError positions the first of CUE's errors. The message notes how many
// more CUE reported. Errors without a position pass through unchanged.
func cueError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	positions := errors.Positions(errs[0])
	if len(positions) == 0 {
		return err
	}

	msg := errs[0].Error()
	if extra := len(errs) - 1; extra > 0 {
		msg = fmt.Sprintf("%s (and %d more)", msg, extra)
	}
	return &CompileError{Field: "cue", Message: msg, Pos: positions[0]}
}
