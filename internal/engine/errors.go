package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected during a tick.
//
// Runtime errors include:
//   - Matrix shape: the snapshot does not match the keymap dimensions
//   - Sink failed: the host transport, indicator driver or tick log failed
//
// A shape error rejects the tick before any state changes. A sink error is
// reported after the tick's state change has been applied.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Seq is the tick seq, 0 if the tick was rejected before stamping.
	Seq int64

	// Sink names the failing sink for SINK_FAILED.
	Sink string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeMatrixShape indicates a snapshot with the wrong dimensions.
	ErrCodeMatrixShape RuntimeErrorCode = "MATRIX_SHAPE"

	// ErrCodeSinkFailed indicates an output sink returned an error.
	ErrCodeSinkFailed RuntimeErrorCode = "SINK_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Sink != "" {
		msg += fmt.Sprintf(" (sink=%s, seq=%d)", e.Sink, e.Seq)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsShapeError returns true if the error is a matrix shape error.
// Uses errors.As to handle wrapped errors.
func IsShapeError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeMatrixShape
	}
	return false
}

// IsSinkError returns true if the error is a sink failure.
// Uses errors.As to handle wrapped errors.
func IsSinkError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeSinkFailed
	}
	return false
}

// NewShapeError creates a RuntimeError for a mis-sized snapshot.
func NewShapeError(gotRows, gotCols, wantRows, wantCols int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeMatrixShape,
		Message: fmt.Sprintf("snapshot is %dx%d, keymap is %dx%d", gotRows, gotCols, wantRows, wantCols),
	}
}

// NewSinkError creates a RuntimeError for a failed sink.
func NewSinkError(sink string, seq int64, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeSinkFailed,
		Message: "output sink failed",
		Seq:     seq,
		Sink:    sink,
		Err:     err,
	}
}
