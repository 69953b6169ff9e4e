package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Process exit status of a keycore command.
const (
	ExitSuccess = 0
	// ExitFailure: the keymap is invalid, a scenario failed, a replay
	// diverged or a macro could not play.
	ExitFailure = 1
	// ExitCommandError: the command never got to its check. Unreadable
	// keymap directory, missing tick log, malformed snapshot stream.
	ExitCommandError = 2
)

// Codes reported in the "code" field of an error response and in text
// errors. E0xx says why a command could not run; keymap findings carry the
// compiler's E1xx codes unchanged.
const (
	ErrCodeGeneric        = "E001"
	ErrCodeScanError      = "E002" // keymap directory unreadable
	ErrCodeNoFiles        = "E003" // no .cue files in the keymap directory
	ErrCodeLoadFailed     = "E004" // CUE parse or evaluation
	ErrCodeNotFound       = "E005"
	ErrCodeBadKeymap      = "E006" // CUE ok, ir.Keymap compile failed
	ErrCodeWriteFailed    = "E007" // compile --output
	ErrCodeBadInput       = "E008" // run snapshots, trigger arguments
	ErrCodeScenarioFailed = "E009"
	ErrCodeReplayDiverged = "E010"
)

// ExitError carries the exit status main passes to os.Exit.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the status of the first ExitError in err's chain.
// Any other error is an ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Response is the envelope of every --format json result.
//
// Status is "error" whenever Error is set. Data may still hold the full
// result (validation findings, scenario outcomes, replay sessions).
type Response struct {
	Status string         `json:"status"`
	Data   any            `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OutputFormatter writes command results as text or as a JSON Response.
// Diagnostics from VerboseLog go to ErrWriter so stdout stays parseable.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

func (f *OutputFormatter) isJSON() bool { return f.Format == "json" }

// Success writes data as an "ok" response, or with fmt's default format
// in text mode.
func (f *OutputFormatter) Success(data any) error {
	if f.isJSON() {
		return f.encode(Response{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error writes a lone error. Text mode prints details only with --verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.isJSON() {
		return f.encode(Response{
			Status: "error",
			Error:  &ResponseError{Code: code, Message: message, Details: details},
		})
	}

	if _, err := fmt.Fprintf(f.Writer, "error %s: %s\n", code, message); err != nil {
		return err
	}
	if f.Verbose && details != nil {
		_, err := fmt.Fprintf(f.Writer, "  details: %v\n", details)
		return err
	}
	return nil
}

// Report writes an "error" response that still carries the command's
// result. Text rendering of such results is left to the command.
func (f *OutputFormatter) Report(data any, code, message string) error {
	return f.encode(Response{
		Status: "error",
		Data:   data,
		Error:  &ResponseError{Code: code, Message: message},
	})
}

// Fail writes a lone error and returns the ExitError the command should
// return.
func (f *OutputFormatter) Fail(exit int, code, message string) error {
	_ = f.Error(code, message, nil)
	return NewExitError(exit, code+": "+message)
}

func (f *OutputFormatter) encode(resp Response) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// VerboseLog writes one diagnostic line when --verbose is set.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if f.Verbose {
		fmt.Fprintf(f.diagWriter(), format+"\n", args...)
	}
}

func (f *OutputFormatter) diagWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
