package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"

	"github.com/roach88/keycore/internal/compiler"
	"github.com/roach88/keycore/internal/ir"
)

// LoadError represents an error during keymap loading with an error code.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// LoadResult holds a compiled keymap and the checks run against it.
type LoadResult struct {
	Keymap    *ir.Keymap
	FileCount int
	Findings  []compiler.ValidationError
}

// Valid reports whether the keymap has no validation errors. Warnings do
// not count.
func (r *LoadResult) Valid() bool {
	return !compiler.HasErrors(r.Findings)
}

// LoadKeymapDir compiles and validates the keymap package in dir.
// A keymap that compiles but fails validation is returned with its findings
// and a nil error; only failures to produce a keymap at all are errors.
func LoadKeymapDir(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("keymap directory not found: %s", dir)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("scanning %s: %v", dir, err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	km, err := compiler.LoadKeymap(dir)
	if err != nil {
		return nil, convertCompileError(err)
	}

	return &LoadResult{
		Keymap:    km,
		FileCount: len(files),
		Findings:  compiler.Validate(km),
	}, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		msg := compileErr.Message
		if compileErr.Field != "cue" {
			msg = compileErr.Field + ": " + msg
		}
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: msg,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "cue":
		return ErrCodeLoadFailed
	case "":
		return ErrCodeGeneric
	default:
		return ErrCodeBadKeymap
	}
}

// loadErrorParts splits an error into a code and message for output.
func loadErrorParts(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Error()
	}
	return ErrCodeGeneric, err.Error()
}
