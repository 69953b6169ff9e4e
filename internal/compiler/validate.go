package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/keycore/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrKeymapNameEmpty    = "E101" // keyboard name is required
	ErrKeymapNoLayers     = "E102" // at least one layer required
	ErrDimensionMismatch  = "E103" // layer grid does not match rows x cols
	ErrTransparentBase    = "E104" // layer 0 must not be transparent
	ErrLayerRefOutOfRange = "E105" // MO/TG/LT references an undefined layer
	ErrDuplicateMacroID   = "E106" // two macros share an id
	ErrMacroShape         = "E107" // macro needs exactly one of held or script
	ErrTooManyLayers      = "E108" // more layers than a LayerStack can hold
	ErrUndefinedMacroRef  = "E109" // M(n) with no macro n (warning)
)

// ValidationError represents a keymap validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Warning bool   `json:"warning,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Warning {
		return fmt.Sprintf("[%s] warning: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// HasErrors reports whether errs contains anything other than warnings.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if !e.Warning {
			return true
		}
	}
	return false
}

// Validate validates a compiled keymap.
// Returns all errors found (does not fail-fast).
func Validate(km *ir.Keymap) []ValidationError {
	var errs []ValidationError

	// E101: name is required
	if strings.TrimSpace(km.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "keyboard.name",
			Message: "name is required and must be non-empty",
			Code:    ErrKeymapNameEmpty,
		})
	}

	if km.Rows <= 0 || km.Cols <= 0 {
		errs = append(errs, ValidationError{
			Field:   "keyboard",
			Message: fmt.Sprintf("rows and cols must be positive, got %dx%d", km.Rows, km.Cols),
			Code:    ErrDimensionMismatch,
		})
	}

	// E102: at least one layer
	if len(km.Layers) == 0 {
		errs = append(errs, ValidationError{
			Field:   "layer",
			Message: "at least one layer is required",
			Code:    ErrKeymapNoLayers,
		})
	}

	// E108: the stack is 32 bits wide
	if len(km.Layers) > ir.MaxLayers {
		errs = append(errs, ValidationError{
			Field:   "layer",
			Message: fmt.Sprintf("%d layers defined, at most %d supported", len(km.Layers), ir.MaxLayers),
			Code:    ErrTooManyLayers,
		})
	}

	macroIDs := make(map[ir.MacroID]bool)
	for i, m := range km.Macros {
		field := fmt.Sprintf("macro.%s", m.Name)

		// E106: duplicate id
		if macroIDs[m.ID] {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("duplicate macro id %d", m.ID),
				Code:    ErrDuplicateMacroID,
			})
		}
		macroIDs[m.ID] = true

		// E107: exactly one behavior
		if (m.Held == nil) == (m.Script == nil) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("macros[%d]", i),
				Message: fmt.Sprintf("macro %q must define exactly one of held or script", m.Name),
				Code:    ErrMacroShape,
			})
		}
	}

	for li, l := range km.Layers {
		errs = append(errs, validateLayer(km, li, l, macroIDs)...)
	}

	return errs
}

func validateLayer(km *ir.Keymap, li int, l ir.Layer, macroIDs map[ir.MacroID]bool) []ValidationError {
	var errs []ValidationError
	field := fmt.Sprintf("layer[%d]", li)

	// E103: grid shape
	if len(l.Bindings) != km.Rows {
		errs = append(errs, ValidationError{
			Field:   field + ".keys",
			Message: fmt.Sprintf("layer %q has %d rows, keyboard has %d", l.Name, len(l.Bindings), km.Rows),
			Code:    ErrDimensionMismatch,
		})
	}

	for r, row := range l.Bindings {
		if len(row) != km.Cols {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.keys[%d]", field, r),
				Message: fmt.Sprintf("row has %d keys, keyboard has %d cols", len(row), km.Cols),
				Code:    ErrDimensionMismatch,
			})
		}

		for c, b := range row {
			cell := fmt.Sprintf("%s.keys[%d][%d]", field, r, c)

			a, ok := b.Action()
			if !ok {
				// E104: nothing below layer 0 to fall through to
				if li == 0 {
					errs = append(errs, ValidationError{
						Field:   cell,
						Message: "base layer binding must not be transparent",
						Code:    ErrTransparentBase,
					})
				}
				continue
			}

			switch a.Kind {
			case ir.ActionLayerMomentary, ir.ActionLayerToggle, ir.ActionLayerTap:
				// E105: referenced layer must exist and not be the base layer
				if a.Layer <= 0 || a.Layer >= len(km.Layers) {
					errs = append(errs, ValidationError{
						Field:   cell,
						Message: fmt.Sprintf("%s references layer %d, valid range is 1-%d", a, a.Layer, len(km.Layers)-1),
						Code:    ErrLayerRefOutOfRange,
					})
				}
			case ir.ActionMacro:
				// E109: unknown ids are a no-op at run time
				if !macroIDs[a.Macro] {
					errs = append(errs, ValidationError{
						Field:   cell,
						Message: fmt.Sprintf("%s references undefined macro %d", a, a.Macro),
						Code:    ErrUndefinedMacroRef,
						Warning: true,
					})
				}
			}
		}
	}

	return errs
}
