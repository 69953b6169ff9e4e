package compiler

import (
	"fmt"
	"slices"

	"cuelang.org/go/cue"

	"github.com/roach88/keycore/internal/ir"
)

// CompileKeymap parses a CUE value into a Keymap.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value is the package root holding keyboard, layer and macro:
//
//	keyboard: {name: "ergodox", rows: 14, cols: 6}
//	layer: [{name: "BASE", keys: [["KC_EQL", ...], ...]}, ...]
//	macro: shadow_shift: {id: 0, held: "KC_RSFT"}
//
// Shape errors (ragged rows, bad layer references) are left to Validate.
func CompileKeymap(v cue.Value) (*ir.Keymap, error) {
	if err := v.Err(); err != nil {
		return nil, cueError(err)
	}

	km := &ir.Keymap{}

	kb := v.LookupPath(cue.ParsePath("keyboard"))
	if !kb.Exists() {
		return nil, fieldError("keyboard", v, "keyboard is required")
	}
	var err error
	if km.Name, err = requireString(kb, "name", "keyboard.name"); err != nil {
		return nil, err
	}
	if km.Rows, err = requireInt(kb, "rows", "keyboard.rows"); err != nil {
		return nil, err
	}
	if km.Cols, err = requireInt(kb, "cols", "keyboard.cols"); err != nil {
		return nil, err
	}

	if km.Layers, err = parseLayers(v); err != nil {
		return nil, err
	}

	if km.Macros, err = parseMacros(v); err != nil {
		return nil, err
	}

	return km, nil
}

// parseLayers extracts the ordered layer list; index is layer number.
func parseLayers(v cue.Value) ([]ir.Layer, error) {
	layersVal := v.LookupPath(cue.ParsePath("layer"))
	if !layersVal.Exists() {
		return nil, fieldError("layer", v, "at least one layer is required")
	}

	iter, err := layersVal.List()
	if err != nil {
		return nil, cueError(err)
	}

	var layers []ir.Layer
	for i := 0; iter.Next(); i++ {
		lv := iter.Value()
		field := fmt.Sprintf("layer[%d]", i)

		name, err := requireString(lv, "name", field+".name")
		if err != nil {
			return nil, err
		}

		keysVal := lv.LookupPath(cue.ParsePath("keys"))
		if !keysVal.Exists() {
			return nil, fieldError(field+".keys", lv, "keys are required")
		}
		bindings, err := parseKeyGrid(keysVal, field+".keys")
		if err != nil {
			return nil, err
		}

		layers = append(layers, ir.Layer{Name: name, Bindings: bindings})
	}

	return layers, nil
}

func parseKeyGrid(v cue.Value, field string) ([][]ir.Binding, error) {
	rowIter, err := v.List()
	if err != nil {
		return nil, cueError(err)
	}

	var grid [][]ir.Binding
	for r := 0; rowIter.Next(); r++ {
		cellIter, err := rowIter.Value().List()
		if err != nil {
			return nil, cueError(err)
		}

		row := []ir.Binding{}
		for c := 0; cellIter.Next(); c++ {
			cell := cellIter.Value()
			s, err := cell.String()
			if err != nil {
				return nil, cueError(err)
			}
			b, err := ParseBinding(s)
			if err != nil {
				return nil, fieldError(fmt.Sprintf("%s[%d][%d]", field, r, c), cell, "%s", err.Error())
			}
			row = append(row, b)
		}
		grid = append(grid, row)
	}

	return grid, nil
}

// parseMacros extracts macro definitions, ordered by id.
func parseMacros(v cue.Value) ([]ir.MacroDef, error) {
	macroVal := v.LookupPath(cue.ParsePath("macro"))
	if !macroVal.Exists() {
		return nil, nil // macros are optional
	}

	iter, err := macroVal.Fields()
	if err != nil {
		return nil, cueError(err)
	}

	var defs []ir.MacroDef
	for iter.Next() {
		name := iter.Label()
		mv := iter.Value()
		field := "macro." + name

		id, err := requireInt(mv, "id", field+".id")
		if err != nil {
			return nil, err
		}
		if id < 0 || id > 255 {
			return nil, fieldError(field+".id", mv, "macro id %d out of range 0-255", id)
		}
		def := ir.MacroDef{ID: ir.MacroID(id), Name: name}

		if heldVal := mv.LookupPath(cue.ParsePath("held")); heldVal.Exists() {
			s, err := heldVal.String()
			if err != nil {
				return nil, cueError(err)
			}
			kc, err := parseKeycode(s)
			if err != nil {
				return nil, fieldError(field+".held", heldVal, "%s", err.Error())
			}
			def.Held = &kc
		}

		if scriptVal := mv.LookupPath(cue.ParsePath("script")); scriptVal.Exists() {
			stepIter, err := scriptVal.List()
			if err != nil {
				return nil, cueError(err)
			}
			def.Script = []ir.KeyEvent{}
			for i := 0; stepIter.Next(); i++ {
				sv := stepIter.Value()
				s, err := sv.String()
				if err != nil {
					return nil, cueError(err)
				}
				ev, err := ParseScriptStep(s)
				if err != nil {
					return nil, fieldError(fmt.Sprintf("%s.script[%d]", field, i), sv, "%s", err.Error())
				}
				def.Script = append(def.Script, ev)
			}
		}

		defs = append(defs, def)
	}

	slices.SortStableFunc(defs, func(a, b ir.MacroDef) int {
		return int(a.ID) - int(b.ID)
	})
	return defs, nil
}

func requireString(v cue.Value, path, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return "", fieldError(field, v, "%s is required", field)
	}
	s, err := fv.String()
	if err != nil {
		return "", cueError(err)
	}
	return s, nil
}

func requireInt(v cue.Value, path, field string) (int, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return 0, fieldError(field, v, "%s is required", field)
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, cueError(err)
	}
	return int(n), nil
}
