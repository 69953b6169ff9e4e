package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/keycore/internal/ir"
)

// marshalPressed converts pressed positions to canonical JSON TEXT,
// a list of "row,col" strings in scan order.
func marshalPressed(pressed []ir.Position) (string, error) {
	list := make(ir.List, len(pressed))
	for i, p := range pressed {
		list[i] = ir.Str(p.String())
	}
	data, err := ir.MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("marshal pressed: %w", err)
	}
	return string(data), nil
}

// unmarshalPressed parses the TEXT written by marshalPressed.
func unmarshalPressed(data string) ([]ir.Position, error) {
	if data == "" || data == "[]" {
		return []ir.Position{}, nil
	}
	var raw []string
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal pressed: %w", err)
	}
	out := make([]ir.Position, len(raw))
	for i, s := range raw {
		p, err := ir.ParsePosition(s)
		if err != nil {
			return nil, fmt.Errorf("unmarshal pressed: %w", err)
		}
		out[i] = p
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
