package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/keycore/internal/ir"
)

// chordAliases are the shorthand wrappers for common modifier chords.
var chordAliases = map[string]ir.Mods{
	"C_S": ir.ModLCtrl | ir.ModLShift,
	"G_S": ir.ModLGUI | ir.ModLShift,
	"G_A": ir.ModLGUI | ir.ModLAlt,
}

// modTapAliases hold their modifiers while pressed and carry a tap keycode.
var modTapAliases = map[string]ir.Mods{
	"CTL_T": ir.ModLCtrl,
	"SFT_T": ir.ModLShift,
	"ALT_T": ir.ModLAlt,
	"GUI_T": ir.ModLGUI,
	"G_S_T": ir.ModLGUI | ir.ModLShift,
	"G_A_T": ir.ModLGUI | ir.ModLAlt,
}

// shiftedAliases are US-layout shifted symbols; each is LSFT of its base key.
var shiftedAliases = map[string]ir.Keycode{
	"KC_TILD": ir.KeyGrave,
	"KC_EXLM": ir.Key1,
	"KC_AT":   ir.Key2,
	"KC_HASH": ir.Key3,
	"KC_DLR":  ir.Key4,
	"KC_PERC": ir.Key5,
	"KC_CIRC": ir.Key6,
	"KC_AMPR": ir.Key7,
	"KC_ASTR": ir.Key8,
	"KC_LPRN": ir.Key9,
	"KC_RPRN": ir.Key0,
	"KC_UNDS": ir.KeyMinus,
	"KC_PLUS": ir.KeyEqual,
	"KC_LCBR": ir.KeyLeftBracket,
	"KC_RCBR": ir.KeyRightBracket,
	"KC_PIPE": ir.KeyBackslash,
	"KC_COLN": ir.KeySemicolon,
	"KC_DQUO": ir.KeyQuote,
	"KC_LABK": ir.KeyComma,
	"KC_RABK": ir.KeyDot,
	"KC_QUES": ir.KeySlash,
}

// ParseBinding parses one keymap cell such as "KC_A", "_______",
// "LT(2, KC_SCLN)" or "LCTL(LSFT(KC_J))".
func ParseBinding(s string) (ir.Binding, error) {
	s = strings.TrimSpace(s)
	if s == "_______" || s == "KC_TRNS" {
		return ir.Transparent, nil
	}
	a, err := ParseAction(s)
	if err != nil {
		return ir.Binding{}, err
	}
	return ir.Bound(a), nil
}

// ParseAction parses a non-transparent action string.
func ParseAction(s string) (ir.Action, error) {
	s = strings.TrimSpace(s)
	name, args, isCall, err := splitCall(s)
	if err != nil {
		return ir.Action{}, err
	}

	if !isCall {
		if s == "_______" || s == "KC_TRNS" {
			return ir.Action{}, fmt.Errorf("transparent is not an action here")
		}
		if base, ok := shiftedAliases[s]; ok {
			return ir.Chord(ir.ModLShift, base), nil
		}
		kc, err := parseKeycode(s)
		if err != nil {
			return ir.Action{}, err
		}
		if kc == ir.KeyNone {
			return ir.None(), nil
		}
		return ir.Key(kc), nil
	}

	if mods, ok := ir.ModByName(name); ok {
		return parseChord(s, mods, args)
	}
	if mods, ok := chordAliases[name]; ok {
		return parseChord(s, mods, args)
	}
	if mods, ok := modTapAliases[name]; ok {
		if err := wantArgs(s, args, 1); err != nil {
			return ir.Action{}, err
		}
		kc, err := parseKeycode(args[0])
		if err != nil {
			return ir.Action{}, err
		}
		return ir.ModTap(mods, kc), nil
	}

	switch name {
	case "MO", "TG":
		if err := wantArgs(s, args, 1); err != nil {
			return ir.Action{}, err
		}
		n, err := parseIndex(args[0])
		if err != nil {
			return ir.Action{}, fmt.Errorf("%s: %w", s, err)
		}
		if name == "MO" {
			return ir.Momentary(n), nil
		}
		return ir.Toggle(n), nil
	case "LT":
		if err := wantArgs(s, args, 2); err != nil {
			return ir.Action{}, err
		}
		n, err := parseIndex(args[0])
		if err != nil {
			return ir.Action{}, fmt.Errorf("%s: %w", s, err)
		}
		kc, err := parseKeycode(args[1])
		if err != nil {
			return ir.Action{}, err
		}
		return ir.LayerTap(n, kc), nil
	case "M":
		if err := wantArgs(s, args, 1); err != nil {
			return ir.Action{}, err
		}
		n, err := parseIndex(args[0])
		if err != nil {
			return ir.Action{}, fmt.Errorf("%s: %w", s, err)
		}
		if n > 255 {
			return ir.Action{}, fmt.Errorf("%s: macro id %d out of range 0-255", s, n)
		}
		return ir.Macro(ir.MacroID(n)), nil
	case "MT":
		if err := wantArgs(s, args, 2); err != nil {
			return ir.Action{}, err
		}
		mods, err := parseMods(args[0])
		if err != nil {
			return ir.Action{}, fmt.Errorf("%s: %w", s, err)
		}
		kc, err := parseKeycode(args[1])
		if err != nil {
			return ir.Action{}, err
		}
		return ir.ModTap(mods, kc), nil
	default:
		return ir.Action{}, fmt.Errorf("unknown action %q", name)
	}
}

// ParseScriptStep parses a macro script step: D(kc) presses, U(kc)
// releases, T(kc) taps.
func ParseScriptStep(s string) (ir.KeyEvent, error) {
	s = strings.TrimSpace(s)
	name, args, isCall, err := splitCall(s)
	if err != nil {
		return ir.KeyEvent{}, err
	}
	if !isCall {
		return ir.KeyEvent{}, fmt.Errorf("invalid script step %q: expected D(kc), U(kc) or T(kc)", s)
	}
	if err := wantArgs(s, args, 1); err != nil {
		return ir.KeyEvent{}, err
	}
	kc, err := parseKeycode(args[0])
	if err != nil {
		return ir.KeyEvent{}, err
	}
	switch name {
	case "D":
		return ir.PressOf(kc), nil
	case "U":
		return ir.ReleaseOf(kc), nil
	case "T":
		return ir.TapOf(kc), nil
	default:
		return ir.KeyEvent{}, fmt.Errorf("invalid script step %q: expected D(kc), U(kc) or T(kc)", s)
	}
}

func parseChord(s string, mods ir.Mods, args []string) (ir.Action, error) {
	if err := wantArgs(s, args, 1); err != nil {
		return ir.Action{}, err
	}
	inner, err := ParseAction(args[0])
	if err != nil {
		return ir.Action{}, err
	}
	if inner.Kind != ir.ActionKey {
		return ir.Action{}, fmt.Errorf("%s: modifier wrappers only apply to keys, got %s", s, inner.Kind)
	}
	return ir.Chord(mods|inner.Mods, inner.Keycode), nil
}

// splitCall splits "NAME(a, b)" into its name and top-level arguments.
// isCall is false for bare identifiers.
func splitCall(s string) (name string, args []string, isCall bool, err error) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		if strings.ContainsAny(s, ") ,") || s == "" {
			return "", nil, false, fmt.Errorf("invalid action %q", s)
		}
		return s, nil, false, nil
	}
	if !strings.HasSuffix(s, ")") || open == 0 {
		return "", nil, false, fmt.Errorf("invalid action %q", s)
	}

	name = s[:open]
	body := s[open+1 : len(s)-1]
	depth, start := 0, 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return "", nil, false, fmt.Errorf("unbalanced parentheses in %q", s)
			}
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(body[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return "", nil, false, fmt.Errorf("unbalanced parentheses in %q", s)
	}
	args = append(args, strings.TrimSpace(body[start:]))
	return name, args, true, nil
}

func wantArgs(s string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s: expected %d argument(s), got %d", s, n, len(args))
	}
	for _, a := range args {
		if a == "" {
			return fmt.Errorf("%s: empty argument", s)
		}
	}
	return nil
}

func parseKeycode(s string) (ir.Keycode, error) {
	kc, ok := ir.KeycodeByName(s)
	if !ok {
		return 0, fmt.Errorf("unknown keycode %q", s)
	}
	return kc, nil
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	return n, nil
}

// parseMods parses "MOD_LALT|MOD_LSFT" or "LALT|LSFT".
func parseMods(s string) (ir.Mods, error) {
	var mods ir.Mods
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimPrefix(strings.TrimSpace(part), "MOD_")
		m, ok := ir.ModByName(part)
		if !ok {
			return 0, fmt.Errorf("unknown modifier %q", part)
		}
		mods |= m
	}
	return mods, nil
}
