package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keycore/internal/ir"
)

func TestParseBinding(t *testing.T) {
	tests := []struct {
		in   string
		want ir.Binding
	}{
		{"KC_A", ir.Bound(ir.Key(ir.KeyA))},
		{" KC_LSFT ", ir.Bound(ir.Key(ir.KeyLeftShift))},
		{"KC_NO", ir.Bound(ir.None())},
		{"KC_TRNS", ir.Transparent},
		{"_______", ir.Transparent},
		{"MO(1)", ir.Bound(ir.Momentary(1))},
		{"TG(2)", ir.Bound(ir.Toggle(2))},
		{"LT(2, KC_SCLN)", ir.Bound(ir.LayerTap(2, ir.KeySemicolon))},
		{"M(1)", ir.Bound(ir.Macro(1))},
		{"LGUI(KC_TAB)", ir.Bound(ir.Chord(ir.ModLGUI, ir.KeyTab))},
		{"LCTL(LSFT(KC_J))", ir.Bound(ir.Chord(ir.ModLCtrl|ir.ModLShift, ir.KeyJ))},
		{"C_S(KC_J)", ir.Bound(ir.Chord(ir.ModLCtrl|ir.ModLShift, ir.KeyJ))},
		{"G_S(KC_LBRC)", ir.Bound(ir.Chord(ir.ModLGUI|ir.ModLShift, ir.KeyLeftBracket))},
		{"G_A(KC_SPC)", ir.Bound(ir.Chord(ir.ModLGUI|ir.ModLAlt, ir.KeySpace))},
		{"ALT_T(KC_APP)", ir.Bound(ir.ModTap(ir.ModLAlt, ir.KeyApplication))},
		{"GUI_T(KC_QUOT)", ir.Bound(ir.ModTap(ir.ModLGUI, ir.KeyQuote))},
		{"MT(MOD_LCTL|MOD_LALT, KC_ESC)", ir.Bound(ir.ModTap(ir.ModLCtrl|ir.ModLAlt, ir.KeyEscape))},
		{"MT(RSFT, KC_ENT)", ir.Bound(ir.ModTap(ir.ModRShift, ir.KeyEnter))},
		{"KC_LCBR", ir.Bound(ir.Chord(ir.ModLShift, ir.KeyLeftBracket))},
		{"KC_TILD", ir.Bound(ir.Chord(ir.ModLShift, ir.KeyGrave))},
		{"KC_AMPR", ir.Bound(ir.Chord(ir.ModLShift, ir.Key7))},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBinding(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBindingRoundTripsThroughString(t *testing.T) {
	for _, in := range []string{"KC_A", "KC_TRNS", "MO(1)", "TG(2)", "LT(2, KC_A)", "M(0)", "LCTL(LSFT(KC_J))", "KC_NO"} {
		b, err := ParseBinding(in)
		require.NoError(t, err, in)
		assert.Equal(t, in, b.String())
	}
}

func TestParseBindingErrors(t *testing.T) {
	tests := []struct {
		in      string
		wantErr string
	}{
		{"", "invalid action"},
		{"KC_BOGUS", "unknown keycode"},
		{"MO()", "empty argument"},
		{"MO(1, 2)", "expected 1 argument"},
		{"MO(-1)", "invalid index"},
		{"MO(x)", "invalid index"},
		{"LT(1)", "expected 2 argument"},
		{"M(300)", "out of range"},
		{"FOO(KC_A)", "unknown action"},
		{"LCTL(MO(1))", "only apply to keys"},
		{"LCTL(KC_A", "invalid action"},
		{"LCTL(KC_A))", "unbalanced"},
		{"MT(HYPER, KC_A)", "unknown modifier"},
		{"ALT_T(MO(1))", "unknown keycode"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseBinding(tt.in)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScriptStep(t *testing.T) {
	ev, err := ParseScriptStep("D(KC_LCTL)")
	require.NoError(t, err)
	assert.Equal(t, ir.PressOf(ir.KeyLeftCtrl), ev)

	ev, err = ParseScriptStep("U(KC_SPC)")
	require.NoError(t, err)
	assert.Equal(t, ir.ReleaseOf(ir.KeySpace), ev)

	ev, err = ParseScriptStep("T(KC_D)")
	require.NoError(t, err)
	assert.Equal(t, ir.TapOf(ir.KeyD), ev)

	for _, bad := range []string{"KC_A", "W(KC_A)", "T()", "T(KC_NOPE)", "T(KC_A, KC_B)"} {
		_, err := ParseScriptStep(bad)
		assert.Error(t, err, bad)
	}
}
