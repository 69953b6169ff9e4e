package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrigger(t *testing.T) {
	dir := writeKeymap(t, t.TempDir(), "tiny", tinyKeymap)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "script press",
			args: []string{dir, "1", "press"},
			want: "Macro 1 (greet) press: 4 event(s)\n" +
				"  press KC_LSFT\n  press KC_H\n  release KC_H\n  release KC_LSFT\n  press KC_I\n  release KC_I\n",
		},
		{
			name: "script release",
			args: []string{dir, "1", "release"},
			want: "Macro 1 (greet) release: 0 event(s)\n",
		},
		{
			name: "held press",
			args: []string{dir, "0", "press"},
			want: "Macro 0 (shadow) press: 1 event(s)\n  press KC_RSFT\n",
		},
		{
			name: "held release",
			args: []string{dir, "0", "release"},
			want: "Macro 0 (shadow) release: 1 event(s)\n  release KC_RSFT\n",
		},
		{
			name: "undefined",
			args: []string{dir, "9", "press"},
			want: "Macro 9 is not defined; no events\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewTriggerCommand(&RootOptions{Format: "text"}), "", tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestTriggerJSON(t *testing.T) {
	out, err := execute(t, NewTriggerCommand(&RootOptions{Format: "json"}), "", ergodoxKeymap, "1", "press")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   TriggerResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "alfred_dash", resp.Data.Name)
	assert.Equal(t, []string{
		"press KC_LCTL", "press KC_SPC", "release KC_SPC", "release KC_LCTL",
		"tap KC_D", "tap KC_A", "tap KC_S", "tap KC_H", "tap KC_SPC",
	}, resp.Data.Events)
	assert.Len(t, resp.Data.Reports, 14)
}

func TestTriggerBadArgs(t *testing.T) {
	dir := writeKeymap(t, t.TempDir(), "tiny", tinyKeymap)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"id not a number", []string{dir, "x", "press"}, `invalid macro id "x"`},
		{"id too large", []string{dir, "256", "press"}, `invalid macro id "256"`},
		{"bad edge", []string{dir, "0", "hold"}, `invalid edge "hold"`},
		{"missing keymap", []string{t.TempDir() + "/nope", "0", "press"}, "E005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewTriggerCommand(&RootOptions{Format: "text"}), "", tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, tt.want)
		})
	}

	_, err := execute(t, NewTriggerCommand(&RootOptions{Format: "text"}), "", dir, "0")
	require.Error(t, err, "three arguments required")
}
