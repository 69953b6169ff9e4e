package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ergodoxKeymap = "../../keymaps/ergodox"

func TestValidate(t *testing.T) {
	parent := t.TempDir()
	tiny := writeKeymap(t, parent, "tiny", tinyKeymap)
	bad := writeKeymap(t, parent, "bad", transparentBaseKeymap)
	warn := writeKeymap(t, parent, "warn", undefinedMacroKeymap)

	tests := []struct {
		name     string
		dir      string
		wantCode int
		want     []string
	}{
		{"valid", tiny, ExitSuccess, []string{"✓ Keymap tiny valid"}},
		{"ergodox", ergodoxKeymap, ExitSuccess, []string{"✓ Keymap ergodox_ez valid"}},
		{"warning only", warn, ExitSuccess, []string{"✓ Keymap warn valid", "[E109] warning: layer[0].keys[0][1]"}},
		{"invalid", bad, ExitFailure, []string{"✗ Validation failed", "[E104] layer[0].keys[0][1]"}},
		{"missing dir", filepath.Join(parent, "nope"), ExitCommandError, []string{"error E005"}},
		{"no files", t.TempDir(), ExitCommandError, []string{"error E003", "no CUE files found"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), "", tt.dir)
			if tt.wantCode == ExitSuccess {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, GetExitCode(err))
			}
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestValidateJSON(t *testing.T) {
	parent := t.TempDir()

	t.Run("valid with warnings", func(t *testing.T) {
		out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), "",
			writeKeymap(t, parent, "warn", undefinedMacroKeymap))
		require.NoError(t, err)

		var resp struct {
			Status string           `json:"status"`
			Data   ValidationResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.True(t, resp.Data.Valid)
		assert.Empty(t, resp.Data.Errors)
		require.Len(t, resp.Data.Warnings, 1)
		assert.Equal(t, "E109", resp.Data.Warnings[0].Code)
	})

	t.Run("invalid", func(t *testing.T) {
		out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), "",
			writeKeymap(t, parent, "bad", transparentBaseKeymap))
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))

		var resp struct {
			Status string           `json:"status"`
			Data   ValidationResult `json:"data"`
			Error  *ResponseError   `json:"error"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, "error", resp.Status)
		assert.False(t, resp.Data.Valid)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "E104", resp.Error.Code)
	})

	t.Run("load error", func(t *testing.T) {
		out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), "", filepath.Join(parent, "nope"))
		require.Error(t, err)

		var resp Response
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, "error", resp.Status)
		assert.Equal(t, "E005", resp.Error.Code)
	})
}

func TestValidateVerboseGoesToStderr(t *testing.T) {
	dir := writeKeymap(t, t.TempDir(), "tiny", tinyKeymap)

	cmd := NewValidateCommand(&RootOptions{Format: "json", Verbose: true})
	out, err := execute(t, cmd, "", dir)
	require.NoError(t, err)
	assert.NotContains(t, out, "Found 1 CUE file(s)")

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "stdout must stay valid JSON")
}
