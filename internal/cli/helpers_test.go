package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keycore/internal/engine"
)

const tinyKeymap = `package tiny

keyboard: {
	name: "tiny"
	rows: 2
	cols: 2
}

layer: [
	{
		name: "BASE"
		keys: [
			["KC_A", "MO(1)"],
			["M(0)", "M(1)"],
		]
	},
	{
		name: "FN"
		keys: [
			["KC_1", "_______"],
			["_______", "_______"],
		]
	},
]

macro: shadow: {
	id:   0
	held: "KC_RSFT"
}

macro: greet: {
	id: 1
	script: ["D(KC_LSFT)", "T(KC_H)", "U(KC_LSFT)", "T(KC_I)"]
}
`

// transparentBaseKeymap fails validation with E104.
const transparentBaseKeymap = `package bad

keyboard: {name: "bad", rows: 1, cols: 2}

layer: [{name: "BASE", keys: [["KC_A", "_______"]]}]
`

// undefinedMacroKeymap is valid but warns with E109.
const undefinedMacroKeymap = `package warn

keyboard: {name: "warn", rows: 1, cols: 2}

layer: [{name: "BASE", keys: [["KC_A", "M(5)"]]}]
`

// writeKeymap writes a single-file CUE keymap package and returns its dir.
func writeKeymap(t *testing.T, parent, name, content string) string {
	t.Helper()
	dir := filepath.Join(parent, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keymap.cue"), []byte(content), 0644))
	return dir
}

// execute runs cmd with args and stdin, returning what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// recordSession runs snapshots through the run command into dbPath under
// the given session id.
func recordSession(t *testing.T, dbPath, keymapDir, session, stdin string) {
	t.Helper()
	cmd := newRunCommand(&RunOptions{
		RootOptions:      &RootOptions{Format: "text"},
		SessionGenerator: engine.NewFixedGenerator(session),
	})
	_, err := execute(t, cmd, stdin, "--db", dbPath, keymapDir)
	require.NoError(t, err)
}
