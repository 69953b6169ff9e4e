package ir

// Version constants recorded with every session.
const (
	// IRVersion is the keymap/trace schema version.
	IRVersion = "1"

	// EngineVersion is the keycore engine version.
	EngineVersion = "0.1.0"
)
