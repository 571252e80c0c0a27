package ir

// Version constants stamped into audit events and reported by the CLI.
const (
	// SchemaVersion is the audit payload schema version.
	SchemaVersion = "1"

	// EngineVersion is the bequest lifecycle engine version.
	EngineVersion = "0.1.0"
)
