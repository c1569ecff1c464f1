package ir

// Version constants for the definition schema and engine.
const (
	// SchemaVersion is the timeline definition schema version.
	SchemaVersion = "1"

	// EngineVersion is the choreo engine version.
	EngineVersion = "0.1.0"
)
