package ir

// Version constants for the document schema and engine.
const (
	// DocVersion is the world/production document schema version.
	DocVersion = "1"

	// EngineVersion is the storygram engine version.
	EngineVersion = "0.1.0"
)
