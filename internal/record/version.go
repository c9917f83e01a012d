package record

// Version constants for trace schema and engine.
const (
	// TraceVersion is the trace record schema version.
	TraceVersion = "1"

	// EngineVersion is the stepwise engine version.
	EngineVersion = "0.1.0"
)
