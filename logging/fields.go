package logging

// Field keys shared by all injgen log events.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldRound     = "round"
	FieldKey       = "key"
	FieldBinding   = "binding"
	FieldArtifact  = "artifact"
	FieldFile      = "file"
	FieldPackage   = "package"
	FieldSeverity  = "severity"
	FieldDuration  = "duration_ms"
)
