package model

// Kind discriminates the log entry variants returned by the service.
type Kind string

const (
	KindSystem Kind = "system"
	KindScript Kind = "script"
)

// RawRecord is the intermediate type produced by response parsing and consumed by Parse.
type RawRecord struct {
	Kind   Kind              // stamped from the action that returned the record
	Fields map[string]string // leaf elements of one <Item>, keyed by element name
}

// Well-known record field names.
const (
	FieldServerID   = "ServerID"
	FieldMessage    = "Message"
	FieldTimestamp  = "Timestamp"
	FieldSeverity   = "Severity"
	FieldSource     = "Source"
	FieldScriptName = "ScriptName"
	FieldExitCode   = "ScriptExitCode"
	FieldExecTime   = "ExecTime"
	FieldEvent      = "Event"
)
