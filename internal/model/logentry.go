package model

import (
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnknownLogKind is returned by Parse when a record matches no log variant.
	ErrUnknownLogKind = errors.New("unknown log kind")
	// ErrMalformedRecord is returned by Parse when a field required by the variant is missing or invalid.
	ErrMalformedRecord = errors.New("malformed log record")
)

// LogEntry is one parsed log record. Implementations are immutable.
type LogEntry interface {
	Kind() Kind
	ServerID() string
	Message() string
	Timestamp() time.Time
	// Failure reports whether the record encodes an unsuccessful outcome.
	Failure() bool
	// Field returns a raw field as sent by the service.
	Field(name string) (string, bool)
	// Fields returns a copy of all raw fields.
	Fields() map[string]string
}

// Severity is the service's numeric log level.
type Severity int

const (
	SeverityDebug Severity = iota + 1
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityFatal
)

var severityNames = map[string]Severity{
	"debug":   SeverityDebug,
	"info":    SeverityInfo,
	"warn":    SeverityWarning,
	"warning": SeverityWarning,
	"error":   SeverityError,
	"fatal":   SeverityFatal,
}

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "severity(" + strconv.Itoa(int(s)) + ")"
	}
}

// ParseSeverity accepts the numeric form (1-5) or a level name.
func ParseSeverity(s string) (Severity, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < int(SeverityDebug) || n > int(SeverityFatal) {
			return 0, fmt.Errorf("severity %d out of range", n)
		}
		return Severity(n), nil
	}
	if sev, ok := severityNames[strings.ToLower(s)]; ok {
		return sev, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

type entry struct {
	fields    map[string]string
	serverID  string
	message   string
	timestamp time.Time
}

func (e *entry) ServerID() string     { return e.serverID }
func (e *entry) Message() string      { return e.message }
func (e *entry) Timestamp() time.Time { return e.timestamp }

func (e *entry) Field(name string) (string, bool) {
	v, ok := e.fields[name]
	return v, ok
}

func (e *entry) Fields() map[string]string {
	return maps.Clone(e.fields)
}

// SystemLogItem is a generic system event (LogsList).
type SystemLogItem struct {
	entry
	severity Severity
	source   string
}

func (*SystemLogItem) Kind() Kind { return KindSystem }

// Failure is true for error and fatal severities.
func (s *SystemLogItem) Failure() bool { return s.severity >= SeverityError }

func (s *SystemLogItem) Severity() Severity { return s.severity }
func (s *SystemLogItem) Source() string     { return s.source }

// ScriptLogItem is a deployment-script event (ScriptingLogsList).
type ScriptLogItem struct {
	entry
	scriptName string
	exitCode   int
	execTime   float64
	event      string
}

func (*ScriptLogItem) Kind() Kind { return KindScript }

// Failure is true for any non-zero script exit code.
func (s *ScriptLogItem) Failure() bool { return s.exitCode != 0 }

func (s *ScriptLogItem) ScriptName() string { return s.scriptName }
func (s *ScriptLogItem) ExitCode() int      { return s.exitCode }

// ExecTime is the script run time in seconds, 0 when not reported.
func (s *ScriptLogItem) ExecTime() float64 { return s.execTime }

// Event is the farm event that triggered the script.
func (s *ScriptLogItem) Event() string { return s.event }

// ScriptName returns the script name of a script entry. ok is false for system entries.
func ScriptName(e LogEntry) (name string, ok bool) {
	if s, isScript := e.(*ScriptLogItem); isScript {
		return s.scriptName, true
	}
	return "", false
}

// Parse converts one raw record into exactly one LogEntry variant.
// A ScriptName field selects ScriptLogItem; otherwise the record must be of kind system.
func Parse(rec RawRecord) (LogEntry, error) {
	base, err := newEntry(rec.Fields)
	if err != nil {
		return nil, err
	}

	if name, ok := rec.Fields[FieldScriptName]; ok {
		return parseScript(base, name)
	}

	switch rec.Kind {
	case KindSystem:
		return parseSystem(base)
	case KindScript:
		return nil, fmt.Errorf("%w: script record without %s", ErrMalformedRecord, FieldScriptName)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLogKind, rec.Kind)
	}
}

func newEntry(fields map[string]string) (entry, error) {
	ts, err := parseTimestamp(fields[FieldTimestamp])
	if err != nil {
		return entry{}, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, FieldTimestamp, err)
	}
	return entry{
		fields:    maps.Clone(fields),
		serverID:  fields[FieldServerID],
		message:   fields[FieldMessage],
		timestamp: ts,
	}, nil
}

func parseSystem(base entry) (*SystemLogItem, error) {
	raw, ok := base.fields[FieldSeverity]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedRecord, FieldSeverity)
	}
	sev, err := ParseSeverity(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return &SystemLogItem{entry: base, severity: sev, source: base.fields[FieldSource]}, nil
}

func parseScript(base entry, name string) (*ScriptLogItem, error) {
	raw, ok := base.fields[FieldExitCode]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedRecord, FieldExitCode)
	}
	code, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q", ErrMalformedRecord, FieldExitCode, raw)
	}

	var execTime float64
	if v := strings.TrimSpace(base.fields[FieldExecTime]); v != "" {
		execTime, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q", ErrMalformedRecord, FieldExecTime, v)
		}
	}

	return &ScriptLogItem{
		entry:      base,
		scriptName: name,
		exitCode:   code,
		execTime:   execTime,
		event:      base.fields[FieldEvent],
	}, nil
}

var timestampLayouts = []string{time.RFC3339, "2006-01-02 15:04:05"}

// parseTimestamp accepts unix seconds or one of timestampLayouts. Empty means zero time.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
