package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ScriptNameSelectsScriptVariant(t *testing.T) {
	// Kind is ignored when ScriptName is present.
	for _, kind := range []Kind{KindScript, KindSystem, ""} {
		e, err := Parse(RawRecord{Kind: kind, Fields: map[string]string{
			FieldServerID:   "srv-1",
			FieldScriptName: "TTMAppConfigAndLaunch",
			FieldExitCode:   "0",
			FieldMessage:    "done",
		}})
		require.NoError(t, err, "kind %q", kind)

		s, ok := e.(*ScriptLogItem)
		require.True(t, ok, "kind %q: got %T", kind, e)
		assert.Equal(t, KindScript, s.Kind())
		assert.Equal(t, "TTMAppConfigAndLaunch", s.ScriptName())
		assert.Equal(t, "srv-1", s.ServerID())
		assert.False(t, s.Failure())
	}
}

func TestParse_SystemVariant(t *testing.T) {
	e, err := Parse(RawRecord{Kind: KindSystem, Fields: map[string]string{
		FieldServerID:  "srv-2",
		FieldSeverity:  "4",
		FieldSource:    "ScalarizrMessaging",
		FieldMessage:   "HostInit timed out",
		FieldTimestamp: "1700000000",
	}})
	require.NoError(t, err)

	s, ok := e.(*SystemLogItem)
	require.True(t, ok, "got %T", e)
	assert.Equal(t, SeverityError, s.Severity())
	assert.Equal(t, "ScalarizrMessaging", s.Source())
	assert.True(t, s.Failure())
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), s.Timestamp())

	_, hasName := ScriptName(e)
	assert.False(t, hasName)
}

func TestParse_UnknownKind(t *testing.T) {
	_, err := Parse(RawRecord{Kind: "audit", Fields: map[string]string{FieldMessage: "x"}})
	assert.ErrorIs(t, err, ErrUnknownLogKind)

	_, err = Parse(RawRecord{Fields: map[string]string{FieldMessage: "x"}})
	assert.ErrorIs(t, err, ErrUnknownLogKind)
}

func TestParse_MalformedRecords(t *testing.T) {
	tests := []struct {
		name string
		rec  RawRecord
	}{
		{"script without name", RawRecord{Kind: KindScript, Fields: map[string]string{FieldExitCode: "1"}}},
		{"missing exit code", RawRecord{Kind: KindScript, Fields: map[string]string{FieldScriptName: "a"}}},
		{"bad exit code", RawRecord{Kind: KindScript, Fields: map[string]string{FieldScriptName: "a", FieldExitCode: "x"}}},
		{"bad exec time", RawRecord{Kind: KindScript, Fields: map[string]string{FieldScriptName: "a", FieldExitCode: "0", FieldExecTime: "soon"}}},
		{"missing severity", RawRecord{Kind: KindSystem, Fields: map[string]string{}}},
		{"bad severity", RawRecord{Kind: KindSystem, Fields: map[string]string{FieldSeverity: "9"}}},
		{"bad timestamp", RawRecord{Kind: KindSystem, Fields: map[string]string{FieldSeverity: "2", FieldTimestamp: "yesterday"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.rec)
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestScriptFailure_NonZeroExitCode(t *testing.T) {
	for code, want := range map[string]bool{"0": false, "1": true, "127": true, "-1": true} {
		e, err := Parse(RawRecord{Kind: KindScript, Fields: map[string]string{
			FieldScriptName: "deploy", FieldExitCode: code,
		}})
		require.NoError(t, err)
		assert.Equal(t, want, e.Failure(), "exit code %s", code)
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"1", SeverityDebug},
		{"3", SeverityWarning},
		{"5", SeverityFatal},
		{"ERROR", SeverityError},
		{" warning ", SeverityWarning},
		{"info", SeverityInfo},
	}
	for _, tt := range tests {
		got, err := ParseSeverity(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseSeverity("0")
	assert.Error(t, err)
	_, err = ParseSeverity("loud")
	assert.Error(t, err)
}

func TestParseTimestampLayouts(t *testing.T) {
	want := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	for _, s := range []string{"2024-03-01T12:30:00Z", "2024-03-01 12:30:00", "1709296200"} {
		got, err := parseTimestamp(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), "%s: got %v", s, got)
	}

	got, err := parseTimestamp("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestFieldsReturnsCopy(t *testing.T) {
	src := map[string]string{FieldSeverity: "2", FieldMessage: "hello"}
	e, err := Parse(RawRecord{Kind: KindSystem, Fields: src})
	require.NoError(t, err)

	src[FieldMessage] = "mutated"
	got := e.Fields()
	got[FieldMessage] = "also mutated"

	v, ok := e.Field(FieldMessage)
	require.True(t, ok)
	assert.Equal(t, "hello", v)
	assert.Equal(t, "hello", e.Message())
}
