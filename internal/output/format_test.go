package output

import (
	"encoding/json"
	"testing"

	"github.com/hejijunhao/scalr/internal/failure"
	"github.com/hejijunhao/scalr/internal/model"
)

func testFailure(t *testing.T) *failure.Failure {
	t.Helper()
	e, err := model.Parse(model.RawRecord{Kind: model.KindScript, Fields: map[string]string{
		model.FieldServerID:   "web-1",
		model.FieldScriptName: "TTMAppConfigAndLaunch",
		model.FieldExitCode:   "1",
		model.FieldTimestamp:  "2026-02-19T12:00:00Z",
		model.FieldMessage:    "write error: No space left on device",
	}})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return failure.Default().Classify("web-1", e)
}

func TestFormatReportMinimal(t *testing.T) {
	r := FormatReport(testFailure(t), Minimal)

	if r.Message != "" {
		t.Fatal("Message should be empty at Minimal")
	}
	if r.Fields != nil {
		t.Fatal("Fields should be nil at Minimal")
	}
	if r.Server != "web-1" || r.Script != "TTMAppConfigAndLaunch" || r.ExitCode != 1 {
		t.Fatalf("identity should be preserved, got %+v", r)
	}
	if len(r.Categories) != 1 || r.Categories[0].Name != "disk_full" {
		t.Fatalf("categories = %+v", r.Categories)
	}
}

func TestFormatReportStandard(t *testing.T) {
	r := FormatReport(testFailure(t), Standard)

	if r.Message != "write error: No space left on device" {
		t.Fatalf("Message should be preserved at Standard, got %q", r.Message)
	}
	if r.Fields != nil {
		t.Fatal("Fields should be nil at Standard")
	}
}

func TestFormatReportFull(t *testing.T) {
	r := FormatReport(testFailure(t), Full)

	if r.Fields[model.FieldScriptName] != "TTMAppConfigAndLaunch" {
		t.Fatalf("Fields should be present at Full, got %v", r.Fields)
	}
	if r.Timestamp.IsZero() {
		t.Fatal("Timestamp should be parsed")
	}
}

func TestReportJSONKeys(t *testing.T) {
	data, err := json.Marshal(FormatReport(testFailure(t), Minimal))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"server", "kind", "script", "exit_code", "timestamp", "categories"} {
		if _, ok := m[key]; !ok {
			t.Errorf("expected key %q in %s", key, data)
		}
	}
	for _, key := range []string{"message", "fields"} {
		if _, ok := m[key]; ok {
			t.Errorf("key %q should be omitted at Minimal", key)
		}
	}
}

func TestParseVerbosity(t *testing.T) {
	tests := []struct {
		in   string
		want Verbosity
	}{
		{"minimal", Minimal},
		{"FULL", Full},
		{"standard", Standard},
		{"", Standard},
		{"chatty", Standard},
	}
	for _, tt := range tests {
		if got := ParseVerbosity(tt.in); got != tt.want {
			t.Errorf("ParseVerbosity(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if ParseVerbosity(tt.want.String()) != tt.want {
			t.Errorf("String/Parse mismatch for %v", tt.want)
		}
	}
}
