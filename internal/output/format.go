package output

import (
	"fmt"

	"github.com/hejijunhao/scalr/internal/failure"
	"github.com/hejijunhao/scalr/internal/model"
)

// FormatReport builds the report for f.
// At Minimal: message and raw fields are omitted.
// At Standard: the message is kept.
// At Full: every raw field is included as well.
func FormatReport(f *failure.Failure, verbosity Verbosity) Report {
	r := Report{
		Server:     f.ServerID(),
		Kind:       string(f.Kind()),
		Timestamp:  f.Timestamp(),
		Categories: f.Categories(),
	}
	if r.Server == "" {
		r.Server = fmt.Sprint(f.Owner())
	}
	if s, ok := f.Entry().(*model.ScriptLogItem); ok {
		r.Script = s.ScriptName()
		r.ExitCode = s.ExitCode()
	}
	if verbosity >= Standard {
		r.Message = f.Message()
	}
	if verbosity == Full {
		r.Fields = f.Fields()
	}
	return r
}
