// Package sink buffers log entries per server and answers queries over them.
package sink

import (
	"slices"
	"sync"

	"github.com/hejijunhao/scalr/internal/model"
)

// ConfigAndLaunchScriptName is the name of the script that configures and starts
// the application on a freshly launched server.
const ConfigAndLaunchScriptName = "TTMAppConfigAndLaunch"

// Sink is an append-only, insertion-ordered buffer of log entries for one
// identity. Safe for concurrent use.
type Sink struct {
	id string

	mu   sync.RWMutex
	logs []model.LogEntry
}

// New creates an empty Sink. The identity never changes.
func New(id string) *Sink {
	return &Sink{id: id}
}

// ID returns the sink identity.
func (s *Sink) ID() string { return s.id }

// Append adds one entry at the end.
func (s *Sink) Append(e model.LogEntry) {
	s.mu.Lock()
	s.logs = append(s.logs, e)
	s.mu.Unlock()
}

// AppendAll adds entries at the end, preserving their order.
func (s *Sink) AppendAll(entries []model.LogEntry) {
	s.mu.Lock()
	s.logs = append(s.logs, entries...)
	s.mu.Unlock()
}

// Len returns the number of buffered entries.
func (s *Sink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.logs)
}

// Entries returns every entry in insertion order.
func (s *Sink) Entries() []model.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.logs)
}

// ConfigAndLaunchScript returns the earliest script entry named ConfigAndLaunchScriptName.
// ok is false when no such entry has been appended.
func (s *Sink) ConfigAndLaunchScript() (entry *model.ScriptLogItem, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.logs {
		if si, isScript := e.(*model.ScriptLogItem); isScript && si.ScriptName() == ConfigAndLaunchScriptName {
			return si, true
		}
	}
	return nil, false
}

// Failures returns the failed script entries in insertion order.
// System entries are never reported here, even at error severity.
func (s *Sink) Failures() []*model.ScriptLogItem {
	var out []*model.ScriptLogItem
	for _, e := range s.ScriptingLogs() {
		if e.Failure() {
			out = append(out, e)
		}
	}
	return out
}

// ScriptingLogs returns the script entries in insertion order.
func (s *Sink) ScriptingLogs() []*model.ScriptLogItem {
	return byType[*model.ScriptLogItem](s)
}

// SystemLogs returns the system entries in insertion order.
func (s *Sink) SystemLogs() []*model.SystemLogItem {
	return byType[*model.SystemLogItem](s)
}

func byType[T model.LogEntry](s *Sink) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []T
	for _, e := range s.logs {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
