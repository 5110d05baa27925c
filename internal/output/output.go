package output

import (
	"context"
	"strings"
	"time"

	"github.com/hejijunhao/scalr/internal/failure"
)

// Report is the serialized form of a classified failure.
type Report struct {
	Server     string             `json:"server"`
	Kind       string             `json:"kind"`
	Script     string             `json:"script,omitempty"`
	ExitCode   int                `json:"exit_code,omitempty"`
	Timestamp  time.Time          `json:"timestamp,omitzero"`
	Categories []failure.Category `json:"categories"`
	Message    string             `json:"message,omitempty"`
	Fields     map[string]string  `json:"fields,omitempty"`
}

// Output defines the interface for failure report destinations.
type Output interface {
	Write(ctx context.Context, r Report) error
	Close() error
}

// Verbosity controls how much of an entry a report carries.
type Verbosity int

const (
	Minimal Verbosity = iota
	Standard
	Full
)

func (v Verbosity) String() string {
	switch v {
	case Minimal:
		return "minimal"
	case Full:
		return "full"
	default:
		return "standard"
	}
}

// ParseVerbosity converts "minimal", "standard" or "full". Unknown strings
// default to Standard.
func ParseVerbosity(s string) Verbosity {
	switch strings.ToLower(s) {
	case "minimal":
		return Minimal
	case "full":
		return Full
	default:
		return Standard
	}
}
