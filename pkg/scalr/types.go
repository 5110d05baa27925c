package scalr

import (
	"github.com/hejijunhao/scalr/internal/dispatch"
	"github.com/hejijunhao/scalr/internal/failure"
	"github.com/hejijunhao/scalr/internal/model"
	"github.com/hejijunhao/scalr/internal/output"
	"github.com/hejijunhao/scalr/internal/sink"
	"github.com/hejijunhao/scalr/internal/transport"
)

type (
	// Dispatch results and the service error envelope.
	Response    = dispatch.Response
	RemoteError = dispatch.RemoteError

	LogEntry      = model.LogEntry
	SystemLogItem = model.SystemLogItem
	ScriptLogItem = model.ScriptLogItem

	Registry = sink.Registry
	Sink     = sink.Sink

	Failure  = failure.Failure
	Category = failure.Category
	Pattern  = failure.Pattern

	// Output receives failure reports; see Client.Deliver.
	Output    = output.Output
	Report    = output.Report
	Verbosity = output.Verbosity

	// Transport sends an encoded request and returns the raw payload.
	Transport   = transport.Transport
	Request     = transport.Request
	Credentials = transport.Credentials
)

const (
	Minimal  = output.Minimal
	Standard = output.Standard
	Full     = output.Full
)

var (
	ErrUnrecognizedAction = dispatch.ErrUnrecognizedAction
	ErrMalformedResponse  = dispatch.ErrMalformedResponse
	ErrTransport          = transport.ErrTransport
)

// Generic is the category of failures no pattern recognizes.
var Generic = failure.Generic

// DefaultPatterns returns the built-in failure patterns, in match order.
func DefaultPatterns() []Pattern { return failure.DefaultPatterns() }

// Keywords builds a pattern matching messages that contain any keyword,
// ignoring case.
func Keywords(cat Category, keywords ...string) Pattern { return failure.Keywords(cat, keywords...) }

// ExitCodes builds a pattern matching script runs that exited with one of codes.
func ExitCodes(cat Category, codes ...int) Pattern { return failure.ExitCodes(cat, codes...) }

// NewRegistry creates a registry with one empty sink per server ID.
func NewRegistry(serverIDs ...string) *Registry { return sink.ForIDs(serverIDs) }
