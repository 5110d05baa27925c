// Package transport builds, signs and sends API requests.
package transport

import (
	"context"
	"errors"

	"github.com/hejijunhao/scalr/internal/action"
)

// ErrTransport is wrapped by every error returned from Send.
var ErrTransport = errors.New("transport failure")

// Credentials identify the API key pair used to sign requests.
type Credentials struct {
	KeyID     string
	AccessKey string
}

// Request is one remote call. It is built per dispatch and never reused.
type Request struct {
	ID          string // correlation ID for logs and traces
	Action      action.Descriptor
	Endpoint    string
	Credentials Credentials
	Version     string
	Arguments   []any // positional, forwarded exactly as supplied
}

// Transport sends a request and returns the raw response payload.
type Transport interface {
	Send(ctx context.Context, req *Request) ([]byte, error)
}
