package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrUnrecognizedAction is returned for names outside the action catalog. No request is sent.
	ErrUnrecognizedAction = errors.New("unrecognized action")
	// ErrMalformedResponse is returned when a payload cannot be parsed into a Response.
	ErrMalformedResponse = errors.New("malformed response")
)

// RemoteError is a well-formed error envelope returned by the service.
type RemoteError struct {
	TransactionID string
	Message       string
}

func (e *RemoteError) Error() string {
	if e.TransactionID == "" {
		return fmt.Sprintf("remote error: %s", e.Message)
	}
	return fmt.Sprintf("remote error: %s (transaction %s)", e.Message, e.TransactionID)
}
