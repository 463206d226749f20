package remote

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when a 2xx response carries no body where one was expected.
var ErrEmptyResponse = errors.New("remote ledger returned an empty response")

// TransportError wraps network level failures: DNS, refused connections,
// timeouts, or a body that could not be read.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteRejectedError is returned for any HTTP status outside 200-299.
type RemoteRejectedError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RemoteRejectedError) Error() string {
	return fmt.Sprintf("%s: remote rejected request with status %d", e.Op, e.StatusCode)
}

// MalformedPayloadError is returned when a non-empty body cannot be decoded.
// Body keeps the raw response for diagnostics; ArchiveURI is set when the
// payload was also archived.
type MalformedPayloadError struct {
	Op         string
	Body       string
	ArchiveURI string
	Err        error
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("%s: malformed payload: %v", e.Op, e.Err)
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }
