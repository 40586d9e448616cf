package common

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotAuthenticated is returned when an operation that needs a session
// is attempted anonymously. It is raised before any network call is made.
var ErrNotAuthenticated = errors.New("not authenticated")

// ApiError carries a structured failure reported by the service. Message
// is the verbatim server text and is meant to be shown to the user as-is.
type ApiError struct {
	Message string
}

func (e *ApiError) Error() string {
	return e.Message
}

// TransportError wraps a connectivity failure (DNS, TLS, connection reset).
// It is never retried; the caller decides what to do with it.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedUpstreamError marks an unexpected shape from a normally-trusted
// endpoint. Listing code logs it and skips the offending item instead of
// blanking the whole page.
type MalformedUpstreamError struct {
	Reason string
}

func (e *MalformedUpstreamError) Error() string {
	return fmt.Sprintf("malformed upstream response: %s", e.Reason)
}
