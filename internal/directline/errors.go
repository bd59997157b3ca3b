package directline

import (
	"errors"
	"fmt"
)

// ErrEmptyMessage is returned by SendMessage when the message text is empty
// or all-whitespace. The rejection happens locally, before any network call.
var ErrEmptyMessage = errors.New("message text is empty")

// ErrSecretRequired is returned by NewClient when no Direct Line secret is
// configured.
var ErrSecretRequired = errors.New("direct line secret required")

// ErrTokenRequired is returned by RefreshToken when called without a
// per-conversation token (refreshing the shared secret is not meaningful).
var ErrTokenRequired = errors.New("conversation token required for refresh")

// TransportError represents a non-2xx HTTP response from the Direct Line
// backend. The raw response body is carried verbatim for diagnostics; it is
// never parsed or retried at this layer.
type TransportError struct {
	// Status is the HTTP status code.
	Status int

	// Body is the raw response body.
	Body string
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("direct line request failed with status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("direct line request failed with status %d", e.Status)
}

// IsTransportError reports whether err is (or wraps) a TransportError,
// returning it when so.
func IsTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// ProtocolError represents a response that was delivered successfully but did
// not have the expected shape (undecodable JSON, missing required field).
// Protocol errors are hard failures and are never retried.
type ProtocolError struct {
	// Op is the operation that observed the malformed response.
	Op string

	// Reason describes what was wrong with the response.
	Reason string

	// Err is the underlying decode error, if any.
	Err error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// Unwrap returns the underlying decode error.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}
