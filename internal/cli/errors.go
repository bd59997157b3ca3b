package cli

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"dlchat/internal/auth"
	"dlchat/internal/directline"
)

// ConnectionErrorType categorizes the type of connection error.
type ConnectionErrorType int

const (
	// ConnectionErrorUnknown indicates an unclassified connection error.
	ConnectionErrorUnknown ConnectionErrorType = iota
	// ConnectionErrorTLS indicates a TLS/certificate verification error.
	ConnectionErrorTLS
	// ConnectionErrorNetwork indicates a network connectivity error.
	ConnectionErrorNetwork
	// ConnectionErrorTimeout indicates a connection timeout.
	ConnectionErrorTimeout
	// ConnectionErrorDNS indicates a DNS resolution failure.
	ConnectionErrorDNS
)

// String returns a human-readable name for the connection error type.
func (t ConnectionErrorType) String() string {
	switch t {
	case ConnectionErrorTLS:
		return "TLS certificate error"
	case ConnectionErrorNetwork:
		return "Network error"
	case ConnectionErrorTimeout:
		return "Connection timeout"
	case ConnectionErrorDNS:
		return "DNS resolution error"
	default:
		return "Connection error"
	}
}

// ConnectionError indicates a failure reaching the Direct Line endpoint or
// the identity provider, categorized for user feedback.
type ConnectionError struct {
	// Endpoint is the URL that could not be reached.
	Endpoint string
	// Type categorizes the connection error.
	Type ConnectionErrorType
	// Reason is the underlying error.
	Reason error
}

// Error returns a user-friendly message with the endpoint and category.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s reaching %s: %v", e.Type, e.Endpoint, e.Reason)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Reason
}

// ClassifyConnectionError analyzes an error and returns a ConnectionError
// with the appropriate type. Returns nil for a nil error.
func ClassifyConnectionError(err error, endpoint string) *ConnectionError {
	if err == nil {
		return nil
	}

	errType := ConnectionErrorUnknown
	switch {
	case isTLSError(err):
		errType = ConnectionErrorTLS
	case isDNSError(err):
		errType = ConnectionErrorDNS
	case isTimeoutError(err):
		errType = ConnectionErrorTimeout
	case isNetworkError(err.Error()):
		errType = ConnectionErrorNetwork
	}

	return &ConnectionError{
		Endpoint: endpoint,
		Type:     errType,
		Reason:   err,
	}
}

func isTLSError(err error) bool {
	var certErr *x509.CertificateInvalidError
	var hostErr *x509.HostnameError
	var unknownAuthErr *x509.UnknownAuthorityError
	if errors.As(err, &certErr) || errors.As(err, &hostErr) || errors.As(err, &unknownAuthErr) {
		return true
	}

	errStr := err.Error()
	for _, keyword := range []string{"x509:", "certificate", "tls:", "TLS handshake"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

func isNetworkError(errStr string) bool {
	for _, keyword := range []string{
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no route to host",
		"dial tcp",
	} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// AuthRequiredError indicates authentication is needed before the command
// can proceed.
type AuthRequiredError struct {
	// Reason explains what was missing.
	Reason string
}

// Error returns a message with actionable guidance.
func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf(`Authentication required: %s

To sign in, run:
  dlchat auth login`, e.Reason)
}

// Is supports errors.Is checks against the type.
func (e *AuthRequiredError) Is(target error) bool {
	_, ok := target.(*AuthRequiredError)
	return ok
}

// AuthFailedError indicates a sign-in attempt failed.
type AuthFailedError struct {
	// Reason is the underlying error.
	Reason error
}

// Error returns a user-friendly error message.
func (e *AuthFailedError) Error() string {
	return fmt.Sprintf("Authentication failed: %v", e.Reason)
}

// Unwrap returns the underlying error.
func (e *AuthFailedError) Unwrap() error {
	return e.Reason
}

// Is supports errors.Is checks against the type.
func (e *AuthFailedError) Is(target error) bool {
	_, ok := target.(*AuthFailedError)
	return ok
}

// ClassifyError maps lower-level errors onto the CLI error types so commands
// return consistent messages and exit codes. Errors that already carry
// enough context pass through unchanged.
func ClassifyError(err error, endpoint string) error {
	if err == nil {
		return nil
	}

	var authErr *auth.AuthError
	if errors.As(err, &authErr) {
		return &AuthFailedError{Reason: authErr}
	}

	var transportErr *directline.TransportError
	if errors.As(err, &transportErr) {
		switch transportErr.Status {
		case 401, 403:
			return &AuthRequiredError{Reason: fmt.Sprintf(
				"the Direct Line endpoint rejected the credentials (HTTP %d)", transportErr.Status)}
		}
		return err
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ClassifyConnectionError(err, endpoint)
	}

	return err
}
