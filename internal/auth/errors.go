package auth

import (
	"fmt"
)

// ConfigError indicates a required credential or identifier is missing or
// invalid. It is raised before any network call and is never retried.
type ConfigError struct {
	// Reason describes what is missing or invalid.
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "auth configuration error: " + e.Reason
}

// AuthError indicates the identity backend rejected or could not complete an
// authentication flow. Callers may retry interactively or, where a degraded
// unauthenticated mode exists, explicitly opt into it.
type AuthError struct {
	// Code is the OAuth error code from the provider, if any
	// (e.g. "access_denied").
	Code string

	// Description is the provider's human-readable error description.
	Description string

	// Err is the underlying error for flows that failed without a provider
	// error code (network failure, timeout, state mismatch).
	Err error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	switch {
	case e.Code != "" && e.Description != "":
		return fmt.Sprintf("authentication failed: %s - %s", e.Code, e.Description)
	case e.Code != "":
		return fmt.Sprintf("authentication failed: %s", e.Code)
	case e.Err != nil:
		return fmt.Sprintf("authentication failed: %v", e.Err)
	default:
		return "authentication failed"
	}
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Err
}
