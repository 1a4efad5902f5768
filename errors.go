package campus

import (
	"errors"
	"strings"
)

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a value failed validation.
	ErrValidation = errors.New("validation error")

	// ErrEmptyMessage indicates Send was called with a blank input buffer.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrSendInFlight indicates Send was called while another send is running.
	ErrSendInFlight = errors.New("send already in flight")

	// ErrNotAuthenticated indicates an operation needs an identity.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotFound indicates the requested conversation does not exist.
	ErrNotFound = errors.New("not found")
)

// AuthError is returned by identity providers when credentials are rejected.
// Provider names the backend ("Firebase", "local") and Reason is the
// user-readable part of the failure.
type AuthError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *AuthError) Error() string {
	if e.Provider == "" {
		return e.Reason
	}
	return e.Provider + ": " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// AuthErrorMessage returns the text shown to the user for a failed sign in or
// sign up. Provider prefixes are stripped.
func AuthErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Reason
	}
	msg := err.Error()
	if i := strings.Index(msg, ": "); i > 0 && !strings.ContainsAny(msg[:i], " \t") {
		return msg[i+2:]
	}
	return msg
}
