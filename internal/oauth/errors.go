package oauth

import (
	"errors"
	"fmt"
)

// ErrAuthorizationPending means the user has not approved the device yet.
// The polling loop keeps going; it is never returned from Poll.
var ErrAuthorizationPending = errors.New("authorization pending")

// ErrPollingTimeout is returned when the device code expires before the
// user approves it.
var ErrPollingTimeout = errors.New("device authorization timed out")

// SlowDownError asks the poller to back off.
type SlowDownError struct {
	Description string
}

// Error implements the error interface.
func (e *SlowDownError) Error() string {
	if e.Description != "" {
		return "slow down: " + e.Description
	}
	return "slow down"
}

// OAuthError is an error response from the OAuth server (RFC 6749 §5.2).
type OAuthError struct {
	StatusCode  int
	Code        string
	Description string
}

// Error implements the error interface.
func (e *OAuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("oauth error %s (status %d): %s", e.Code, e.StatusCode, e.Description)
	}
	return fmt.Sprintf("oauth error %s (status %d)", e.Code, e.StatusCode)
}

// TransportError is a network failure or an unexpected HTTP status from an
// OAuth endpoint.
type TransportError struct {
	// Op names the request, e.g. "device authorization".
	Op string
	// StatusCode is set when the server answered with a non-success status.
	StatusCode int
	// Body is a truncated copy of the response body, if any.
	Body string
	// Err is the underlying network error, if any.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s request failed: %v", e.Op, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s request failed with status %d: %s", e.Op, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s request failed with status %d", e.Op, e.StatusCode)
	}
}

// Unwrap returns the underlying network error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// RefreshError means one refresh token was rejected. Callers try the next
// candidate.
type RefreshError struct {
	StatusCode int
	Code       string
	Err        error
}

// Error implements the error interface.
func (e *RefreshError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("token refresh failed: %v", e.Err)
	case e.Code != "":
		return fmt.Sprintf("token refresh rejected: %s (status %d)", e.Code, e.StatusCode)
	default:
		return fmt.Sprintf("token refresh rejected with status %d", e.StatusCode)
	}
}

// Unwrap returns the underlying error.
func (e *RefreshError) Unwrap() error {
	return e.Err
}

// LoginFailureMessage turns a login error into a short message for the user.
func LoginFailureMessage(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, ErrPollingTimeout) {
		return "Authorization timed out before it was approved. Please run the login again."
	}

	var oauthErr *OAuthError
	if errors.As(err, &oauthErr) {
		switch oauthErr.Code {
		case "access_denied":
			return "Authorization was denied in the browser."
		case "expired_token":
			return "The device code expired. Please run the login again."
		}
		return "Authorization failed: " + oauthErr.Code + "."
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return "Could not reach the Qwen authorization server. Check your network and try again."
	}

	return "Login failed: " + err.Error()
}
