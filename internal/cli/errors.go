package cli

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// NetworkFailure is the kind of network problem that stopped a request.
type NetworkFailure int

const (
	// NetworkFailureOther is a network error that fits no other kind.
	NetworkFailureOther NetworkFailure = iota
	// NetworkFailureDNS means the host name did not resolve.
	NetworkFailureDNS
	// NetworkFailureRefused means nothing accepted the connection.
	NetworkFailureRefused
	// NetworkFailureUnreachable means the host or network could not be
	// reached, or the connection was reset.
	NetworkFailureUnreachable
	// NetworkFailureTimeout means the request ran out of time.
	NetworkFailureTimeout
	// NetworkFailureTLS means the TLS handshake or certificate check failed.
	NetworkFailureTLS
)

// String returns a short name for the failure.
func (f NetworkFailure) String() string {
	switch f {
	case NetworkFailureDNS:
		return "DNS lookup failed"
	case NetworkFailureRefused:
		return "connection refused"
	case NetworkFailureUnreachable:
		return "host unreachable"
	case NetworkFailureTimeout:
		return "timed out"
	case NetworkFailureTLS:
		return "TLS verification failed"
	default:
		return "network error"
	}
}

// ConnectionError reports that the Qwen OAuth server or API could not be
// reached.
type ConnectionError struct {
	// Endpoint is the URL that could not be reached.
	Endpoint string
	// Failure is what went wrong.
	Failure NetworkFailure
	// Reason is the underlying error.
	Reason error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("could not reach %s: %s", e.Endpoint, e.Failure)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Reason
}

// Hint suggests what the user can check.
func (e *ConnectionError) Hint() string {
	switch e.Failure {
	case NetworkFailureDNS, NetworkFailureRefused, NetworkFailureUnreachable:
		return "check your network connection and proxy settings"
	case NetworkFailureTimeout:
		return "the server is slow or unreachable, try again later"
	case NetworkFailureTLS:
		return "check the system CA certificates or any TLS-intercepting proxy"
	default:
		return "check your network connection"
	}
}

// AsConnectionError finds a network failure in err's chain and describes it.
// It returns nil when err is not a network failure; a cancelled context is
// not one.
func AsConnectionError(err error, endpoint string) *ConnectionError {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	failure, ok := classifyNetworkFailure(err)
	if !ok {
		return nil
	}
	return &ConnectionError{Endpoint: endpoint, Failure: failure, Reason: err}
}

func classifyNetworkFailure(err error) (NetworkFailure, bool) {
	var (
		dnsErr    *net.DNSError
		verifyErr *tls.CertificateVerificationError
		hostErr   x509.HostnameError
		recordErr tls.RecordHeaderError
		opErr     *net.OpError
		timeout   interface{ Timeout() bool }
	)

	switch {
	case errors.As(err, &dnsErr):
		return NetworkFailureDNS, true
	case errors.As(err, &verifyErr), errors.As(err, &hostErr), errors.As(err, &recordErr):
		return NetworkFailureTLS, true
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return NetworkFailureTimeout, true
	case errors.As(err, &timeout) && timeout.Timeout():
		return NetworkFailureTimeout, true
	case errors.Is(err, syscall.ECONNREFUSED):
		return NetworkFailureRefused, true
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.EHOSTUNREACH):
		return NetworkFailureUnreachable, true
	case errors.As(err, &opErr):
		return NetworkFailureOther, true
	}
	return NetworkFailureOther, false
}

// AuthRequiredError indicates no usable credentials exist.
// Implements error with actionable guidance.
type AuthRequiredError struct {
	// CredentialsPath is the credential file that was consulted.
	CredentialsPath string
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf(`No valid Qwen credentials in %s

To authenticate, run:
  qwenauth auth login

To check current authentication status:
  qwenauth auth status`, e.CredentialsPath)
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthRequiredError) Is(target error) bool {
	_, ok := target.(*AuthRequiredError)
	return ok
}

// AuthExpiredError indicates the access token expired and could not be
// refreshed.
type AuthExpiredError struct {
	// CredentialsPath is the credential file holding the expired token.
	CredentialsPath string
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthExpiredError) Error() string {
	return fmt.Sprintf(`Qwen credentials in %s have expired

To re-authenticate, run:
  qwenauth auth login

Or try to refresh your token:
  qwenauth auth refresh`, e.CredentialsPath)
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthExpiredError) Is(target error) bool {
	_, ok := target.(*AuthExpiredError)
	return ok
}

// AuthFailedError indicates the login or refresh flow failed.
type AuthFailedError struct {
	// Message is a short explanation for the user.
	Message string
	// Reason is the underlying error.
	Reason error
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthFailedError) Error() string {
	msg := e.Message
	if msg == "" && e.Reason != nil {
		msg = e.Reason.Error()
	}
	return fmt.Sprintf(`Authentication failed: %s

To retry authentication, run:
  qwenauth auth login`, msg)
}

// Unwrap returns the underlying error.
func (e *AuthFailedError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthFailedError) Is(target error) bool {
	_, ok := target.(*AuthFailedError)
	return ok
}
