package governor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"qwenauth/internal/clock"
	"qwenauth/pkg/logging"
)

// DefaultRetryAfter is used for a 429 without a usable Retry-After header.
const DefaultRetryAfter = 60 * time.Second

// Outbound header names.
const (
	HeaderCacheControl = "X-DashScope-CacheControl"
	HeaderAuthType     = "X-DashScope-AuthType"
	HeaderUserAgent    = "X-DashScope-UserAgent"
	HeaderRequestID    = "X-Request-Id"
)

// TokenResolver yields access tokens and forgets them on demand.
type TokenResolver interface {
	GetValidAccessToken(ctx context.Context) (string, bool)
	Invalidate()
}

// NoValidCredentialError is returned when no access token can be obtained.
// The user has to log in again.
type NoValidCredentialError struct{}

// Error implements the error interface.
func (e *NoValidCredentialError) Error() string {
	return "no valid Qwen credentials: run 'qwenauth auth login' to authenticate"
}

// UserAgent returns the client identification sent with every request.
func UserAgent(version string) string {
	if version == "" {
		version = "dev"
	}
	return fmt.Sprintf("QwenCode/%s (%s; %s)", strings.TrimPrefix(version, "v"), runtime.GOOS, runtime.GOARCH)
}

// Transport is an http.RoundTripper that authenticates, paces and retries
// calls to the Qwen API.
type Transport struct {
	base      http.RoundTripper
	resolver  TokenResolver
	queue     *Queue
	clock     clock.Clock
	userAgent string
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithBase sets the underlying round tripper.
func WithBase(base http.RoundTripper) TransportOption {
	return func(t *Transport) {
		t.base = base
	}
}

// WithClock sets the clock used for Retry-After waits.
func WithClock(clk clock.Clock) TransportOption {
	return func(t *Transport) {
		t.clock = clk
	}
}

// WithVersion sets the version reported in the user agent.
func WithVersion(version string) TransportOption {
	return func(t *Transport) {
		t.userAgent = UserAgent(version)
	}
}

// NewTransport creates a Transport dispatching through queue.
func NewTransport(resolver TokenResolver, queue *Queue, opts ...TransportOption) *Transport {
	t := &Transport{
		base:      http.DefaultTransport,
		resolver:  resolver,
		queue:     queue,
		clock:     clock.Real{},
		userAgent: UserAgent(""),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// decision is the action taken for a response status.
type decision int

const (
	passThrough decision = iota
	reauthenticate
	backOff
)

func decide(status int) decision {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return reauthenticate
	case http.StatusTooManyRequests:
		return backOff
	default:
		return passThrough
	}
}

// RoundTrip implements http.RoundTripper.
//
// 401 and 403 invalidate the token cache; if re-resolution yields a
// different token the call is retried once with it, otherwise the original
// response is returned. 429 waits for Retry-After and retries once with the
// same headers. Retries bypass the queue.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	body, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	token, ok := t.resolver.GetValidAccessToken(ctx)
	if !ok {
		return nil, &NoValidCredentialError{}
	}

	requestID := uuid.NewString()
	attempt := t.prepare(req, body, token, requestID)

	var resp *http.Response
	err = t.queue.Do(ctx, func(ctx context.Context) error {
		var sendErr error
		resp, sendErr = t.base.RoundTrip(attempt)
		return sendErr
	})
	if err != nil {
		return nil, err
	}
	logging.Debug("Governor", "%s %s -> %d (request %s)", req.Method, req.URL.Path, resp.StatusCode, requestID)

	retried := map[decision]bool{}
	for {
		d := decide(resp.StatusCode)
		if d == passThrough || retried[d] {
			return resp, nil
		}
		retried[d] = true

		switch d {
		case reauthenticate:
			t.resolver.Invalidate()
			newToken, ok := t.resolver.GetValidAccessToken(ctx)
			if !ok || newToken == token {
				logging.Debug("Governor", "Status %d and no new token, returning response (request %s)", resp.StatusCode, requestID)
				return resp, nil
			}
			logging.Info("Governor", "Retrying with refreshed credentials after status %d (request %s)", resp.StatusCode, requestID)
			token = newToken

		case backOff:
			wait := t.retryAfter(resp.Header.Get("Retry-After"))
			logging.Info("Governor", "Rate limited, retrying in %s (request %s)", wait, requestID)
			if err := t.clock.Sleep(ctx, wait); err != nil {
				drain(resp)
				return nil, err
			}
		}

		drain(resp)
		attempt = t.prepare(req, body, token, requestID)
		resp, err = t.base.RoundTrip(attempt)
		if err != nil {
			return nil, err
		}
		logging.Debug("Governor", "Retry %s %s -> %d (request %s)", req.Method, req.URL.Path, resp.StatusCode, requestID)
	}
}

// prepare clones req with a fresh copy of body and the outbound headers.
func (t *Transport) prepare(req *http.Request, body []byte, token, requestID string) *http.Request {
	out := req.Clone(req.Context())
	if body != nil {
		out.Body = io.NopCloser(bytes.NewReader(body))
		out.ContentLength = int64(len(body))
		out.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}

	out.Header.Set("Authorization", "Bearer "+token)
	out.Header.Set("User-Agent", t.userAgent)
	out.Header.Set(HeaderCacheControl, "enable")
	out.Header.Set(HeaderAuthType, "qwen-oauth")
	out.Header.Set(HeaderUserAgent, t.userAgent)
	out.Header.Set(HeaderRequestID, requestID)
	return out
}

// retryAfter parses a Retry-After value given in seconds or as an HTTP date.
func (t *Transport) retryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultRetryAfter
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return DefaultRetryAfter
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if wait := at.Sub(t.clock.Now()); wait > 0 {
			return wait
		}
		return 0
	}
	return DefaultRetryAfter
}

func bufferBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to buffer request body: %w", err)
	}
	return body, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	_ = resp.Body.Close()
}
