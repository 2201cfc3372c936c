package governor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qwenauth/internal/clock"
)

// fakeResolver hands out tokens in order; Invalidate advances to the next
// one if there is one.
type fakeResolver struct {
	mu            sync.Mutex
	tokens        []string
	idx           int
	invalidations int
}

func (f *fakeResolver) GetValidAccessToken(_ context.Context) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tokens) == 0 {
		return "", false
	}
	return f.tokens[f.idx], true
}

func (f *fakeResolver) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidations++
	if f.idx < len(f.tokens)-1 {
		f.idx++
	}
}

type recordedRequest struct {
	at      time.Time
	header  http.Header
	body    string
	path    string
	method  string
	reqBody int64
}

// scriptedServer answers with the given statuses in order and repeats the
// last one.
type scriptedServer struct {
	mu       sync.Mutex
	clock    clock.Clock
	statuses []int
	headers  []http.Header
	requests []recordedRequest
}

func (s *scriptedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	n := len(s.requests)
	s.requests = append(s.requests, recordedRequest{
		at:      s.clock.Now(),
		header:  r.Header.Clone(),
		body:    string(body),
		path:    r.URL.Path,
		method:  r.Method,
		reqBody: r.ContentLength,
	})
	status := s.statuses[len(s.statuses)-1]
	if n < len(s.statuses) {
		status = s.statuses[n]
	}
	var extra http.Header
	if n < len(s.headers) {
		extra = s.headers[n]
	}
	s.mu.Unlock()

	for k, v := range extra {
		w.Header()[k] = v
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, http.StatusText(status))
}

func (s *scriptedServer) recorded() []recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedRequest(nil), s.requests...)
}

type transportFixture struct {
	clock    *clock.Fake
	server   *scriptedServer
	resolver *fakeResolver
	queue    *Queue
	client   *http.Client
	url      string
}

func newTransportFixture(t *testing.T, tokens []string, statuses []int, headers ...http.Header) *transportFixture {
	t.Helper()
	clk := clock.NewFake(epoch)
	srv := &scriptedServer{clock: clk, statuses: statuses, headers: headers}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	resolver := &fakeResolver{tokens: tokens}
	queue := NewQueue(DefaultConfig(), clk, fixedJitter(time.Second))
	transport := NewTransport(resolver, queue,
		WithBase(ts.Client().Transport),
		WithClock(clk),
		WithVersion("v1.2.3"),
	)

	return &transportFixture{
		clock:    clk,
		server:   srv,
		resolver: resolver,
		queue:    queue,
		client:   &http.Client{Transport: transport},
		url:      ts.URL,
	}
}

func (f *transportFixture) post(t *testing.T, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.url+"/v1/chat/completions", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestTransport_SetsHeaders(t *testing.T) {
	f := newTransportFixture(t, []string{"tok"}, []int{http.StatusOK})

	resp := f.post(t, `{"model":"qwen3-coder-plus"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	reqs := f.server.recorded()
	require.Len(t, reqs, 1)
	h := reqs[0].header
	expectedUA := "QwenCode/1.2.3 (" + runtime.GOOS + "; " + runtime.GOARCH + ")"
	assert.Equal(t, "Bearer tok", h.Get("Authorization"))
	assert.Equal(t, expectedUA, h.Get("User-Agent"))
	assert.Equal(t, expectedUA, h.Get(HeaderUserAgent))
	assert.Equal(t, "enable", h.Get(HeaderCacheControl))
	assert.Equal(t, "qwen-oauth", h.Get(HeaderAuthType))
	assert.NotEmpty(t, h.Get(HeaderRequestID))
	assert.Equal(t, "application/json", h.Get("Content-Type"))
	assert.Equal(t, `{"model":"qwen3-coder-plus"}`, reqs[0].body)
}

func TestTransport_NoValidCredential(t *testing.T) {
	f := newTransportFixture(t, nil, []int{http.StatusOK})

	req, err := http.NewRequest(http.MethodGet, f.url+"/v1/models", nil)
	require.NoError(t, err)
	_, err = f.client.Do(req)
	require.Error(t, err)

	var noCred *NoValidCredentialError
	require.True(t, errors.As(err, &noCred))
	assert.Contains(t, err.Error(), "qwenauth auth login")
	assert.Empty(t, f.server.recorded())
}

func TestTransport_RateLimitedRetriesAfterRetryAfter(t *testing.T) {
	f := newTransportFixture(t, []string{"tok"},
		[]int{http.StatusTooManyRequests, http.StatusOK},
		http.Header{"Retry-After": {"2"}},
	)

	resp := f.post(t, `{"n":1}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	reqs := f.server.recorded()
	require.Len(t, reqs, 2)
	assert.GreaterOrEqual(t, reqs[1].at.Sub(reqs[0].at), 2*time.Second)
	assert.Equal(t, reqs[0].body, reqs[1].body)
	assert.Equal(t, reqs[0].reqBody, reqs[1].reqBody)
	for _, name := range []string{"Authorization", "User-Agent", "Content-Type", HeaderRequestID, HeaderAuthType, HeaderCacheControl, HeaderUserAgent} {
		assert.Equal(t, reqs[0].header.Get(name), reqs[1].header.Get(name), name)
	}

	// The retry does not go through the queue.
	assert.Equal(t, reqs[0].at, f.queue.LastDispatch())
}

func TestTransport_RateLimitedDefaultsToSixtySeconds(t *testing.T) {
	f := newTransportFixture(t, []string{"tok"}, []int{http.StatusTooManyRequests, http.StatusOK})

	resp := f.post(t, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	reqs := f.server.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, DefaultRetryAfter, reqs[1].at.Sub(reqs[0].at))
}

func TestTransport_RateLimitedRetriesOnlyOnce(t *testing.T) {
	f := newTransportFixture(t, []string{"tok"},
		[]int{http.StatusTooManyRequests},
		http.Header{"Retry-After": {"1"}},
		http.Header{"Retry-After": {"1"}},
	)

	resp := f.post(t, "{}")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Len(t, f.server.recorded(), 2)
}

func TestTransport_UnauthorizedWithNewToken(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			f := newTransportFixture(t, []string{"old", "new"}, []int{status, http.StatusOK})

			resp := f.post(t, `{"q":"hi"}`)
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			reqs := f.server.recorded()
			require.Len(t, reqs, 2)
			assert.Equal(t, "Bearer old", reqs[0].header.Get("Authorization"))
			assert.Equal(t, "Bearer new", reqs[1].header.Get("Authorization"))
			assert.Equal(t, reqs[0].body, reqs[1].body)
			assert.Equal(t, reqs[0].header.Get(HeaderRequestID), reqs[1].header.Get(HeaderRequestID))
			assert.Equal(t, 1, f.resolver.invalidations)
		})
	}
}

func TestTransport_UnauthorizedWithSameToken(t *testing.T) {
	f := newTransportFixture(t, []string{"only"}, []int{http.StatusUnauthorized, http.StatusOK})

	resp := f.post(t, "{}")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusText(http.StatusUnauthorized), string(body))

	assert.Len(t, f.server.recorded(), 1)
	assert.Equal(t, 1, f.resolver.invalidations)
}

func TestTransport_UnauthorizedRetriesOnlyOnce(t *testing.T) {
	f := newTransportFixture(t, []string{"a", "b", "c"}, []int{http.StatusUnauthorized})

	resp := f.post(t, "{}")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Len(t, f.server.recorded(), 2)
	assert.Equal(t, 1, f.resolver.invalidations)
}

func TestTransport_OneRetryPerCause(t *testing.T) {
	f := newTransportFixture(t, []string{"old", "new"},
		[]int{http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusOK},
		nil,
		http.Header{"Retry-After": {"3"}},
	)

	resp := f.post(t, "{}")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	reqs := f.server.recorded()
	require.Len(t, reqs, 3)
	assert.Equal(t, "Bearer new", reqs[2].header.Get("Authorization"))
}

func TestTransport_PassesOtherStatusesThrough(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusInternalServerError, http.StatusBadGateway} {
		f := newTransportFixture(t, []string{"tok"}, []int{status, http.StatusOK})
		resp := f.post(t, "{}")
		assert.Equal(t, status, resp.StatusCode)
		assert.Len(t, f.server.recorded(), 1)
	}
}

func TestTransport_CancelledDuringRetryAfter(t *testing.T) {
	f := newTransportFixture(t, []string{"tok"}, []int{http.StatusTooManyRequests})

	ctx, cancel := context.WithCancel(context.Background())
	transport := f.client.Transport.(*Transport)
	transport.clock = cancellingClock{Fake: f.clock, cancel: cancel}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url+"/v1/models", nil)
	require.NoError(t, err)
	_, err = f.client.Do(req)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, f.server.recorded(), 1)
}

// cancellingClock cancels the context instead of sleeping.
type cancellingClock struct {
	*clock.Fake
	cancel context.CancelFunc
}

func (c cancellingClock) Sleep(ctx context.Context, d time.Duration) error {
	c.cancel()
	return ctx.Err()
}

func TestRetryAfter(t *testing.T) {
	tr := NewTransport(&fakeResolver{}, nil, WithClock(clock.NewFake(epoch)))

	tests := []struct {
		value    string
		expected time.Duration
	}{
		{"", DefaultRetryAfter},
		{"2", 2 * time.Second},
		{" 0 ", 0},
		{"-5", DefaultRetryAfter},
		{"soon", DefaultRetryAfter},
		{epoch.Add(30 * time.Second).Format(http.TimeFormat), 30 * time.Second},
		{epoch.Add(-30 * time.Second).Format(http.TimeFormat), 0},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.expected, tr.retryAfter(tt.value))
		})
	}
}

func TestUserAgent(t *testing.T) {
	assert.Equal(t, "QwenCode/0.4.0 ("+runtime.GOOS+"; "+runtime.GOARCH+")", UserAgent("v0.4.0"))
	assert.Equal(t, "QwenCode/dev ("+runtime.GOOS+"; "+runtime.GOARCH+")", UserAgent(""))
}
