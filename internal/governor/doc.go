// Package governor paces and retries authenticated calls to the Qwen API.
//
// Queue serialises dispatches in FIFO order and keeps at least MinInterval
// plus a random jitter between them. Transport is an http.RoundTripper that
// resolves the access token, sets the outbound headers, dispatches through
// the Queue and applies a small decision table to the response:
//
//	401, 403  invalidate the token cache; retry once if the token changed
//	429       wait Retry-After (60s by default) and retry once
//	other     return unchanged
//
// Retries are sent directly and do not count as dispatches.
package governor
