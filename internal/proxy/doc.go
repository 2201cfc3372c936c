// Package proxy exposes the governed Qwen API on a local address.
//
// Host applications point an OpenAI-compatible client at the proxy and send
// requests without credentials. Each request is forwarded to the API base
// URL of the current credentials, using a governor.Transport that adds the
// access token, paces the call and retries rate-limited or unauthorised
// responses. When no credentials are available the proxy answers 401 with
// a message asking the user to log in.
package proxy
