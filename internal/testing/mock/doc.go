// Package mock provides a mock Qwen OAuth server for tests.
//
// OAuthServer serves the device authorization and token endpoints on a
// loopback port. It verifies PKCE, can be told how many polls stay pending
// or ask to slow down before the login is approved or denied, and rotates
// refresh tokens the way the real server does.
//
// Usage:
//
//	server := mock.NewOAuthServer(mock.OAuthServerConfig{PendingPolls: 2})
//	baseURL, err := server.Start(ctx)
//	defer server.Stop(ctx)
//
//	client := oauth.NewClient(oauth.WithBaseURL(baseURL))
package mock
