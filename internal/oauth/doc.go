// Package oauth implements the Qwen OAuth 2.0 device authorization flow
// (RFC 8628) with PKCE, and the refresh token grant.
//
// # Flow
//
//	pkce, _ := oauth.GeneratePKCE()
//	auth, err := client.RequestDeviceAuthorization(ctx, pkce.CodeChallenge)
//	// show auth.UserCode and auth.BrowserURL() to the user
//	token, err := oauth.NewPoller(client, nil).Poll(ctx, auth, pkce.CodeVerifier)
//
// Authorizer wraps these steps and persists the resulting credential.
//
// # Polling
//
// The poller sleeps before every poll. It starts at the advertised
// interval plus PollMargin, adds SlowDownStep on each slow_down response up
// to MaxPollInterval, keeps the interval on authorization_pending, and gives
// up with ErrPollingTimeout once the device code lifetime has passed.
//
// # Endpoints
//
// Endpoints, client ID and scope are fixed constants; only tests override
// the base URL.
package oauth
