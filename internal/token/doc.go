// Package token resolves the access token used for outbound API calls.
//
// A Resolver reconciles the host's runtime credentials with the persisted
// credential file, refreshes the token shortly before it expires, and keeps
// the result in a small in-memory Cache so that most calls touch neither
// disk nor network:
//
//	resolver := token.NewResolver(token.ResolverConfig{
//		Runtime:   session,
//		Store:     store,
//		Refresher: token.NewRefresher(oauthClient, store, nil),
//	})
//	accessToken, ok := resolver.GetValidAccessToken(ctx)
//	if !ok {
//		// ask the user to log in again
//	}
//
// "No token" is reported through ok, never as an error.
package token
