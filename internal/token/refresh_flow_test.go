package token

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qwenauth/internal/clock"
	"qwenauth/internal/credentials"
	"qwenauth/internal/oauth"
	"qwenauth/internal/testing/mock"
)

type refreshFlow struct {
	server   *mock.OAuthServer
	store    *credentials.Store
	session  *credentials.Session
	resolver *Resolver
	clock    *clock.Fake
}

func newRefreshFlow(t *testing.T, config mock.OAuthServerConfig) *refreshFlow {
	t.Helper()
	config.ClientID = oauth.ClientID
	server := mock.NewOAuthServer(config)
	baseURL, err := server.Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Stop(context.Background()) })

	clk := clock.NewFake(epoch)
	store := credentials.NewFileStore(filepath.Join(t.TempDir(), "oauth_creds.json"))
	session := credentials.NewSession(nil)
	client := oauth.NewClient(oauth.WithBaseURL(baseURL))

	return &refreshFlow{
		server:  server,
		store:   store,
		session: session,
		clock:   clk,
		resolver: NewResolver(ResolverConfig{
			Runtime:   session,
			Store:     store,
			Refresher: NewRefresher(client, store, clk),
			Clock:     clk,
			OnRefresh: session.Set,
		}),
	}
}

func TestResolver_RefreshesAgainstMockServer(t *testing.T) {
	flow := newRefreshFlow(t, mock.OAuthServerConfig{ResourceURL: "portal.qwen.ai"})
	oldRefresh := flow.server.IssueRefreshToken()
	require.NoError(t, flow.store.Save(context.Background(), &credentials.Credential{
		AccessToken:  "expired-access",
		RefreshToken: oldRefresh,
		Expiry:       epoch.Add(-time.Minute),
	}))

	token, ok := flow.resolver.GetValidAccessToken(context.Background())
	require.True(t, ok)
	assert.NotEqual(t, "expired-access", token)
	assert.Equal(t, 1, flow.server.RefreshCalls())

	saved, err := flow.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, saved.AccessToken)
	assert.NotEqual(t, oldRefresh, saved.RefreshToken)
	assert.True(t, saved.Expiry.Equal(epoch.Add(time.Hour)), "expiry %s", saved.Expiry)
	assert.Equal(t, "portal.qwen.ai", saved.ResourceURL)

	current, err := flow.session.CurrentCredential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, current.AccessToken)

	// Served from the cache.
	again, ok := flow.resolver.GetValidAccessToken(context.Background())
	require.True(t, ok)
	assert.Equal(t, token, again)
	assert.Equal(t, 1, flow.server.RefreshCalls())
}

func TestResolver_RevokedRefreshTokenAgainstMockServer(t *testing.T) {
	flow := newRefreshFlow(t, mock.OAuthServerConfig{})
	refreshToken := flow.server.IssueRefreshToken()
	flow.server.RevokeRefreshToken(refreshToken)
	require.NoError(t, flow.store.Save(context.Background(), &credentials.Credential{
		AccessToken:  "expired-access",
		RefreshToken: refreshToken,
		Expiry:       epoch.Add(-time.Minute),
	}))

	token, ok := flow.resolver.GetValidAccessToken(context.Background())
	assert.False(t, ok)
	assert.Empty(t, token)
	assert.Equal(t, 1, flow.server.RefreshCalls())

	_, err := flow.resolver.ForceRefresh(context.Background())
	var refreshErr *oauth.RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.Equal(t, "invalid_grant", refreshErr.Code)
}
