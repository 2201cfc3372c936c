package mock

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, config OAuthServerConfig) (*OAuthServer, string) {
	t.Helper()
	server := NewOAuthServer(config)
	baseURL, err := server.Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
	return server, baseURL
}

func postForm(t *testing.T, endpoint string, form url.Values) (int, map[string]any) {
	t.Helper()
	resp, err := http.PostForm(endpoint, form)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func challengeFor(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

func TestOAuthServer_StartStop(t *testing.T) {
	server := NewOAuthServer(OAuthServerConfig{})
	assert.Empty(t, server.URL())

	baseURL, err := server.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, server.IsRunning())
	assert.Equal(t, baseURL, server.URL())

	again, err := server.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, baseURL, again)

	require.NoError(t, server.Stop(context.Background()))
	assert.False(t, server.IsRunning())
	require.NoError(t, server.Stop(context.Background()))
}

func TestOAuthServer_DeviceFlow(t *testing.T) {
	_, baseURL := startServer(t, OAuthServerConfig{
		ClientID:      "client",
		Interval:      5,
		PendingPolls:  2,
		SlowDownPolls: 1,
		ResourceURL:   "portal.qwen.ai",
	})

	verifier := "verifier-verifier-verifier-verifier-verifier"
	status, auth := postForm(t, baseURL+DeviceCodePath, url.Values{
		"client_id":             {"client"},
		"code_challenge":        {challengeFor(verifier)},
		"code_challenge_method": {"S256"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, auth["user_code"])
	assert.EqualValues(t, 5, auth["interval"])
	assert.EqualValues(t, 900, auth["expires_in"])

	poll := url.Values{
		"grant_type":    {deviceCodeGrantType},
		"client_id":     {"client"},
		"device_code":   {auth["device_code"].(string)},
		"code_verifier": {verifier},
	}

	_, body := postForm(t, baseURL+TokenPath, poll)
	assert.Equal(t, "slow_down", body["error"])

	_, body = postForm(t, baseURL+TokenPath, poll)
	assert.Equal(t, "authorization_pending", body["error"])

	status, body = postForm(t, baseURL+TokenPath, poll)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["access_token"])
	assert.NotEmpty(t, body["refresh_token"])
	assert.Equal(t, "portal.qwen.ai", body["resource_url"])

	// A device code can be redeemed once.
	_, body = postForm(t, baseURL+TokenPath, poll)
	assert.Equal(t, "expired_token", body["error"])
}

func TestOAuthServer_RejectsBadVerifier(t *testing.T) {
	_, baseURL := startServer(t, OAuthServerConfig{})

	_, auth := postForm(t, baseURL+DeviceCodePath, url.Values{
		"code_challenge":        {challengeFor("right")},
		"code_challenge_method": {"S256"},
	})

	_, body := postForm(t, baseURL+TokenPath, url.Values{
		"grant_type":    {deviceCodeGrantType},
		"device_code":   {auth["device_code"].(string)},
		"code_verifier": {"wrong"},
	})
	assert.Equal(t, "invalid_grant", body["error"])
}

func TestOAuthServer_RequiresS256(t *testing.T) {
	_, baseURL := startServer(t, OAuthServerConfig{})

	status, body := postForm(t, baseURL+DeviceCodePath, url.Values{
		"code_challenge":        {"abc"},
		"code_challenge_method": {"plain"},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_request", body["error"])
}

func TestOAuthServer_UnknownClient(t *testing.T) {
	_, baseURL := startServer(t, OAuthServerConfig{ClientID: "client"})

	status, body := postForm(t, baseURL+TokenPath, url.Values{"client_id": {"other"}})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_client", body["error"])
}

func TestOAuthServer_RefreshRotation(t *testing.T) {
	server, baseURL := startServer(t, OAuthServerConfig{})
	refreshToken := server.IssueRefreshToken()

	form := url.Values{"grant_type": {"refresh_token"}, "refresh_token": {refreshToken}}
	status, body := postForm(t, baseURL+TokenPath, form)
	require.Equal(t, http.StatusOK, status)
	rotated := body["refresh_token"]
	assert.NotEmpty(t, rotated)
	assert.NotEqual(t, refreshToken, rotated)

	// The old refresh token is spent.
	status, body = postForm(t, baseURL+TokenPath, form)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_grant", body["error"])
	assert.Equal(t, 2, server.RefreshCalls())
}

func TestOAuthServer_KeepRefreshToken(t *testing.T) {
	server, baseURL := startServer(t, OAuthServerConfig{KeepRefreshToken: true})
	refreshToken := server.IssueRefreshToken()

	form := url.Values{"grant_type": {"refresh_token"}, "refresh_token": {refreshToken}}
	for i := 0; i < 2; i++ {
		status, body := postForm(t, baseURL+TokenPath, form)
		require.Equal(t, http.StatusOK, status)
		assert.Nil(t, body["refresh_token"])
	}

	server.RevokeRefreshToken(refreshToken)
	_, body := postForm(t, baseURL+TokenPath, form)
	assert.Equal(t, "invalid_grant", body["error"])
}

func TestGenerateUserCode(t *testing.T) {
	code := generateUserCode()
	assert.Len(t, code, 9)
	assert.Equal(t, byte('-'), code[4])
}
