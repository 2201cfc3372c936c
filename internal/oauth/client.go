package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"qwenauth/pkg/logging"
	pkgstrings "qwenauth/pkg/strings"
)

// Fixed Qwen OAuth endpoints and client registration. They are not
// user-configurable.
const (
	DefaultBaseURL = "https://chat.qwen.ai"

	DeviceCodePath = "/api/v1/oauth2/device/code"
	TokenPath      = "/api/v1/oauth2/token"

	ClientID = "f0304373b74a44d2b584a3fb70ca9e56"
	Scope    = "openid profile email model.completion"

	DeviceCodeGrantType   = "urn:ietf:params:oauth:grant-type:device_code"
	RefreshTokenGrantType = "refresh_token"
)

// DefaultHTTPTimeout is the default timeout for OAuth HTTP requests.
const DefaultHTTPTimeout = 30 * time.Second

// Client performs the OAuth protocol calls: device authorization, device
// token polling and refresh. Each method issues exactly one HTTP request.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// ClientOption configures the OAuth client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBaseURL points the client at another server. Used by tests.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// NewClient creates a new OAuth client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		baseURL:    DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestDeviceAuthorization starts a device flow for the given PKCE
// challenge.
func (c *Client) RequestDeviceAuthorization(ctx context.Context, codeChallenge string) (*DeviceAuthorization, error) {
	data := url.Values{
		"client_id":             {ClientID},
		"scope":                 {Scope},
		"code_challenge":        {codeChallenge},
		"code_challenge_method": {"S256"},
	}

	const op = "device authorization"
	status, body, err := c.postForm(ctx, DeviceCodePath, data)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &TransportError{Op: op, StatusCode: status, Body: truncate(body)}
	}

	var auth DeviceAuthorization
	if err := json.Unmarshal(body, &auth); err != nil {
		return nil, fmt.Errorf("failed to parse device authorization response: %w", err)
	}
	if auth.DeviceCode == "" || auth.UserCode == "" {
		return nil, fmt.Errorf("device authorization response missing device_code or user_code")
	}

	logging.Debug("OAuth", "Device authorization started, expires_in=%ds interval=%ds", auth.ExpiresIn, auth.Interval)
	return &auth, nil
}

// PollDeviceToken performs one device token request.
//
// It returns the token on success, ErrAuthorizationPending while the user
// has not approved yet, *SlowDownError when the server asks for a longer
// interval, and any other error for terminal failures.
func (c *Client) PollDeviceToken(ctx context.Context, deviceCode, codeVerifier string) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {DeviceCodeGrantType},
		"client_id":     {ClientID},
		"device_code":   {deviceCode},
		"code_verifier": {codeVerifier},
	}

	status, body, err := c.postForm(ctx, TokenPath, data)
	if err != nil {
		return nil, &TransportError{Op: "device token", Err: err}
	}

	var parsed tokenEndpointResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if decodeErr == nil {
		switch parsed.Error {
		case "":
		case "authorization_pending":
			return nil, ErrAuthorizationPending
		case "slow_down":
			return nil, &SlowDownError{Description: parsed.ErrorDescription}
		default:
			return nil, &OAuthError{StatusCode: status, Code: parsed.Error, Description: parsed.ErrorDescription}
		}
	}

	if status < 200 || status >= 300 {
		return nil, &TransportError{Op: "device token", StatusCode: status, Body: truncate(body)}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to parse device token response: %w", decodeErr)
	}
	if strings.TrimSpace(parsed.AccessToken) == "" {
		return nil, fmt.Errorf("device token response missing access_token")
	}

	token := parsed.TokenResponse
	return &token, nil
}

// RefreshToken exchanges a refresh token for a new access token. Any
// failure is reported as *RefreshError.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {RefreshTokenGrantType},
		"refresh_token": {refreshToken},
		"client_id":     {ClientID},
	}

	status, body, err := c.postForm(ctx, TokenPath, data)
	if err != nil {
		return nil, &RefreshError{Err: &TransportError{Op: "token refresh", Err: err}}
	}

	var parsed tokenEndpointResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if status < 200 || status >= 300 || (decodeErr == nil && parsed.Error != "") {
		logging.Debug("OAuth", "Token refresh rejected, status=%d error=%s", status, parsed.Error)
		return nil, &RefreshError{StatusCode: status, Code: parsed.Error}
	}
	if decodeErr != nil {
		return nil, &RefreshError{StatusCode: status, Err: fmt.Errorf("failed to parse refresh response: %w", decodeErr)}
	}
	if strings.TrimSpace(parsed.AccessToken) == "" {
		return nil, &RefreshError{StatusCode: status, Err: fmt.Errorf("refresh response missing access_token")}
	}

	token := parsed.TokenResponse
	return &token, nil
}

// BaseURL returns the OAuth server the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// postForm sends a form-encoded POST and returns the status and body.
func (c *Client) postForm(ctx context.Context, path string, data url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(data.Encode()))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-request-id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func truncate(body []byte) string {
	return pkgstrings.Truncate(string(body), pkgstrings.DefaultBodyMaxLen)
}
